package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/avrokafka/v1/serde"
)

// Publish serializes rec and writes it to the topic.
//
// Serialization is retried with exponential backoff while the schema
// registry is unavailable (Config.RegistryRetry); any other serialization
// failure, such as serde.IsIncompatibleSchema, is returned at once and
// nothing is written.
//
// Parameters:
//   - ctx: Bounds serialization, retries and the broker write
//   - rec: Key and value with their schemas; a nil Value with no ValueSchema
//     publishes a tombstone
//
// Returns:
//   - error: nil on success; a serde error, ErrInvalidKey, ErrNotProducer,
//     ErrClientClosed or the broker error otherwise
//
// Example:
//
//	err := client.Publish(ctx, kafka.Record{
//		Key:         "employee-1",
//		Value:       map[string]interface{}{"name": "Ada", "age": int32(36)},
//		ValueSchema: employeeSchema,
//	})
func (k *KafkaClient) Publish(ctx context.Context, rec Record) (err error) {
	start := time.Now()
	var size int64

	if k.tracer != nil {
		var span trace.Span
		ctx, span = k.startSpan(ctx, "publish "+k.cfg.Topic, trace.SpanKindProducer)
		defer func() { k.endSpan(span, err) }()
	}
	defer func() {
		k.observeOperation("publish", k.cfg.Topic, "", time.Since(start), err, size)
	}()

	key, err := k.encodeKey(ctx, rec)
	if err != nil {
		return err
	}

	var value []byte
	if rec.Value != nil || rec.ValueSchema != "" {
		value, err = k.serializeWithRetry(ctx, k.codec.Value, rec.Value, rec.ValueSchema)
		if err != nil {
			return err
		}
	}
	size = int64(len(key) + len(value))

	msg := kafka.Message{
		Key:     key,
		Value:   value,
		Headers: k.buildHeaders(ctx, rec.Headers),
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.writer == nil {
		if k.cfg.IsConsumer {
			return ErrNotProducer
		}
		return ErrClientClosed
	}
	if err = k.writer.WriteMessages(ctx, msg); err != nil {
		k.logError("Failed to publish message", err, map[string]interface{}{"topic": k.cfg.Topic})
		return fmt.Errorf("failed to write message to %s: %w", k.cfg.Topic, err)
	}
	return nil
}

func (k *KafkaClient) encodeKey(ctx context.Context, rec Record) ([]byte, error) {
	if rec.Key == nil {
		return nil, nil
	}
	if k.cfg.AvroKeys {
		return k.serializeWithRetry(ctx, k.codec.Key, rec.Key, rec.KeySchema)
	}

	switch key := rec.Key.(type) {
	case []byte:
		return key, nil
	case string:
		return []byte(key), nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidKey, rec.Key)
	}
}

// serializeWithRetry retries only registry outages; everything else is
// permanent.
func (k *KafkaClient) serializeWithRetry(ctx context.Context, s *serde.AvroSerde, value interface{}, schema string) ([]byte, error) {
	var data []byte
	attempt := 0

	operation := func() error {
		attempt++
		var err error
		data, err = s.Serialize(ctx, value, schema)
		if err != nil && !serde.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		k.logWarn("Schema registry unavailable, retrying", err, map[string]interface{}{
			"subject": s.Subject(),
			"attempt": attempt,
			"wait":    wait.String(),
		})
	}

	if err := backoff.RetryNotify(operation, k.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return data, nil
}

func (k *KafkaClient) newBackOff(ctx context.Context) backoff.BackOff {
	policy := k.cfg.RegistryRetry
	if policy.MaxRetries < 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.MaxRetries)), ctx)
}

func (k *KafkaClient) buildHeaders(ctx context.Context, extra map[string]string) []kafka.Header {
	var carrier map[string]string
	if k.tracer != nil {
		carrier = k.tracer.GetCarrier(ctx)
	}
	if len(extra) == 0 && len(carrier) == 0 {
		return nil
	}

	headers := make([]kafka.Header, 0, len(extra)+len(carrier))
	for key, v := range extra {
		if _, traced := carrier[key]; traced {
			continue
		}
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}
	for key, v := range carrier {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}
	return headers
}
