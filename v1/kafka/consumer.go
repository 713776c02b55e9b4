package kafka

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

const fetchRetryDelay = 100 * time.Millisecond

// ConsumerMessage implements Message for a record read from the topic.
type ConsumerMessage struct {
	key     interface{}
	value   interface{}
	err     error
	headers map[string]string
	ctx     context.Context

	raw    kafka.Message
	client *KafkaClient
}

// Consume starts reading the topic and delivers decoded records on the
// returned channel. The channel is closed when ctx is cancelled, the client
// shuts down, or the client is not a consumer.
//
// Records whose key or value cannot be decoded are still delivered, with
// Err set, so they can be committed or dead-lettered instead of blocking the
// partition.
//
// Example:
//
//	wg := &sync.WaitGroup{}
//	for msg := range client.Consume(ctx, wg) {
//		if msg.Err() != nil {
//			log.Warn("Skipping undecodable record", msg.Err(), nil)
//		} else {
//			handle(msg.Value())
//		}
//		_ = msg.CommitMsg()
//	}
//	wg.Wait()
func (k *KafkaClient) Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message {
	outChan := make(chan Message, 100)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(outChan)

		for {
			select {
			case <-k.shutdownSignal:
				k.logInfo("Stopping consumer due to shutdown signal", map[string]interface{}{"topic": k.cfg.Topic})
				return
			case <-ctx.Done():
				k.logInfo("Stopping consumer due to context cancellation", map[string]interface{}{"topic": k.cfg.Topic})
				return
			default:
			}

			k.mu.RLock()
			reader := k.reader
			k.mu.RUnlock()
			if reader == nil {
				k.logWarn("Consume called on a client without a reader", nil, map[string]interface{}{"topic": k.cfg.Topic})
				return
			}

			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				k.logError("Failed to fetch message", err, map[string]interface{}{"topic": k.cfg.Topic})
				select {
				case <-time.After(fetchRetryDelay):
					continue
				case <-ctx.Done():
					return
				case <-k.shutdownSignal:
					return
				}
			}

			select {
			case outChan <- k.decode(ctx, msg):
			case <-ctx.Done():
				return
			case <-k.shutdownSignal:
				return
			}
		}
	}()
	return outChan
}

func (k *KafkaClient) decode(ctx context.Context, msg kafka.Message) *ConsumerMessage {
	start := time.Now()
	headers := headerMap(msg.Headers)

	msgCtx := ctx
	var span trace.Span
	if k.tracer != nil {
		msgCtx = k.tracer.SetCarrierOnContext(ctx, headers)
		msgCtx, span = k.startSpan(msgCtx, "consume "+k.cfg.Topic, trace.SpanKindConsumer)
	}

	out := &ConsumerMessage{
		headers: headers,
		ctx:     msgCtx,
		raw:     msg,
		client:  k,
	}
	out.key, out.err = k.decodeKey(msgCtx, msg.Key)
	if out.err == nil && len(msg.Value) > 0 {
		out.value, out.err = k.codec.Value.Deserialize(msgCtx, msg.Value)
	}

	if span != nil {
		k.endSpan(span, out.err)
	}
	k.observeOperation("consume", k.cfg.Topic, strconv.Itoa(msg.Partition), time.Since(start), out.err, int64(len(msg.Key)+len(msg.Value)))

	if out.err != nil {
		out.value = nil
		k.logWarn("Failed to decode message", out.err, map[string]interface{}{
			"topic":     k.cfg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
	}
	return out
}

func (k *KafkaClient) decodeKey(ctx context.Context, key []byte) (interface{}, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if !k.cfg.AvroKeys {
		return key, nil
	}
	return k.codec.Key.Deserialize(ctx, key)
}

func headerMap(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

// Key returns the decoded key: raw bytes, or the Avro value when
// Config.AvroKeys is set.
func (m *ConsumerMessage) Key() interface{} {
	return m.key
}

// Value returns the decoded value, or nil for tombstones and failed decodes.
func (m *ConsumerMessage) Value() interface{} {
	return m.value
}

// Body returns the framed value exactly as read from the broker.
func (m *ConsumerMessage) Body() []byte {
	return m.raw.Value
}

func (m *ConsumerMessage) Header() map[string]string {
	return m.headers
}

// Err returns the decode error, if any.
func (m *ConsumerMessage) Err() error {
	return m.err
}

// Context carries the producer's trace when a tracer is attached.
func (m *ConsumerMessage) Context() context.Context {
	return m.ctx
}

func (m *ConsumerMessage) Partition() int {
	return m.raw.Partition
}

func (m *ConsumerMessage) Offset() int64 {
	return m.raw.Offset
}

// CommitMsg commits the offset of the message. With auto-commit enabled the
// commit is batched by the reader.
func (m *ConsumerMessage) CommitMsg() error {
	k := m.client
	start := time.Now()

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.reader == nil {
		return ErrClientClosed
	}
	err := k.reader.CommitMessages(context.Background(), m.raw)
	k.observeOperation("commit", k.cfg.Topic, strconv.Itoa(m.raw.Partition), time.Since(start), err, 0)
	return err
}
