package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
//
// Notes:
//   - resource: the topic
//   - subResource: the partition for consumed messages, empty otherwise
func (k *KafkaClient) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if k == nil || k.observer == nil {
		return
	}

	k.observer.ObserveOperation(observability.OperationContext{
		Component:   "kafka",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}

func (k *KafkaClient) startSpan(ctx context.Context, name string, kind trace.SpanKind) (context.Context, trace.Span) {
	ctx, span := k.tracer.StartSpan(ctx, name, trace.WithSpanKind(kind))
	k.tracer.SetAttributes(span, map[string]interface{}{
		"messaging.system":      "kafka",
		"messaging.destination": k.cfg.Topic,
	})
	return ctx, span
}

func (k *KafkaClient) endSpan(span trace.Span, err error) {
	if err != nil {
		k.tracer.RecordErrorOnSpan(span, err)
	}
	span.End()
}

func (k *KafkaClient) logInfo(msg string, fields map[string]interface{}) {
	if k.cfg.Logger != nil {
		k.cfg.Logger.Info(msg, nil, fields)
	}
}

func (k *KafkaClient) logWarn(msg string, err error, fields map[string]interface{}) {
	if k.cfg.Logger != nil {
		k.cfg.Logger.Warn(msg, err, fields)
	}
}

func (k *KafkaClient) logError(msg string, err error, fields map[string]interface{}) {
	if k.cfg.Logger != nil {
		k.cfg.Logger.Error(msg, err, fields)
	}
}
