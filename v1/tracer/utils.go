package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	traceSpan "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Aleph-Alpha/avrokafka"

// StartSpan creates a new span with the given name and returns an updated context
// containing the span, along with the span itself.
//
// The created span becomes a child of any span that exists in the provided context.
// If no span exists in the context, a new root span is created.
//
// Parameters:
//   - ctx: The parent context, which may contain a parent span
//   - name: A descriptive name for the operation being traced
//   - opts: Optional span start options, e.g. trace.WithSpanKind(trace.SpanKindProducer)
//
// Returns:
//   - context.Context: A new context containing the created span
//   - traceSpan.Span: The created span, which must be ended when the operation completes
//
// Example:
//
//	func publishOrder(ctx context.Context, order map[string]interface{}) error {
//	    ctx, span := tracer.StartSpan(ctx, "orders publish",
//	        trace.WithSpanKind(trace.SpanKindProducer))
//	    defer span.End()
//
//	    if err := client.Publish(ctx, kafka.Record{Value: order, ValueSchema: orderSchema}); err != nil {
//	        tracer.RecordErrorOnSpan(span, err)
//	        return err
//	    }
//	    return nil
//	}
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...traceSpan.SpanStartOption) (context.Context, traceSpan.Span) {
	return t.tracer.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// RecordErrorOnSpan records an error on a span and sets its status to error.
// A nil error leaves the span untouched.
//
// Parameters:
//   - span: The span on which to record the error
//   - err: The error to record on the span
//
// Example:
//
//	ctx, span := tracer.StartSpan(ctx, "schema lookup")
//	defer span.End()
//
//	schema, err := registry.GetSchemaByID(ctx, id)
//	if err != nil {
//	    tracer.RecordErrorOnSpan(span, err)
//	    return "", err
//	}
func (t *Tracer) RecordErrorOnSpan(span traceSpan.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetAttributes adds one or more attributes to a span.
//
// Parameters:
//   - span: The span to add attributes to
//   - attrs: A map of attribute keys to values
//
// Supported value types:
//   - string: Stored as string attributes
//   - int/int64: Stored as integer attributes
//   - float64: Stored as floating-point attributes
//   - bool: Stored as boolean attributes
//   - other types: Converted to strings using fmt.Sprint
//
// Example:
//
//	tracer.SetAttributes(span, map[string]interface{}{
//	    "messaging.destination": "orders",
//	    "messaging.kafka.partition": msg.Partition(),
//	    "schema.id": 23,
//	})
func (t *Tracer) SetAttributes(span traceSpan.Span, attrs map[string]interface{}) {
	if len(attrs) == 0 {
		return
	}

	attributes := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			attributes = append(attributes, attribute.String(k, val))
		case int:
			attributes = append(attributes, attribute.Int(k, val))
		case int64:
			attributes = append(attributes, attribute.Int64(k, val))
		case float64:
			attributes = append(attributes, attribute.Float64(k, val))
		case bool:
			attributes = append(attributes, attribute.Bool(k, val))
		default:
			attributes = append(attributes, attribute.String(k, fmt.Sprint(val)))
		}
	}
	span.SetAttributes(attributes...)
}

// GetCarrier extracts the current trace context from ctx and returns it as
// a map that can travel with a message to another service.
//
// Parameters:
//   - ctx: The context containing the current trace information
//
// Returns:
//   - map[string]string: The W3C trace context headers
//
// The returned map typically includes:
//   - "traceparent": Contains trace ID, span ID, and trace flags
//   - "tracestate": Contains vendor-specific trace information (if present)
//   - "baggage": Contains propagated baggage members (if present)
//
// Example:
//
//	headers := tracer.GetCarrier(ctx)
//	for key, value := range headers {
//	    msg.Headers = append(msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
//	}
func (t *Tracer) GetCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	return carrier
}

// SetCarrierOnContext extracts trace information from a carrier map and injects it into a context.
// This is the complement to GetCarrier and is used when consuming messages
// that were published with trace headers.
//
// Parameters:
//   - ctx: The base context to inject trace information into
//   - carrier: A map containing trace headers, such as Message.Header()
//
// Returns:
//   - context.Context: A new context carrying the upstream trace
//
// Example:
//
//	for msg := range client.Consume(ctx, wg) {
//	    msgCtx := tracer.SetCarrierOnContext(ctx, msg.Header())
//	    msgCtx, span := tracer.StartSpan(msgCtx, "orders process")
//	    handle(msgCtx, msg)
//	    span.End()
//	}
func (t *Tracer) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}
