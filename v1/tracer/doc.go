// Package tracer provides distributed tracing using OpenTelemetry.
//
// The kafka package uses it to start a span per published or consumed
// message and to carry the W3C trace context in message headers:
//
//	ctx, span := t.StartSpan(ctx, "publish employees")
//	defer span.End()
//
//	headers := t.GetCarrier(ctx) // traceparent, tracestate, baggage
//
// and on the consuming side:
//
//	ctx = t.SetCarrierOnContext(ctx, headers)
//	ctx, span := t.StartSpan(ctx, "consume employees")
//
// Spans are exported over OTLP HTTP when Config.EnableExport is set;
// otherwise they stay in process, which is enough for context propagation.
package tracer
