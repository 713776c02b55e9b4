package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Logger is the logging contract used by the tracer.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Tracer wraps an OpenTelemetry TracerProvider with helpers for creating
// spans and for carrying trace context through message headers.
//
// The Tracer is safe for concurrent use.
type Tracer struct {
	tracer     *trace.TracerProvider
	propagator propagation.TextMapPropagator
	logger     Logger
}

// NewClient creates a Tracer and installs it as the global OpenTelemetry
// tracer provider and propagator.
//
// When cfg.EnableExport is set an OTLP HTTP exporter is configured; failing
// to create it is returned as an error.
//
// Parameters:
//   - cfg: Service name, environment and exporter settings
//   - logger: Receives setup diagnostics; may be nil
//   - opts: Extra provider options, e.g. trace.WithSpanProcessor in tests
//
// Returns:
//   - *Tracer: The configured tracer
//   - error: Exporter or resource creation failures
//
// Example:
//
//	t, err := tracer.NewClient(tracer.Config{
//	    ServiceName: "employee-events",
//	    AppEnv:      "production",
//	}, nil)
//	ctx, span := t.StartSpan(ctx, "publish")
//	defer span.End()
func NewClient(cfg Config, logger Logger, opts ...trace.TracerProviderOption) (*Tracer, error) {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		var clientOpts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("cannot initiate tracer exporter: %w", err)
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))
	options = append(options, opts...)

	tp := trace.NewTracerProvider(options...)
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator)

	return &Tracer{tracer: tp, propagator: propagator, logger: logger}, nil
}

// Shutdown flushes pending spans and releases the provider.
// It should be called once the application stops producing spans, usually
// from an fx OnStop hook (see RegisterTracerLifecycle).
//
// Parameters:
//   - ctx: Bounds how long pending spans may take to export
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
