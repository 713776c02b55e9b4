package tracer

// Config defines the configuration for the OpenTelemetry tracer.
type Config struct {
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME"`

	// AppEnv is reported as the deployment environment.
	AppEnv string `yaml:"app_env" envconfig:"TRACER_APP_ENV"`

	// EnableExport sends spans to an OTLP HTTP collector. The endpoint is
	// read from the standard OTEL_EXPORTER_OTLP_* environment variables
	// unless Endpoint is set.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`

	// Endpoint overrides the collector host:port, e.g. "otel-collector:4318".
	Endpoint string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" envconfig:"TRACER_INSECURE"`
}
