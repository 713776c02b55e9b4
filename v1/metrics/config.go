package metrics

// Config defines the configuration for the Prometheus metrics server.
type Config struct {
	// Address is the host:port the /metrics endpoint listens on.
	// Default: ":9090"
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Go runtime, process and build
	// info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every metric name, e.g. "avrokafka_operations_total".
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is added as a constant "service" label to all metrics.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}

const defaultAddress = ":9090"
