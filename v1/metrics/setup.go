package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates the Prometheus registry and HTTP server responsible
// for exposing application metrics.
//
// Metrics implements observability.Observer, so it can be handed to the
// schema registry client, the serde and the kafka client to record every
// operation they perform.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the Prometheus registry where all metrics are registered.
	// Each service maintains its own isolated registry to prevent metric name collisions.
	Registry *prometheus.Registry

	namespace  string
	registerer prometheus.Registerer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	payloadBytes      *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
}

// NewMetrics initializes and returns a new instance of the Metrics struct.
// It sets up a dedicated Prometheus registry, registers the operation metrics
// and optionally the default system collectors, wraps everything with a
// constant `service` label, and creates an HTTP server exposing /metrics.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{
//	    Address:     ":9090",
//	    ServiceName: "employee-events",
//	})
//	go m.Server.ListenAndServe()
//
//	registry = registry.WithObserver(m)
func NewMetrics(cfg Config) *Metrics {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}

	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"service": cfg.ServiceName},
			registry,
		)
	}

	m := &Metrics{
		Registry:   registry,
		namespace:  cfg.Namespace,
		registerer: registerer,
	}

	m.operationsTotal = createCounterVec(cfg.Namespace, "operations_total",
		"Total number of operations by component, operation and outcome",
		[]string{"component", "operation", "status"})
	m.operationDuration = createHistogramVec(cfg.Namespace, "operation_duration_seconds",
		"Duration of operations in seconds",
		[]string{"component", "operation"}, prometheus.DefBuckets)
	m.payloadBytes = createHistogramVec(cfg.Namespace, "payload_bytes",
		"Size of payloads handled by operations in bytes",
		[]string{"component", "operation"}, prometheus.ExponentialBuckets(64, 4, 8))
	m.cacheLookups = createCounterVec(cfg.Namespace, "cache_lookups_total",
		"Schema cache lookups by outcome",
		[]string{"component", "operation", "result"})

	registerer.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.payloadBytes,
		m.cacheLookups,
	)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return m
}
