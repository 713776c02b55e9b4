// Package metrics provides Prometheus-based monitoring for the schema
// registry client, the serde and the kafka client.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - MetricsCollector interface: observability.Observer plus dynamic metric factories
//   - Metrics struct: Concrete implementation of the MetricsCollector interface
//   - NewMetrics constructor: Returns *Metrics (concrete type)
//   - FX module: Provides *Metrics, MetricsCollector and observability.Observer
//
// # Recorded Metrics
//
// Every observed operation updates:
//
//	operations_total{component, operation, status}       counter, status is success|error
//	operation_duration_seconds{component, operation}     histogram
//	payload_bytes{component, operation}                  histogram, only when a size is known
//	cache_lookups_total{component, operation, result}    counter, result is hit|miss
//
// Components are "schema_registry", "serde" and "kafka"; operations are the
// verbs those packages report (get_schema, register_schema, serialize,
// deserialize, publish, consume, ...).
//
// # Direct Usage (Without FX)
//
//	m := metrics.NewMetrics(metrics.Config{
//		Address:     ":9090",
//		Namespace:   "avrokafka",
//		ServiceName: "employee-events",
//	})
//	go m.Server.ListenAndServe()
//
//	client, _ := schema_registry.NewClient(cfg)
//	client = client.WithObserver(m)
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule,
//		schema_registry.FXModule,
//		serde.FXModule,
//		fx.Provide(
//			func() metrics.Config { return metrics.Config{Address: ":9090"} },
//			// schema_registry.Config, serde.Config ...
//		),
//	)
//
// # Custom Metrics
//
//	retries := m.CreateCounter("publish_retries_total", "Publish retries", []string{"topic"})
//	retries.WithLabelValues("employees").Inc()
//
// # Configuration
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=avrokafka
//	METRICS_SERVICE_NAME=employee-events
//
// # Thread Safety
//
// All methods on Metrics are safe for concurrent use.
package metrics
