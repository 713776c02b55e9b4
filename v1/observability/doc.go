// Package observability defines the hook through which the std clients report
// the operations they perform.
//
// Clients accept an optional Observer (via WithObserver or fx injection) and
// call it after each operation with an OperationContext. The metrics package
// ships a Prometheus-backed implementation; tests typically use a small
// recording observer.
//
//	client = client.WithObserver(metricsInstance)
package observability
