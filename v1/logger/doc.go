// Package logger provides the structured logger shared by the avrokafka packages.
//
// It wraps zap behind a small interface whose methods take a message, an
// optional error and optional field maps, so call sites read the same
// whether they log a success or a failure:
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "orders-consumer",
//		EnableTracing: true,
//	})
//
//	log.Info("Schema registered", nil, map[string]interface{}{
//		"subject":   "orders-value",
//		"schema_id": 42,
//	})
//	log.Error("Failed to fetch schema", err, map[string]interface{}{
//		"schema_id": 999,
//	})
//
// # Trace correlation
//
// With EnableTracing set, the *WithContext variants add trace_id and span_id
// taken from the OpenTelemetry span stored in the context.
//
// # FX
//
// FXModule provides *LoggerClient and the Logger interface from a Config in
// the container, and flushes the logger on stop.
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug        # debug, info, warning, error
//	LOGGER_ENABLE_TRACING=true
//	LOGGER_SERVICE_NAME=orders
//
// All methods are safe for concurrent use.
package logger
