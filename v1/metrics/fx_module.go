package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

// FXModule defines the Fx module for the metrics package.
//
// Besides *Metrics and MetricsCollector it provides observability.Observer,
// so schema_registry.FXModule, serde.FXModule and kafka.FXModule pick the
// metrics up without further wiring.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    metrics.FXModule,
//	    fx.Provide(func() metrics.Config {
//	        return metrics.Config{
//	            Address:     ":9090",
//	            ServiceName: "employee-events",
//	        }
//	    }),
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		func(m *Metrics) MetricsCollector { return m },
		func(m *Metrics) observability.Observer { return m },
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// MetricsLifecycleParams groups the dependencies for the metrics lifecycle.
type MetricsLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    logger.Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the /metrics server in the background on
// start and shuts it down on stop.
func RegisterMetricsLifecycle(params MetricsLifecycleParams) {
	m := params.Metrics
	log := params.Logger

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if log != nil {
					log.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
						"address": m.Server.Addr,
					})
				}
				if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					if log != nil {
						log.Error("Error starting Prometheus metrics server", err, nil)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if log != nil {
				log.Info("Shutting down Prometheus metrics server", nil, nil)
			}
			return m.Server.Shutdown(ctx)
		},
	})
}
