package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
)

// FXModule provides a *Tracer from a tracer.Config and shuts it down, flushing
// pending spans, when the application stops.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    fx.Provide(func() tracer.Config {
//	        return tracer.Config{ServiceName: "employee-events", EnableExport: true}
//	    }),
//	)
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerParams groups the dependencies needed to create a Tracer.
type TracerParams struct {
	fx.In

	Config Config
	Logger logger.Logger `optional:"true"`
}

// NewClientWithDI creates a Tracer using dependency injection.
func NewClientWithDI(params TracerParams) (*Tracer, error) {
	var log Logger
	if params.Logger != nil {
		log = params.Logger
	}
	return NewClient(params.Config, log)
}

// RegisterTracerLifecycle registers the shutdown hook for the tracer.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer.logger != nil {
				tracer.logger.Info("Shutting down tracer", nil, nil)
			}
			if tracer.tracer == nil {
				if tracer.logger != nil {
					tracer.logger.Warn("Tracer was nil during shutdown", nil, nil)
				}
				return nil
			}
			return tracer.Shutdown(ctx)
		},
	})
}
