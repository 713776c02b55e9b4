package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule defines the Fx module for the logger package.
// It provides both the concrete *LoggerClient and the Logger interface and
// registers a shutdown hook that flushes buffered entries.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    fx.Provide(func() logger.Config {
//	        return logger.Config{Level: logger.Info, ServiceName: "orders"}
//	    }),
//	)
//
// Dependencies required by this module:
// - A logger.Config instance must be available in the dependency injection container
var FXModule = fx.Module("logger",
	fx.Provide(
		NewLoggerClient,
		func(client *LoggerClient) Logger { return client },
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle handles cleanup (sync) of the Zap logger.
// The OnStop hook calls Sync() on the underlying Zap logger so that no
// buffered entries are lost at shutdown.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *LoggerClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stderr returns EINVAL/ENOTTY on Sync on some platforms.
			_ = client.Zap.Sync()
			return nil
		},
	})
}
