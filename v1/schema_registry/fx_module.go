package schema_registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

// FXModule is an fx.Module that provides and configures the Schema Registry client.
// It provides both the concrete *Client and the Registry interface.
//
// Usage:
//
//	app := fx.New(
//	    schema_registry.FXModule,
//	    fx.Provide(
//	        func() schema_registry.Config {
//	            return schema_registry.Config{
//	                URL:           "http://localhost:8081",
//	                Compatibility: schema_registry.CompatibilityBackward,
//	            }
//	        },
//	    ),
//	)
var FXModule = fx.Module("schema_registry",
	fx.Provide(
		NewClientWithDI,
		func(c *Client) Registry { return c },
	),
	fx.Invoke(RegisterSchemaRegistryLifecycle),
)

// SchemaRegistryParams groups the dependencies needed to create a Schema Registry client
type SchemaRegistryParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a new Schema Registry client using dependency injection.
// The optional Logger and Observer are wired into the client when present in
// the container; an explicit Config.Logger takes precedence.
func NewClientWithDI(params SchemaRegistryParams) (*Client, error) {
	cfg := params.Config
	if cfg.Logger == nil && params.Logger != nil {
		cfg.Logger = params.Logger
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		client = client.WithObserver(params.Observer)
	}
	return client, nil
}

// SchemaRegistryLifecycleParams groups the dependencies needed for Schema Registry lifecycle management
type SchemaRegistryLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *Client
}

// RegisterSchemaRegistryLifecycle logs client start and stop. The HTTP client
// holds no resources that need explicit cleanup beyond idle connections.
func RegisterSchemaRegistryLifecycle(params SchemaRegistryLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Client.info("Schema Registry client initialized", nil, map[string]interface{}{
				"url":            params.Client.url,
				"schema_id_size": params.Client.idSize,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Client.httpClient.CloseIdleConnections()
			params.Client.info("Schema Registry client shutdown", nil, nil)
			return nil
		},
	})
}
