package serde

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
	"github.com/Aleph-Alpha/avrokafka/v1/observability"
	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry"
)

// FXModule provides an *AvroKeyValueSerde built from a serde.Config and the
// schema_registry.Registry already in the container.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    schema_registry.FXModule,
//	    serde.FXModule,
//	    fx.Provide(
//	        func() schema_registry.Config { return schema_registry.Config{URL: "http://localhost:8081"} },
//	        func() serde.Config { return serde.Config{Topic: "employees"} },
//	    ),
//	)
var FXModule = fx.Module("serde",
	fx.Provide(NewAvroKeyValueSerdeWithDI),
)

// SerdeParams groups the dependencies needed to create a serde.
type SerdeParams struct {
	fx.In

	Config   Config
	Registry schema_registry.Registry
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewAvroKeyValueSerdeWithDI creates a serde using dependency injection.
func NewAvroKeyValueSerdeWithDI(params SerdeParams) (*AvroKeyValueSerde, error) {
	cfg := params.Config
	if cfg.Logger == nil && params.Logger != nil {
		cfg.Logger = params.Logger
	}

	kv, err := NewAvroKeyValueSerde(params.Registry, cfg)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		kv.WithObserver(params.Observer)
	}
	return kv, nil
}
