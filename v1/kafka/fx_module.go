package kafka

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
	"github.com/Aleph-Alpha/avrokafka/v1/observability"
	"github.com/Aleph-Alpha/avrokafka/v1/serde"
	"github.com/Aleph-Alpha/avrokafka/v1/tracer"
)

// FXModule provides a *KafkaClient and the Client interface, built from a
// kafka.Config and the *serde.AvroKeyValueSerde in the container.
//
// Usage:
//
//	app := fx.New(
//		logger.FXModule,
//		schema_registry.FXModule,
//		serde.FXModule,
//		kafka.FXModule,
//		fx.Provide(
//			func() schema_registry.Config { return schema_registry.Config{URL: "http://localhost:8081"} },
//			func() serde.Config { return serde.Config{Topic: "employees"} },
//			func() kafka.Config {
//				return kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "employees"}
//			},
//		),
//	)
//
// A logger.Logger, an observability.Observer and a *tracer.Tracer are picked
// up when present.
var FXModule = fx.Module("kafka",
	fx.Provide(
		NewClientWithDI,
		func(k *KafkaClient) Client { return k },
	),
	fx.Invoke(RegisterKafkaLifecycle),
)

// KafkaParams groups the dependencies needed to create a Kafka client.
type KafkaParams struct {
	fx.In

	Config   Config
	Serde    *serde.AvroKeyValueSerde
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   *tracer.Tracer         `optional:"true"`
}

// NewClientWithDI creates a Kafka client using dependency injection.
func NewClientWithDI(params KafkaParams) (*KafkaClient, error) {
	cfg := params.Config
	if cfg.Logger == nil && params.Logger != nil {
		cfg.Logger = params.Logger
	}

	client, err := NewClient(cfg, params.Serde)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		client = client.WithObserver(params.Observer)
	}
	if params.Tracer != nil {
		client = client.WithTracer(params.Tracer)
	}
	return client, nil
}

// RegisterKafkaLifecycle shuts the client down when the application stops.
func RegisterKafkaLifecycle(lc fx.Lifecycle, client *KafkaClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.GracefulShutdown()
			return nil
		},
	})
}
