package schema_registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/avrokafka/v1/logger"
	"github.com/Aleph-Alpha/avrokafka/v1/observability"
	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry/registrytest"
)

func TestFXModuleProvidesRegistry(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 11, employeeSchema)

	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core), false)

	obs := &TestObserver{}
	var registry Registry

	app := fxtest.New(t,
		FXModule,
		fx.Provide(
			func() Config { return Config{URL: srv.URL, SchemaIDSize: 4} },
			func() logger.Logger { return log },
			func() observability.Observer { return obs },
		),
		fx.Populate(&registry),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))

	schema, err := registry.GetSchemaByID(ctx, 11)
	require.NoError(t, err)
	assert.JSONEq(t, employeeSchema, schema)
	assert.Equal(t, 4, registry.SchemaIDSize())
	assert.Len(t, obs.GetOperations(), 1)

	require.NoError(t, app.Stop(ctx))

	assert.Equal(t, 1, logs.FilterMessage("Schema Registry client initialized").Len())
	assert.Equal(t, 1, logs.FilterMessage("Schema Registry client shutdown").Len())
}

func TestFXModuleRejectsInvalidConfig(t *testing.T) {
	app := fx.New(
		FXModule,
		fx.Provide(func() Config { return Config{} }),
		fx.Invoke(func(Registry) {}),
		fx.NopLogger,
	)
	assert.Error(t, app.Err())
}
