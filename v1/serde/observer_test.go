package serde

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, ctx)
}

func (r *recordingObserver) operations() []observability.OperationContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observability.OperationContext(nil), r.ops...)
}

func TestObserveOperationNilObserverNoPanic(t *testing.T) {
	s := &AvroSerde{}
	s.observeOperation("serialize", 1, time.Millisecond, nil, 0)

	var nilSerde *AvroSerde
	nilSerde.observeOperation("serialize", 1, time.Millisecond, nil, 0)
}

func TestObserverSeesSerdeOperations(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().RegisterSchema(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(45, nil)

	obs := &recordingObserver{}
	kv.WithObserver(obs)

	ctx := context.Background()
	data, err := kv.Value.Serialize(ctx, employeeValue(), employeeSchema)
	require.NoError(t, err)
	_, err = kv.Value.Deserialize(ctx, nil)
	require.Error(t, err)

	ops := obs.operations()
	require.Len(t, ops, 2)

	assert.Equal(t, "serde", ops[0].Component)
	assert.Equal(t, "serialize", ops[0].Operation)
	assert.Equal(t, testTopic+"-value", ops[0].Resource)
	assert.Equal(t, "value", ops[0].SubResource)
	assert.Equal(t, int64(len(data)), ops[0].Size)
	assert.Equal(t, "45", ops[0].Metadata["schema_id"])
	assert.NoError(t, ops[0].Error)

	assert.Equal(t, "deserialize", ops[1].Operation)
	assert.True(t, IsMalformedEnvelope(ops[1].Error))
}
