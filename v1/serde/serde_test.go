package serde

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry"
	"github.com/Aleph-Alpha/avrokafka/v1/wire"
)

const testTopic = "avrokafka-test-employee"

const employeeSchema = `{
	"type": "record",
	"name": "Employee",
	"namespace": "avrokafka.test",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "int"}
	]
}`

// employeeAvro is the Avro binary encoding of employeeValue.
var employeeAvro = []byte{0x08, 'J', 'o', 'h', 'n', 0x44}

func employeeValue() map[string]interface{} {
	return map[string]interface{}{"name": "John", "age": int32(34)}
}

func employeeWireFormat(id byte) []byte {
	return append([]byte{wire.MagicByte, 0, 0, 0, id}, employeeAvro...)
}

func newMockSerde(t *testing.T) (*AvroKeyValueSerde, *schema_registry.MockRegistry) {
	t.Helper()
	ctrl := gomock.NewController(t)
	registry := schema_registry.NewMockRegistry(ctrl)
	registry.EXPECT().SchemaIDSize().Return(wire.DefaultIDSize).AnyTimes()

	kv, err := NewAvroKeyValueSerde(registry, Config{Topic: testTopic})
	require.NoError(t, err)
	return kv, registry
}

func TestNewAvroKeyValueSerde(t *testing.T) {
	kv, _ := newMockSerde(t)
	assert.Equal(t, testTopic, kv.Topic())
	assert.Equal(t, testTopic+"-key", kv.Key.Subject())
	assert.Equal(t, testTopic+"-value", kv.Value.Subject())

	_, err := NewAvroKeyValueSerde(nil, Config{Topic: testTopic})
	assert.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewAvroKeyValueSerde(schema_registry.NewMockRegistry(ctrl), Config{})
	assert.Error(t, err)
}

func TestCustomSubjectNameStrategy(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := schema_registry.NewMockRegistry(ctrl)

	kv, err := NewAvroKeyValueSerde(registry, Config{
		Topic: "orders",
		SubjectNameStrategy: func(topic string, isKey bool) string {
			if isKey {
				return "shop." + topic + ".key"
			}
			return "shop." + topic
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "shop.orders.key", kv.Key.Subject())
	assert.Equal(t, "shop.orders", kv.Value.Subject())
}

func TestValueDeserializeMissingMagicByte(t *testing.T) {
	kv, _ := newMockSerde(t)

	value, err := kv.Value.Deserialize(context.Background(), employeeAvro)
	assert.Nil(t, value)
	require.Error(t, err)
	assert.True(t, IsSerializerError(err))
	assert.True(t, IsMalformedEnvelope(err))

	var serErr *SerializerError
	require.True(t, errors.As(err, &serErr))
	assert.Equal(t, "deserialize", serErr.Op)
	assert.Equal(t, testTopic+"-value", serErr.Subject)
}

func TestValueDeserializeNil(t *testing.T) {
	kv, _ := newMockSerde(t)

	value, err := kv.Value.Deserialize(context.Background(), nil)
	assert.Nil(t, value)
	assert.True(t, IsSerializerError(err))
	assert.True(t, IsMalformedEnvelope(err))
}

func TestValueDeserializeShortHeader(t *testing.T) {
	kv, _ := newMockSerde(t)

	_, err := kv.Value.Deserialize(context.Background(), []byte{wire.MagicByte, 0, 0})
	assert.True(t, IsMalformedEnvelope(err))
}

func TestValueDeserializeSuccess(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().GetSchemaByID(gomock.Any(), 23).Return(employeeSchema, nil)

	value, err := kv.Value.Deserialize(context.Background(), employeeWireFormat(23))
	require.NoError(t, err)
	assert.Equal(t, employeeValue(), value)
}

func TestValueDeserializeTrailingBytes(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().GetSchemaByID(gomock.Any(), 23).Return(employeeSchema, nil)

	data := append(employeeWireFormat(23), 0x00)
	value, err := kv.Value.Deserialize(context.Background(), data)
	assert.Nil(t, value)
	assert.True(t, IsSerializerError(err))
	assert.False(t, IsMalformedEnvelope(err))
}

func TestValueDeserializeRegistryErrorsStayMatchable(t *testing.T) {
	kv, registry := newMockSerde(t)
	notFound := &schema_registry.RegistryError{Kind: schema_registry.ErrSchemaNotFound, StatusCode: 404, ErrorCode: 40403}
	registry.EXPECT().GetSchemaByID(gomock.Any(), 999).Return("", notFound)

	_, err := kv.Value.Deserialize(context.Background(), []byte{wire.MagicByte, 0, 0, 0x03, 0xe7})
	assert.True(t, IsSerializerError(err))
	assert.True(t, IsSchemaNotFound(err))
	assert.False(t, IsRetryable(err))

	var serErr *SerializerError
	require.True(t, errors.As(err, &serErr))
	assert.Equal(t, 999, serErr.SchemaID)
}

func TestValueSerializeIncompatibleChange(t *testing.T) {
	kv, registry := newMockSerde(t)
	incompatible := &schema_registry.IncompatibleSchemaError{
		Subject: testTopic + "-value",
		Schema:  employeeSchema,
	}
	registry.EXPECT().
		RegisterSchema(gomock.Any(), testTopic+"-value", employeeSchema, schema_registry.SchemaTypeAvro).
		Return(0, incompatible)

	data, err := kv.Value.Serialize(context.Background(), employeeValue(), employeeSchema)
	assert.Nil(t, data)
	assert.True(t, IsIncompatibleSchema(err))
	assert.False(t, IsSerializerError(err))
	assert.Same(t, incompatible, err)
}

func TestValueSerializeRegistryUnavailable(t *testing.T) {
	kv, registry := newMockSerde(t)
	unavailable := &schema_registry.RegistryError{Kind: schema_registry.ErrRegistryUnavailable, StatusCode: 503}
	registry.EXPECT().RegisterSchema(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(0, unavailable)

	data, err := kv.Value.Serialize(context.Background(), employeeValue(), employeeSchema)
	assert.Nil(t, data)
	assert.True(t, IsRetryable(err))
}

func TestValueSerializeSuccess(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().
		RegisterSchema(gomock.Any(), testTopic+"-value", employeeSchema, schema_registry.SchemaTypeAvro).
		Return(45, nil)
	registry.EXPECT().GetSchemaByID(gomock.Any(), 45).Return(employeeSchema, nil)

	ctx := context.Background()
	data, err := kv.Value.Serialize(ctx, employeeValue(), employeeSchema)
	require.NoError(t, err)
	assert.Equal(t, employeeWireFormat(45), data)

	decoded, err := kv.Value.Deserialize(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, employeeValue(), decoded)
}

func TestKeySerializeUsesKeySubject(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().
		RegisterSchema(gomock.Any(), testTopic+"-key", `"string"`, schema_registry.SchemaTypeAvro).
		Return(3, nil)

	data, err := kv.Key.Serialize(context.Background(), "employee-1", `"string"`)
	require.NoError(t, err)
	assert.Equal(t, []byte{wire.MagicByte, 0, 0, 0, 3, 0x14, 'e', 'm', 'p', 'l', 'o', 'y', 'e', 'e', '-', '1'}, data)
}

func TestValueSerializeMismatch(t *testing.T) {
	kv, registry := newMockSerde(t)
	registry.EXPECT().RegisterSchema(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(45, nil)

	data, err := kv.Value.Serialize(context.Background(), map[string]interface{}{
		"name": "John",
		"age":  "thirty-four",
	}, employeeSchema)
	assert.Nil(t, data)
	assert.True(t, IsSerializerError(err))

	var serErr *SerializerError
	require.True(t, errors.As(err, &serErr))
	assert.Equal(t, "serialize", serErr.Op)
	assert.Equal(t, 45, serErr.SchemaID)
}

func TestValueSerializeInvalidSchemaSkipsRegistry(t *testing.T) {
	kv, _ := newMockSerde(t)

	data, err := kv.Value.Serialize(context.Background(), employeeValue(), `{"type": "record"}`)
	assert.Nil(t, data)
	assert.True(t, IsSerializerError(err))
}

func TestSerializeWithWideIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := schema_registry.NewMockRegistry(ctrl)
	registry.EXPECT().SchemaIDSize().Return(8).AnyTimes()
	registry.EXPECT().RegisterSchema(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(45, nil)
	registry.EXPECT().GetSchemaByID(gomock.Any(), 45).Return(employeeSchema, nil)

	kv, err := NewAvroKeyValueSerde(registry, Config{Topic: testTopic})
	require.NoError(t, err)

	ctx := context.Background()
	data, err := kv.Value.Serialize(ctx, employeeValue(), employeeSchema)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0, 0, 0, 0, 0, 0, 0, 0, 45}, employeeAvro...), data)

	decoded, err := kv.Value.Deserialize(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, employeeValue(), decoded)
}
