package serde

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry"
	"github.com/Aleph-Alpha/avrokafka/v1/wire"
)

// AvroKeyValueSerde binds a topic to a schema registry and exposes
// independent serializers for the record key and the record value.
//
// It holds no state besides compiled codecs, and is safe for concurrent use.
type AvroKeyValueSerde struct {
	Key   *AvroSerde
	Value *AvroSerde

	topic string
}

// AvroSerde serializes one half of a record against the registry.
type AvroSerde struct {
	registry schema_registry.Registry
	subject  string
	isKey    bool

	codecs   *codecCache
	logger   Logger
	observer observability.Observer
}

// NewAvroKeyValueSerde creates the key and value serdes for cfg.Topic.
//
// Example:
//
//	kv, err := serde.NewAvroKeyValueSerde(registry, serde.Config{Topic: "employees"})
//	if err != nil {
//	    return err
//	}
//	data, err := kv.Value.Serialize(ctx, employee, employeeSchema)
func NewAvroKeyValueSerde(registry schema_registry.Registry, cfg Config) (*AvroKeyValueSerde, error) {
	if registry == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	codecs := &codecCache{}
	newSerde := func(isKey bool) *AvroSerde {
		return &AvroSerde{
			registry: registry,
			subject:  cfg.SubjectNameStrategy(cfg.Topic, isKey),
			isKey:    isKey,
			codecs:   codecs,
			logger:   cfg.Logger,
		}
	}

	return &AvroKeyValueSerde{
		Key:   newSerde(true),
		Value: newSerde(false),
		topic: cfg.Topic,
	}, nil
}

// Topic returns the topic the serde is bound to.
func (kv *AvroKeyValueSerde) Topic() string {
	return kv.topic
}

// WithObserver attaches an observer to both halves and returns kv for chaining.
func (kv *AvroKeyValueSerde) WithObserver(observer observability.Observer) *AvroKeyValueSerde {
	kv.Key.observer = observer
	kv.Value.observer = observer
	return kv
}

// Subject returns the registry subject this serde registers under.
func (s *AvroSerde) Subject() string {
	return s.subject
}

// Serialize registers schema under the serde's subject, Avro-encodes value
// against it and frames the result with the returned schema ID.
//
// value is a plain tree: map[string]interface{} for records and maps, slices
// for arrays, Go scalars for primitives and the bare member value for unions.
//
// Registry failures are returned unchanged, so schema_registry.IsIncompatibleSchema
// and schema_registry.IsRetryable apply directly. Encoding failures are
// returned as *SerializerError. No bytes are returned on failure.
func (s *AvroSerde) Serialize(ctx context.Context, value interface{}, schema string) ([]byte, error) {
	start := time.Now()
	data, id, err := s.serialize(ctx, value, schema)
	s.observeOperation("serialize", id, time.Since(start), err, int64(len(data)))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *AvroSerde) serialize(ctx context.Context, value interface{}, schema string) ([]byte, int, error) {
	compiled, err := s.codecs.get(schema)
	if err != nil {
		return nil, 0, s.fail("serialize", 0, err)
	}

	id, err := s.registry.RegisterSchema(ctx, s.subject, schema, schema_registry.SchemaTypeAvro)
	if err != nil {
		s.warn("Schema registration failed", err, map[string]interface{}{"subject": s.subject})
		return nil, 0, err
	}
	if id < 0 {
		return nil, id, s.fail("serialize", id, fmt.Errorf("registry returned negative schema id"))
	}

	native, err := toNative(compiled.root, value)
	if err != nil {
		return nil, id, s.fail("serialize", id, err)
	}
	payload, err := compiled.codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, id, s.fail("serialize", id, err)
	}

	data, err := wire.Encode(uint64(id), s.registry.SchemaIDSize(), payload)
	if err != nil {
		return nil, id, s.fail("serialize", id, err)
	}
	return data, id, nil
}

// Deserialize unframes data, resolves the embedded schema ID and decodes the
// Avro payload into a plain value tree (the same shape Serialize accepts).
//
// Every failure is a *SerializerError. Input that is nil, shorter than the
// header or missing the magic byte wraps wire.ErrMalformedEnvelope; an unknown
// schema ID wraps schema_registry.ErrSchemaNotFound.
func (s *AvroSerde) Deserialize(ctx context.Context, data []byte) (interface{}, error) {
	start := time.Now()
	value, id, err := s.deserialize(ctx, data)
	s.observeOperation("deserialize", id, time.Since(start), err, int64(len(data)))
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *AvroSerde) deserialize(ctx context.Context, data []byte) (interface{}, int, error) {
	rawID, payload, err := wire.Decode(data, s.registry.SchemaIDSize())
	if err != nil {
		return nil, 0, s.fail("deserialize", 0, err)
	}
	if rawID > math.MaxInt32 {
		return nil, 0, s.fail("deserialize", 0, fmt.Errorf("%w: schema id %d out of range", wire.ErrMalformedEnvelope, rawID))
	}
	id := int(rawID)

	schema, err := s.registry.GetSchemaByID(ctx, id)
	if err != nil {
		return nil, id, s.fail("deserialize", id, err)
	}
	compiled, err := s.codecs.get(schema)
	if err != nil {
		return nil, id, s.fail("deserialize", id, err)
	}

	native, rest, err := compiled.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, id, s.fail("deserialize", id, err)
	}
	if len(rest) != 0 {
		return nil, id, s.fail("deserialize", id, fmt.Errorf("%d trailing bytes after avro datum", len(rest)))
	}

	value, err := fromNative(compiled.root, native)
	if err != nil {
		return nil, id, s.fail("deserialize", id, err)
	}
	return value, id, nil
}

func (s *AvroSerde) fail(op string, id int, err error) error {
	serErr := &SerializerError{Op: op, Subject: s.subject, SchemaID: id, Err: err}
	s.debug("Serde operation failed", serErr, map[string]interface{}{"subject": s.subject})
	return serErr
}

func (s *AvroSerde) debug(msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, err, fields)
	}
}

func (s *AvroSerde) warn(msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, err, fields)
	}
}
