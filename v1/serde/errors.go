package serde

import (
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry"
	"github.com/Aleph-Alpha/avrokafka/v1/wire"
)

// ErrSerialization is matched by every *SerializerError.
var ErrSerialization = errors.New("serde: serialization failed")

// SerializerError reports a failure at the serialization boundary. It wraps
// the cause, so errors.Is still sees wire.ErrMalformedEnvelope,
// schema_registry.ErrSchemaNotFound and the other kinds underneath.
type SerializerError struct {
	// Op is "serialize" or "deserialize".
	Op string

	// Subject is the registry subject of the serde that failed.
	Subject string

	// SchemaID is the schema ID involved, 0 when unknown.
	SchemaID int

	Err error
}

func (e *SerializerError) Error() string {
	if e.SchemaID != 0 {
		return fmt.Sprintf("serde: %s %s (schema %d): %v", e.Op, e.Subject, e.SchemaID, e.Err)
	}
	return fmt.Sprintf("serde: %s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *SerializerError) Unwrap() error {
	return e.Err
}

func (e *SerializerError) Is(target error) bool {
	return target == ErrSerialization
}

// IsSerializerError checks if the error originated at the serialization boundary.
func IsSerializerError(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// IsMalformedEnvelope checks if the input was not a framed payload.
func IsMalformedEnvelope(err error) bool {
	return errors.Is(err, wire.ErrMalformedEnvelope)
}

// IsSchemaNotFound checks if the payload named a schema ID the registry does not know.
func IsSchemaNotFound(err error) bool {
	return schema_registry.IsSchemaNotFound(err)
}

// IsIncompatibleSchema checks if the registry rejected the writer schema.
func IsIncompatibleSchema(err error) bool {
	return schema_registry.IsIncompatibleSchema(err)
}

// IsRetryable reports whether the same call may succeed later.
func IsRetryable(err error) bool {
	return schema_registry.IsRetryable(err)
}
