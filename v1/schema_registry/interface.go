package schema_registry

import "context"

// Registry provides an interface for interacting with a Confluent Schema Registry.
// It handles schema registration, retrieval, and caching for serialization.
//
//go:generate mockgen -source=interface.go -destination=mock_registry.go -package=schema_registry
type Registry interface {
	// GetSchemaByID retrieves a schema by its ID
	GetSchemaByID(ctx context.Context, id int) (string, error)

	// GetLatestSchema retrieves the latest version of a schema for a subject
	GetLatestSchema(ctx context.Context, subject string) (*Metadata, error)

	// RegisterSchema registers a schema for a subject, or returns the ID of
	// an identical schema already registered there
	RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error)

	// CheckCompatibility checks if a schema is compatible with the latest version
	CheckCompatibility(ctx context.Context, subject, schema, schemaType string) (bool, error)

	// SchemaIDSize is the byte width of schema IDs in framed payloads
	SchemaIDSize() int
}

// SchemaTypeAvro is the default schema type.
const SchemaTypeAvro = "AVRO"

// Metadata contains metadata about a registered schema
type Metadata struct {
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Schema  string `json:"schema"`
	Subject string `json:"subject"`
	Type    string `json:"schemaType,omitempty"`
}

// Compatibility is a registry compatibility policy.
type Compatibility string

const (
	CompatibilityNone               Compatibility = "NONE"
	CompatibilityBackward           Compatibility = "BACKWARD"
	CompatibilityBackwardTransitive Compatibility = "BACKWARD_TRANSITIVE"
	CompatibilityForward            Compatibility = "FORWARD"
	CompatibilityForwardTransitive  Compatibility = "FORWARD_TRANSITIVE"
	CompatibilityFull               Compatibility = "FULL"
	CompatibilityFullTransitive     Compatibility = "FULL_TRANSITIVE"
)

// Valid reports whether c is a mode the registry understands.
func (c Compatibility) Valid() bool {
	switch c {
	case CompatibilityNone, CompatibilityBackward, CompatibilityBackwardTransitive,
		CompatibilityForward, CompatibilityForwardTransitive,
		CompatibilityFull, CompatibilityFullTransitive:
		return true
	}
	return false
}
