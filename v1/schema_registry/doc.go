// Package schema_registry provides the client side of a Confluent Schema
// Registry: resolving schema IDs to schemas and registering schemas under a
// subject subject to the registry's compatibility policy.
//
// Core Features:
//   - HTTP client for the Confluent Schema Registry REST API
//   - Permanent, concurrency-safe caching of ID → schema and
//     (subject, schema) → ID mappings through an injectable Cache
//   - Configurable schema ID width used for payload framing
//   - Optional per-subject compatibility mode applied before registration
//   - Typed errors separating unknown IDs, rejected evolutions and
//     unavailability
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrokafka/v1/schema_registry"
//
//	registry, err := schema_registry.NewClient(schema_registry.Config{
//	    URL:           "http://localhost:8081",
//	    Username:      "user",     // Optional
//	    Password:      "password", // Optional
//	    Timeout:       10 * time.Second,
//	    Compatibility: schema_registry.CompatibilityBackward,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	schemaID, err := registry.RegisterSchema(ctx, "users-value", avroSchema, schema_registry.SchemaTypeAvro)
//	switch {
//	case schema_registry.IsIncompatibleSchema(err):
//	    // reject the write; inspect *IncompatibleSchemaError for the conflicting version
//	case schema_registry.IsRetryable(err):
//	    // registry unreachable, retry later
//	case err != nil:
//	    return err
//	}
//
//	schema, err := registry.GetSchemaByID(ctx, schemaID)
//
// Error Kinds:
//
// Every error matches one sentinel with errors.Is:
//
//	ErrSchemaNotFound       unknown schema ID
//	ErrSubjectNotFound      subject has no versions
//	ErrIncompatibleSchema   rejected by the compatibility policy (*IncompatibleSchemaError)
//	ErrInvalidSchema        registry could not parse the schema
//	ErrUnauthorized         401/403
//	ErrRegistryUnavailable  transport failure or 5xx; the only retryable kind
//	ErrUnexpectedResponse   anything else
//
// Schema Caching:
//
// Schema IDs are immutable once issued, so cached entries are never
// invalidated. Stores are insert-if-absent: a goroutine racing another on the
// same key gets the value that was stored first. Concurrent lookups of the
// same uncached ID share one HTTP request. Failures are never cached.
//
// Using with FX:
//
//	app := fx.New(
//	    schema_registry.FXModule,
//	    fx.Provide(
//	        func() schema_registry.Config {
//	            return schema_registry.Config{URL: os.Getenv("SCHEMA_REGISTRY_URL")}
//	        },
//	    ),
//	)
//
// The module provides *Client and Registry. A schema_registry.Logger and an
// observability.Observer are picked up when present in the container.
//
// Testing:
//
// Package registrytest runs an in-process fake registry with lookup counters.
// MockRegistry is a gomock implementation of Registry.
package schema_registry
