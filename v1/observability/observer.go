package observability

import "time"

// Observer receives a notification for every operation a component performs.
// Implementations must be safe for concurrent use, since clients call
// ObserveOperation from whatever goroutine ran the operation.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a single completed operation.
type OperationContext struct {
	// Component is the package that performed the operation, e.g. "schema_registry".
	Component string

	// Operation is the verb, e.g. "get_schema", "register_schema", "serialize".
	Operation string

	// Resource is the primary object operated on (subject, topic).
	Resource string

	// SubResource carries secondary context such as a schema ID or "key"/"value".
	SubResource string

	// Duration is the wall time the operation took.
	Duration time.Duration

	// Error is the outcome; nil on success.
	Error error

	// Size is the payload size in bytes, when meaningful.
	Size int64

	// Metadata holds additional operation-specific fields.
	Metadata map[string]interface{}
}

// NoopObserver discards all observations.
type NoopObserver struct{}

// ObserveOperation implements Observer.
func (NoopObserver) ObserveOperation(OperationContext) {}
