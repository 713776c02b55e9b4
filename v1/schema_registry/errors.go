package schema_registry

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the registry client. Every error the client returns
// matches exactly one of these with errors.Is, so callers can route failures
// without inspecting messages.
var (
	// ErrSchemaNotFound is returned when the registry has no schema for an ID.
	ErrSchemaNotFound = errors.New("schema registry: schema not found")

	// ErrSubjectNotFound is returned when a subject has no registered versions.
	ErrSubjectNotFound = errors.New("schema registry: subject not found")

	// ErrIncompatibleSchema is returned when the registry rejects a schema
	// under the subject's compatibility policy.
	ErrIncompatibleSchema = errors.New("schema registry: incompatible schema version")

	// ErrInvalidSchema is returned when the registry cannot parse the schema.
	ErrInvalidSchema = errors.New("schema registry: invalid schema")

	// ErrUnauthorized is returned on 401/403 responses.
	ErrUnauthorized = errors.New("schema registry: unauthorized")

	// ErrRegistryUnavailable is returned when the registry cannot be reached
	// or answers with a server error. It is the only retryable kind.
	ErrRegistryUnavailable = errors.New("schema registry: unavailable")

	// ErrUnexpectedResponse is returned for responses the client does not understand.
	ErrUnexpectedResponse = errors.New("schema registry: unexpected response")
)

// Confluent error codes carried in the response body.
const (
	errorCodeSubjectNotFound = 40401
	errorCodeVersionNotFound = 40402
	errorCodeSchemaNotFound  = 40403
)

// RegistryError is a non-2xx answer from the registry.
type RegistryError struct {
	// Kind is one of the package sentinel errors.
	Kind       error
	StatusCode int
	ErrorCode  int    `json:"error_code"`
	Message    string `json:"message"`
}

func (e *RegistryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d, code %d): %s", e.Kind, e.StatusCode, e.ErrorCode, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Kind
}

// IncompatibleSchemaError describes a rejected schema evolution.
type IncompatibleSchemaError struct {
	Subject string

	// Schema is the rejected candidate.
	Schema string

	// Conflicting is the latest schema registered under Subject, when it
	// could be fetched. Empty otherwise.
	Conflicting        string
	ConflictingID      int
	ConflictingVersion int

	// Messages are the registry's compatibility diagnostics, if any.
	Messages []string

	// Err is the underlying registry response.
	Err error
}

func (e *IncompatibleSchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: subject %q", ErrIncompatibleSchema, e.Subject)
	if e.ConflictingVersion > 0 {
		fmt.Fprintf(&b, " conflicts with version %d (id %d)", e.ConflictingVersion, e.ConflictingID)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *IncompatibleSchemaError) Is(target error) bool {
	return target == ErrIncompatibleSchema
}

func (e *IncompatibleSchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaNotFound checks if the error reports an unknown schema ID.
func IsSchemaNotFound(err error) bool {
	return errors.Is(err, ErrSchemaNotFound)
}

// IsIncompatibleSchema checks if the error reports a rejected schema evolution.
func IsIncompatibleSchema(err error) bool {
	return errors.Is(err, ErrIncompatibleSchema)
}

// IsRegistryUnavailable checks if the error is a transport or server failure.
func IsRegistryUnavailable(err error) bool {
	return errors.Is(err, ErrRegistryUnavailable)
}

// IsRetryable reports whether retrying the same call may succeed.
func IsRetryable(err error) bool {
	return IsRegistryUnavailable(err)
}

// classifyStatus maps an HTTP status and Confluent error code to an error kind.
func classifyStatus(status, errorCode int) error {
	switch {
	case status >= 500:
		return ErrRegistryUnavailable
	case status == 401 || status == 403:
		return ErrUnauthorized
	case status == 404 && errorCode == errorCodeSubjectNotFound:
		return ErrSubjectNotFound
	case status == 404 && errorCode == errorCodeVersionNotFound:
		return ErrSubjectNotFound
	case status == 404:
		return ErrSchemaNotFound
	case status == 409:
		return ErrIncompatibleSchema
	case status == 422:
		return ErrInvalidSchema
	default:
		return ErrUnexpectedResponse
	}
}
