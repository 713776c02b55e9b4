package schema_registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status, code int
		want         error
	}{
		{404, 40403, ErrSchemaNotFound},
		{404, 0, ErrSchemaNotFound},
		{404, 40401, ErrSubjectNotFound},
		{404, 40402, ErrSubjectNotFound},
		{409, 409, ErrIncompatibleSchema},
		{422, 42201, ErrInvalidSchema},
		{401, 40101, ErrUnauthorized},
		{403, 0, ErrUnauthorized},
		{500, 50001, ErrRegistryUnavailable},
		{503, 0, ErrRegistryUnavailable},
		{418, 0, ErrUnexpectedResponse},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.status, tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, classifyStatus(tc.status, tc.code))
		})
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	unavailable := fmt.Errorf("failed to fetch schema 1: %w", &RegistryError{Kind: ErrRegistryUnavailable, StatusCode: 503})
	incompatible := &IncompatibleSchemaError{
		Subject: "orders-value",
		Err:     &RegistryError{Kind: ErrIncompatibleSchema, StatusCode: 409},
	}
	notFound := &RegistryError{Kind: ErrSchemaNotFound, StatusCode: 404, ErrorCode: 40403, Message: "Schema 999 not found"}

	assert.True(t, IsRetryable(unavailable))
	assert.False(t, IsIncompatibleSchema(unavailable))

	assert.True(t, IsIncompatibleSchema(incompatible))
	assert.False(t, IsRetryable(incompatible))
	assert.False(t, IsSchemaNotFound(incompatible))

	assert.True(t, IsSchemaNotFound(notFound))
	assert.False(t, IsRetryable(notFound))
	assert.Contains(t, notFound.Error(), "Schema 999 not found")

	// IncompatibleSchemaError matches its kind even without a cause
	assert.True(t, errors.Is(&IncompatibleSchemaError{Subject: "s"}, ErrIncompatibleSchema))
}
