package schema_registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/avrokafka/v1/schema_registry/registrytest"
)

const employeeSubject = "avrokafka-test-employee-value"

const employeeSchema = `{
	"type": "record",
	"name": "Employee",
	"namespace": "avrokafka.test",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "int"}
	]
}`

const employeeSchemaV2 = `{
	"type": "record",
	"name": "Employee",
	"namespace": "avrokafka.test",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "int"},
		{"name": "department", "type": "string"}
	]
}`

func newTestClient(t *testing.T, srv *registrytest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{URL: srv.URL}
	for _, m := range mutate {
		m(&cfg)
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://localhost:8081", SchemaIDSize: 9})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "http://localhost:8081", Compatibility: "SIDEWAYS"})
	assert.Error(t, err)

	client, err := NewClient(Config{URL: "http://localhost:8081/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081", client.url)
	assert.Equal(t, DefaultSchemaIDSize, client.SchemaIDSize())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.Cache())

	client, err = NewClient(Config{URL: "http://localhost:8081", SchemaIDSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, client.SchemaIDSize())
}

func TestGetSchemaByIDIsCached(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 7, employeeSchema)

	client := newTestClient(t, srv)
	ctx := context.Background()

	first, err := client.GetSchemaByID(ctx, 7)
	require.NoError(t, err)
	second, err := client.GetSchemaByID(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.JSONEq(t, employeeSchema, first)
	assert.Equal(t, 1, srv.Fetches(7))
}

func TestGetSchemaByIDNotFound(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	client := newTestClient(t, srv)

	schema, err := client.GetSchemaByID(context.Background(), 999)
	require.Error(t, err)
	assert.Empty(t, schema)
	assert.True(t, IsSchemaNotFound(err))
	assert.False(t, IsRetryable(err))

	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, http.StatusNotFound, regErr.StatusCode)
	assert.Equal(t, 40403, regErr.ErrorCode)

	// failures are not cached
	srv.AddSchema(employeeSubject, 999, employeeSchema)
	schema, err = client.GetSchemaByID(context.Background(), 999)
	require.NoError(t, err)
	assert.JSONEq(t, employeeSchema, schema)
	assert.Equal(t, 2, srv.Fetches(999))
}

func TestGetSchemaByIDConcurrent(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 3, employeeSchema)

	client := newTestClient(t, srv)
	ctx := context.Background()

	results := make([]string, 32)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			schema, err := client.GetSchemaByID(ctx, 3)
			results[i] = schema
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, schema := range results {
		assert.Equal(t, results[0], schema)
	}

	fetches := srv.Fetches(3)
	assert.GreaterOrEqual(t, fetches, 1)

	_, err := client.GetSchemaByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, fetches, srv.Fetches(3))
}

func TestGetSchemaByIDCallerTimeoutDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{}, 1)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
		_, _ = w.Write([]byte(`{"schema": "\"string\""}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := client.GetSchemaByID(shortCtx, 5)
		shortErr <- err
	}()
	<-started

	schema, err := client.GetSchemaByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, `"string"`, schema)

	err = <-shortErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRegisterSchemaIsIdempotent(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.SetNextID(23)

	client := newTestClient(t, srv)
	ctx := context.Background()

	id, err := client.RegisterSchema(ctx, employeeSubject, employeeSchema, "")
	require.NoError(t, err)
	assert.Equal(t, 23, id)

	again, err := client.RegisterSchema(ctx, employeeSubject, employeeSchema, SchemaTypeAvro)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// formatting differences share the cache entry
	compacted, err := client.RegisterSchema(ctx, employeeSubject, `{"type":"record","name":"Employee","namespace":"avrokafka.test","fields":[{"name":"name","type":"string"},{"name":"age","type":"int"}]}`, "")
	require.NoError(t, err)
	assert.Equal(t, id, compacted)

	assert.Equal(t, 1, srv.Registrations())

	// the reverse mapping is known without a lookup
	schema, err := client.GetSchemaByID(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, employeeSchema, schema)
	assert.Equal(t, 0, srv.Fetches(id))
}

func TestRegisterSchemaSharedCache(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	cache := NewCache()
	producer := newTestClient(t, srv, func(c *Config) { c.Cache = cache })
	consumer := newTestClient(t, srv, func(c *Config) { c.Cache = cache })
	ctx := context.Background()

	id, err := producer.RegisterSchema(ctx, employeeSubject, employeeSchema, "")
	require.NoError(t, err)

	_, err = consumer.GetSchemaByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, srv.Fetches(id))
}

func TestRegisterSchemaIncompatible(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 1, employeeSchema)
	srv.RejectSubject(employeeSubject)

	client := newTestClient(t, srv)

	id, err := client.RegisterSchema(context.Background(), employeeSubject, employeeSchemaV2, "")
	require.Error(t, err)
	assert.Zero(t, id)
	assert.True(t, IsIncompatibleSchema(err))
	assert.False(t, IsRetryable(err))

	var incompatible *IncompatibleSchemaError
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, employeeSubject, incompatible.Subject)
	assert.Equal(t, employeeSchemaV2, incompatible.Schema)
	assert.JSONEq(t, employeeSchema, incompatible.Conflicting)
	assert.Equal(t, 1, incompatible.ConflictingID)
	assert.Equal(t, 1, incompatible.ConflictingVersion)
	assert.Equal(t, []string{"reader field 'department' has no default value"}, incompatible.Messages)
	assert.Contains(t, err.Error(), "department")

	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, http.StatusConflict, regErr.StatusCode)

	_, ids := client.Cache().Len()
	// only the latest schema learned while diagnosing is cached
	assert.Equal(t, 1, ids)
}

func TestRegistryUnavailable(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 5, employeeSchema)

	client := newTestClient(t, srv)
	ctx := context.Background()

	srv.SetUnavailable(true)

	_, err := client.GetSchemaByID(ctx, 5)
	assert.True(t, IsRegistryUnavailable(err))
	assert.True(t, IsRetryable(err))

	_, err = client.RegisterSchema(ctx, employeeSubject, employeeSchemaV2, "")
	assert.True(t, IsRegistryUnavailable(err))
	assert.False(t, IsIncompatibleSchema(err))

	srv.SetUnavailable(false)

	schema, err := client.GetSchemaByID(ctx, 5)
	require.NoError(t, err)
	assert.JSONEq(t, employeeSchema, schema)
}

func TestRegistryUnreachable(t *testing.T) {
	srv := registrytest.NewServer()
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.GetSchemaByID(context.Background(), 1)
	assert.True(t, IsRegistryUnavailable(err))

	_, err = client.RegisterSchema(context.Background(), employeeSubject, employeeSchema, "")
	assert.True(t, IsRegistryUnavailable(err))
}

func TestRegisterSchemaAppliesCompatibility(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	client := newTestClient(t, srv, func(c *Config) { c.Compatibility = CompatibilityFull })
	ctx := context.Background()

	_, err := client.RegisterSchema(ctx, employeeSubject, employeeSchema, "")
	require.NoError(t, err)
	assert.Equal(t, "FULL", srv.Compatibility(employeeSubject))

	mode, err := client.GetCompatibility(ctx, employeeSubject)
	require.NoError(t, err)
	assert.Equal(t, CompatibilityFull, mode)

	mode, err = client.GetCompatibility(ctx, "other-subject")
	require.NoError(t, err)
	assert.Equal(t, CompatibilityBackward, mode)

	assert.Error(t, client.SetCompatibility(ctx, employeeSubject, "SIDEWAYS"))
}

func TestCheckCompatibility(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	client := newTestClient(t, srv)
	ctx := context.Background()

	ok, err := client.CheckCompatibility(ctx, employeeSubject, employeeSchema, "")
	require.NoError(t, err)
	assert.True(t, ok, "empty subject accepts anything")

	srv.AddSchema(employeeSubject, 1, employeeSchema)
	ok, err = client.CheckCompatibility(ctx, employeeSubject, employeeSchemaV2, "")
	require.NoError(t, err)
	assert.True(t, ok)

	srv.RejectSubject(employeeSubject)
	ok, err = client.CheckCompatibility(ctx, employeeSubject, employeeSchemaV2, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetLatestSchema(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()
	srv.AddSchema(employeeSubject, 1, employeeSchema)
	srv.AddSchema(employeeSubject, 2, employeeSchemaV2)

	client := newTestClient(t, srv)
	ctx := context.Background()

	meta, err := client.GetLatestSchema(ctx, employeeSubject)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.ID)
	assert.Equal(t, 2, meta.Version)
	assert.Equal(t, employeeSubject, meta.Subject)
	assert.Equal(t, SchemaTypeAvro, meta.Type)

	id, err := client.RegisterSchema(ctx, employeeSubject, employeeSchemaV2, "")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, 0, srv.Registrations())

	_, err = client.GetLatestSchema(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code":40101,"message":"Unauthorized"}`))
			return
		}
		assert.Equal(t, contentType, r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"schema":"\"string\""}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Username: "svc", Password: "secret"})
	require.NoError(t, err)
	schema, err := client.GetSchemaByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, `"string"`, schema)

	anonymous, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	_, err = anonymous.GetSchemaByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUnexpectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	_, err = client.GetSchemaByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestClientLogsFailures(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug("Fetching schema from registry", nil, gomock.Any()).Times(1)
	mockLogger.EXPECT().Warn("Failed to fetch schema", gomock.Any(), gomock.Any()).Times(1)

	client := newTestClient(t, srv, func(c *Config) { c.Logger = mockLogger })
	_, err := client.GetSchemaByID(context.Background(), 42)
	assert.True(t, IsSchemaNotFound(err))
}
