package schema_registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

const contentType = "application/vnd.schemaregistry.v1+json"

// maxErrorBody caps how much of an error response is read into memory.
const maxErrorBody = 64 << 10

// Client is the default implementation of Registry
// that communicates with Confluent Schema Registry over HTTP.
//
// A Client is safe for concurrent use and is meant to be shared by every
// serializer in the process that talks to the same registry.
type Client struct {
	url        string
	httpClient *http.Client

	// Authentication
	username string
	password string

	idSize        int
	compatibility Compatibility

	cache *Cache

	// fetches coalesces concurrent cache misses for the same schema ID.
	fetches singleflight.Group

	// configured records subjects whose compatibility mode was already set.
	configured sync.Map

	logger   Logger
	observer observability.Observer
}

// NewClient creates a new schema registry client
// Returns the concrete *Client type.
func NewClient(config Config) (*Client, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	return &Client{
		url: strings.TrimRight(config.URL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		username:      config.Username,
		password:      config.Password,
		idSize:        config.SchemaIDSize,
		compatibility: config.Compatibility,
		cache:         config.Cache,
		logger:        config.Logger,
	}, nil
}

// WithObserver attaches an observer that is notified after every registry
// operation. It returns the client for chaining.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// SchemaIDSize returns the configured byte width of schema IDs.
func (c *Client) SchemaIDSize() int {
	return c.idSize
}

// Cache returns the cache backing this client.
func (c *Client) Cache() *Cache {
	return c.cache
}

// GetSchemaByID retrieves a schema from the registry by its ID.
// Results are cached for the lifetime of the client.
func (c *Client) GetSchemaByID(ctx context.Context, id int) (string, error) {
	start := time.Now()

	if schema, ok := c.cache.Schema(id); ok {
		c.observeOperation("get_schema", "", strconv.Itoa(id), time.Since(start), nil, int64(len(schema)),
			map[string]interface{}{"cache_hit": true})
		return schema, nil
	}

	c.debug("Fetching schema from registry", nil, map[string]interface{}{"schema_id": id})

	// The shared fetch is bounded by the HTTP client timeout, not by any one
	// caller's context; each caller stops waiting when its own ctx is done.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.fetches.DoChan(strconv.Itoa(id), func() (interface{}, error) {
		var result struct {
			Schema string `json:"schema"`
		}
		if err := c.do(flightCtx, http.MethodGet, fmt.Sprintf("/schemas/ids/%d", id), nil, &result); err != nil {
			return "", err
		}
		return c.cache.StoreSchema(id, result.Schema), nil
	})

	var (
		schema string
		err    error
	)
	select {
	case res := <-ch:
		schema, _ = res.Val.(string)
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.observeOperation("get_schema", "", strconv.Itoa(id), time.Since(start), err, int64(len(schema)),
		map[string]interface{}{"cache_hit": false})

	if err != nil {
		c.warn("Failed to fetch schema", err, map[string]interface{}{"schema_id": id})
		return "", fmt.Errorf("failed to fetch schema %d: %w", id, err)
	}
	return schema, nil
}

// GetLatestSchema retrieves the latest version of a schema for a subject
func (c *Client) GetLatestSchema(ctx context.Context, subject string) (*Metadata, error) {
	start := time.Now()

	var metadata Metadata
	err := c.do(ctx, http.MethodGet, subjectPath(subject)+"/versions/latest", nil, &metadata)
	c.observeOperation("get_latest_schema", subject, "", time.Since(start), err, int64(len(metadata.Schema)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest schema for subject %q: %w", subject, err)
	}

	metadata.Subject = subject
	if metadata.Type == "" {
		metadata.Type = SchemaTypeAvro
	}

	c.cache.StoreSchema(metadata.ID, metadata.Schema)
	c.cache.StoreID(subject, metadata.Type, normalizeSchema(metadata.Schema), metadata.ID)

	return &metadata, nil
}

// RegisterSchema registers a schema with the schema registry and returns its
// ID. Registering a schema that is already registered under the subject
// returns the existing ID; repeated calls are answered from the cache.
//
// A schema rejected by the subject's compatibility policy yields an
// *IncompatibleSchemaError. Transport failures yield ErrRegistryUnavailable.
func (c *Client) RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error) {
	if schemaType == "" {
		schemaType = SchemaTypeAvro
	}
	normalized := normalizeSchema(schema)

	start := time.Now()
	if id, ok := c.cache.ID(subject, schemaType, normalized); ok {
		c.observeOperation("register_schema", subject, strconv.Itoa(id), time.Since(start), nil, int64(len(schema)),
			map[string]interface{}{"cache_hit": true})
		return id, nil
	}

	id, err := c.register(ctx, subject, schema, schemaType)
	if err == nil {
		id = c.cache.StoreID(subject, schemaType, normalized, id)
		c.cache.StoreSchema(id, schema)
	}

	c.observeOperation("register_schema", subject, strconv.Itoa(id), time.Since(start), err, int64(len(schema)),
		map[string]interface{}{"cache_hit": false})

	if err != nil {
		c.warn("Failed to register schema", err, map[string]interface{}{"subject": subject})
		return 0, err
	}

	c.info("Registered schema", nil, map[string]interface{}{
		"subject":   subject,
		"schema_id": id,
	})
	return id, nil
}

func (c *Client) register(ctx context.Context, subject, schema, schemaType string) (int, error) {
	if err := c.ensureCompatibility(ctx, subject); err != nil {
		return 0, err
	}

	payload := map[string]interface{}{
		"schema": schema,
	}
	if schemaType != SchemaTypeAvro {
		payload["schemaType"] = schemaType
	}

	var result struct {
		ID int `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, subjectPath(subject)+"/versions", payload, &result)
	if errors.Is(err, ErrIncompatibleSchema) {
		return 0, c.incompatibleError(ctx, subject, schema, schemaType, err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to register schema for subject %q: %w", subject, err)
	}
	return result.ID, nil
}

// incompatibleError collects diagnostics for a rejected registration. The
// extra lookups are best effort and never replace the original failure.
func (c *Client) incompatibleError(ctx context.Context, subject, schema, schemaType string, cause error) error {
	incompatible := &IncompatibleSchemaError{
		Subject: subject,
		Schema:  schema,
		Err:     cause,
	}

	if latest, err := c.GetLatestSchema(ctx, subject); err == nil {
		incompatible.Conflicting = latest.Schema
		incompatible.ConflictingID = latest.ID
		incompatible.ConflictingVersion = latest.Version
	}
	if _, messages, err := c.checkCompatibility(ctx, subject, schema, schemaType); err == nil {
		incompatible.Messages = messages
	}

	return incompatible
}

// CheckCompatibility checks if a schema is compatible with the existing schema for a subject.
// A subject without any versions accepts every schema.
func (c *Client) CheckCompatibility(ctx context.Context, subject, schema, schemaType string) (bool, error) {
	start := time.Now()
	compatible, _, err := c.checkCompatibility(ctx, subject, schema, schemaType)
	c.observeOperation("check_compatibility", subject, "", time.Since(start), err, int64(len(schema)),
		map[string]interface{}{"compatible": compatible})
	return compatible, err
}

func (c *Client) checkCompatibility(ctx context.Context, subject, schema, schemaType string) (bool, []string, error) {
	payload := map[string]interface{}{
		"schema": schema,
	}
	if schemaType != "" && schemaType != SchemaTypeAvro {
		payload["schemaType"] = schemaType
	}

	var result struct {
		IsCompatible bool     `json:"is_compatible"`
		Messages     []string `json:"messages"`
	}
	err := c.do(ctx, http.MethodPost, "/compatibility"+subjectPath(subject)+"/versions/latest?verbose=true", payload, &result)
	if errors.Is(err, ErrSubjectNotFound) {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check compatibility for subject %q: %w", subject, err)
	}
	return result.IsCompatible, result.Messages, nil
}

// GetCompatibility returns the compatibility mode in effect for subject,
// falling back to the registry's global mode.
func (c *Client) GetCompatibility(ctx context.Context, subject string) (Compatibility, error) {
	var result struct {
		CompatibilityLevel Compatibility `json:"compatibilityLevel"`
	}
	if err := c.do(ctx, http.MethodGet, "/config/"+url.PathEscape(subject)+"?defaultToGlobal=true", nil, &result); err != nil {
		return "", fmt.Errorf("failed to get compatibility for subject %q: %w", subject, err)
	}
	return result.CompatibilityLevel, nil
}

// SetCompatibility sets the compatibility mode for subject.
func (c *Client) SetCompatibility(ctx context.Context, subject string, mode Compatibility) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown compatibility mode %q", mode)
	}

	payload := map[string]interface{}{
		"compatibility": mode,
	}
	if err := c.do(ctx, http.MethodPut, "/config/"+url.PathEscape(subject), payload, nil); err != nil {
		return fmt.Errorf("failed to set compatibility for subject %q: %w", subject, err)
	}
	return nil
}

// ensureCompatibility applies the configured mode to subject once per client.
func (c *Client) ensureCompatibility(ctx context.Context, subject string) error {
	if c.compatibility == "" {
		return nil
	}
	if _, ok := c.configured.Load(subject); ok {
		return nil
	}
	if err := c.SetCompatibility(ctx, subject, c.compatibility); err != nil {
		return err
	}
	c.configured.Store(subject, struct{}{})
	return nil
}

// do performs one registry call. Non-2xx answers become *RegistryError and
// transport failures are wrapped with ErrRegistryUnavailable.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", contentType)
	if in != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRegistryError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func newRegistryError(resp *http.Response) *RegistryError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		ErrorCode int    `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}

	return &RegistryError{
		Kind:       classifyStatus(resp.StatusCode, body.ErrorCode),
		StatusCode: resp.StatusCode,
		ErrorCode:  body.ErrorCode,
		Message:    body.Message,
	}
}

func subjectPath(subject string) string {
	return "/subjects/" + url.PathEscape(subject)
}

// normalizeSchema strips insignificant whitespace so that the same schema
// written with different formatting shares one cache entry.
func normalizeSchema(schema string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(schema)); err != nil {
		return strings.TrimSpace(schema)
	}
	return buf.String()
}

func (c *Client) debug(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, err, fields)
	}
}

func (c *Client) info(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, err, fields)
	}
}

func (c *Client) warn(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, err, fields)
	}
}
