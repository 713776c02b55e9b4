package schema_registry

import (
	"fmt"
	"time"

	"github.com/Aleph-Alpha/avrokafka/v1/wire"
)

const (
	// DefaultTimeout bounds every HTTP request to the registry.
	DefaultTimeout = 10 * time.Second

	// DefaultSchemaIDSize is the width of schema IDs on the wire.
	DefaultSchemaIDSize = wire.DefaultIDSize
)

// Logger is the logging contract used by the client.
// *logger.LoggerClient satisfies it.
//
//go:generate mockgen -source=config.go -destination=mock_logger.go -package=schema_registry
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Config holds configuration for schema registry client
type Config struct {
	// URL is the schema registry endpoint (e.g., "http://localhost:8081")
	URL string `yaml:"url" envconfig:"SCHEMA_REGISTRY_URL"`

	// Username for basic auth (optional)
	Username string `yaml:"username" envconfig:"SCHEMA_REGISTRY_USER"`

	// Password for basic auth (optional)
	Password string `yaml:"password" envconfig:"SCHEMA_REGISTRY_PASSWORD"`

	// Timeout for HTTP requests
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" envconfig:"SCHEMA_REGISTRY_TIMEOUT"`

	// SchemaIDSize is the byte width of schema IDs in framed payloads.
	// It is fixed for the lifetime of the client.
	// Default: 4
	SchemaIDSize int `yaml:"schema_id_size" envconfig:"SCHEMA_REGISTRY_ID_SIZE"`

	// Compatibility, when set, is applied to every subject before the client
	// registers its first schema there. Leave empty to keep whatever policy
	// the registry already enforces.
	Compatibility Compatibility `yaml:"compatibility" envconfig:"SCHEMA_REGISTRY_COMPATIBILITY"`

	// Cache lets several clients share learned mappings. A private cache is
	// created when nil.
	Cache *Cache `yaml:"-" ignored:"true"`

	// Logger receives client diagnostics. Optional.
	Logger Logger `yaml:"-" ignored:"true"`
}

func (c *Config) applyDefaults() error {
	if c.URL == "" {
		return fmt.Errorf("schema registry URL is required")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SchemaIDSize == 0 {
		c.SchemaIDSize = DefaultSchemaIDSize
	}
	if !wire.ValidIDSize(c.SchemaIDSize) {
		return fmt.Errorf("schema id size must be between 1 and %d, got %d", wire.MaxIDSize, c.SchemaIDSize)
	}
	if c.Compatibility != "" && !c.Compatibility.Valid() {
		return fmt.Errorf("unknown compatibility mode %q", c.Compatibility)
	}
	if c.Cache == nil {
		c.Cache = NewCache()
	}
	return nil
}
