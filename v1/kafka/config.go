package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultMinBytes       = 1
	DefaultMaxBytes       = 10e6
	DefaultMaxWait        = 500 * time.Millisecond
	DefaultCommitInterval = time.Second
	DefaultStartOffset    = kafka.FirstOffset
	DefaultPartition      = -1
	DefaultRequiredAcks   = kafka.RequireAll
	DefaultBatchSize      = 100
	DefaultBatchTimeout   = time.Second
	DefaultMaxAttempts    = 10
	DefaultWriteTimeout   = 10 * time.Second

	DefaultRetryMaxRetries      = 5
	DefaultRetryInitialInterval = 100 * time.Millisecond
	DefaultRetryMaxInterval     = 2 * time.Second
)

// Logger is the logging contract used by the kafka client.
// *logger.LoggerClient satisfies it.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Config defines the configuration for a Kafka client bound to one topic.
type Config struct {
	// Brokers is the list of bootstrap brokers.
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`

	// Topic is the topic the client produces to or consumes from. It must
	// match the topic of the serde passed to NewClient.
	Topic string `yaml:"topic" envconfig:"KAFKA_TOPIC"`

	// IsConsumer selects a reader instead of a writer.
	IsConsumer bool `yaml:"is_consumer" envconfig:"KAFKA_IS_CONSUMER"`

	// AvroKeys serializes record keys with the key serde. When false keys
	// are written and read as raw bytes.
	AvroKeys bool `yaml:"avro_keys" envconfig:"KAFKA_AVRO_KEYS"`

	// Consumer settings

	GroupID          string        `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`
	Partition        int           `yaml:"partition" envconfig:"KAFKA_PARTITION"`
	MinBytes         int           `yaml:"min_bytes" envconfig:"KAFKA_MIN_BYTES"`
	MaxBytes         int           `yaml:"max_bytes" envconfig:"KAFKA_MAX_BYTES"`
	MaxWait          time.Duration `yaml:"max_wait" envconfig:"KAFKA_MAX_WAIT"`
	StartOffset      int64         `yaml:"start_offset" envconfig:"KAFKA_START_OFFSET"`
	EnableAutoCommit bool          `yaml:"enable_auto_commit" envconfig:"KAFKA_ENABLE_AUTO_COMMIT"`
	CommitInterval   time.Duration `yaml:"commit_interval" envconfig:"KAFKA_COMMIT_INTERVAL"`

	// Producer settings

	RequiredAcks     kafka.RequiredAcks `yaml:"required_acks" envconfig:"KAFKA_REQUIRED_ACKS"`
	Async            bool               `yaml:"async" envconfig:"KAFKA_ASYNC"`
	BatchSize        int                `yaml:"batch_size" envconfig:"KAFKA_BATCH_SIZE"`
	BatchTimeout     time.Duration      `yaml:"batch_timeout" envconfig:"KAFKA_BATCH_TIMEOUT"`
	MaxAttempts      int                `yaml:"max_attempts" envconfig:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout     time.Duration      `yaml:"write_timeout" envconfig:"KAFKA_WRITE_TIMEOUT"`
	CompressionCodec string             `yaml:"compression_codec" envconfig:"KAFKA_COMPRESSION_CODEC"`

	// RegistryRetry controls how Publish retries serialization while the
	// schema registry is unavailable.
	RegistryRetry RetryConfig `yaml:"registry_retry"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`

	// Logger receives client diagnostics and kafka-go internal errors. Optional.
	Logger Logger `yaml:"-" ignored:"true"`

	// ErrorLogger is used for kafka-go internal errors when Logger is nil.
	ErrorLogger func(msg string, args ...interface{}) `yaml:"-" ignored:"true"`
}

// RetryConfig is an exponential backoff policy.
type RetryConfig struct {
	// MaxRetries bounds the number of retries. Negative disables retrying.
	// Default: 5
	MaxRetries int `yaml:"max_retries" envconfig:"KAFKA_REGISTRY_RETRY_MAX_RETRIES"`

	// Default: 100ms
	InitialInterval time.Duration `yaml:"initial_interval" envconfig:"KAFKA_REGISTRY_RETRY_INITIAL_INTERVAL"`

	// Default: 2s
	MaxInterval time.Duration `yaml:"max_interval" envconfig:"KAFKA_REGISTRY_RETRY_MAX_INTERVAL"`
}

// TLSConfig configures TLS towards the brokers.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"KAFKA_TLS_CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig configures SASL authentication. Mechanism is one of PLAIN,
// SCRAM-SHA-256 or SCRAM-SHA-512.
type SASLConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"KAFKA_SASL_ENABLED"`
	Mechanism string `yaml:"mechanism" envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"KAFKA_SASL_PASSWORD"`
}

func (c *Config) applyDefaults() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}

	if c.MinBytes == 0 {
		c.MinBytes = DefaultMinBytes
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.MaxWait == 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.CommitInterval == 0 {
		c.CommitInterval = DefaultCommitInterval
	}
	if c.StartOffset == 0 {
		c.StartOffset = DefaultStartOffset
	}
	if c.Partition == 0 {
		c.Partition = DefaultPartition
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = DefaultRequiredAcks
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.RegistryRetry.MaxRetries == 0 {
		c.RegistryRetry.MaxRetries = DefaultRetryMaxRetries
	}
	if c.RegistryRetry.InitialInterval == 0 {
		c.RegistryRetry.InitialInterval = DefaultRetryInitialInterval
	}
	if c.RegistryRetry.MaxInterval == 0 {
		c.RegistryRetry.MaxInterval = DefaultRetryMaxInterval
	}

	switch c.CompressionCodec {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("unsupported compression codec %q", c.CompressionCodec)
	}
	return nil
}
