package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
	"github.com/Aleph-Alpha/avrokafka/v1/serde"
	"github.com/Aleph-Alpha/avrokafka/v1/tracer"
)

// messageWriter is the part of *kafka.Writer the client uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader is the part of *kafka.Reader the client uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaClient publishes and consumes Avro records on one topic. Values (and,
// with Config.AvroKeys, keys) go through a serde.AvroKeyValueSerde, so every
// message carries the ID of the schema it was written with.
//
// KafkaClient implements the Client interface.
type KafkaClient struct {
	cfg   Config
	codec *serde.AvroKeyValueSerde

	observer observability.Observer
	tracer   *tracer.Tracer

	writer messageWriter
	reader messageReader

	// mu protects writer and reader against concurrent shutdown
	mu sync.RWMutex

	// shutdownSignal is closed when the client is being shut down
	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewClient creates a producer or, with cfg.IsConsumer, a consumer for
// cfg.Topic that encodes records with codec.
//
// TLS and SASL are configured from cfg before the writer or reader is
// created. The serde must be bound to the same topic as the client.
//
// Parameters:
//   - cfg: Broker, topic, security and retry settings; defaults are applied
//   - codec: The key/value serde used for every published and consumed message
//
// Returns:
//   - *KafkaClient: A producer, or a consumer when cfg.IsConsumer is set
//   - error: Invalid configuration, a nil or mismatched serde, or TLS/SASL setup failures
//
// Example:
//
//	kv, _ := serde.NewAvroKeyValueSerde(registry, serde.Config{Topic: "employees"})
//	client, err := kafka.NewClient(kafka.Config{
//		Brokers: []string{"localhost:9092"},
//		Topic:   "employees",
//	}, kv)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
func NewClient(cfg Config, codec *serde.AvroKeyValueSerde) (*KafkaClient, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, fmt.Errorf("serde is required")
	}
	if codec.Topic() != cfg.Topic {
		return nil, fmt.Errorf("serde is bound to topic %q, client to %q", codec.Topic(), cfg.Topic)
	}

	k := &KafkaClient{
		cfg:            cfg,
		codec:          codec,
		shutdownSignal: make(chan struct{}),
	}

	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
	}

	if cfg.IsConsumer {
		k.reader = createReader(cfg, tlsConfig, mechanism)
		k.logInfo("Kafka consumer initialized", map[string]interface{}{"topic": cfg.Topic, "group_id": cfg.GroupID})
	} else {
		k.writer = createWriter(cfg, tlsConfig, mechanism)
		k.logInfo("Kafka producer initialized", map[string]interface{}{"topic": cfg.Topic})
	}

	return k, nil
}

// WithObserver attaches an observer that is notified of every publish,
// consume and commit. It returns the client for chaining.
//
// Parameters:
//   - observer: Receives one OperationContext per operation; nil disables observation
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{Namespace: "employees"})
//	client, err := kafka.NewClient(cfg, kv)
//	if err != nil {
//		return err
//	}
//	client = client.WithObserver(m)
func (k *KafkaClient) WithObserver(observer observability.Observer) *KafkaClient {
	k.observer = observer
	return k
}

// WithTracer makes the client start a span per published and consumed
// message and carry the trace context in message headers.
//
// Parameters:
//   - t: The tracer used for producer and consumer spans; nil disables tracing
//
// Example:
//
//	tr, _ := tracer.NewClient(tracer.Config{ServiceName: "employee-events"}, nil)
//	client = client.WithTracer(tr)
//
//	// consumers see the producer's trace through msg.Context()
func (k *KafkaClient) WithTracer(t *tracer.Tracer) *KafkaClient {
	k.tracer = t
	return k
}

// Config returns the effective configuration, defaults applied.
func (k *KafkaClient) Config() Config {
	return k.cfg
}

// GracefulShutdown stops running consumers and closes the writer or reader.
// It is safe to call more than once. Publish after shutdown returns
// ErrClientClosed and Consume channels are closed.
//
// Example:
//
//	client, err := kafka.NewClient(cfg, kv)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
func (k *KafkaClient) GracefulShutdown() {
	k.closeShutdownOnce.Do(func() {
		close(k.shutdownSignal)
	})

	k.mu.Lock()
	defer k.mu.Unlock()

	k.logInfo("Shutting down Kafka client", map[string]interface{}{"topic": k.cfg.Topic})

	if k.writer != nil {
		if err := k.writer.Close(); err != nil {
			k.logWarn("Failed to close kafka writer", err, nil)
		}
		k.writer = nil
	}
	if k.reader != nil {
		if err := k.reader.Close(); err != nil {
			k.logWarn("Failed to close kafka reader", err, nil)
		}
		k.reader = nil
	}
}

// createErrorLogger routes kafka-go internal errors to the configured logger.
func createErrorLogger(cfg Config) kafka.LoggerFunc {
	if cfg.Logger != nil {
		return kafka.LoggerFunc(func(msg string, args ...interface{}) {
			formattedMsg := msg
			if len(args) > 0 {
				formattedMsg = fmt.Sprintf(msg, args...)
			}
			cfg.Logger.Error("Kafka internal error", nil, map[string]interface{}{
				"error": formattedMsg,
			})
		})
	}

	if cfg.ErrorLogger != nil {
		return kafka.LoggerFunc(cfg.ErrorLogger)
	}

	return kafka.LoggerFunc(func(msg string, args ...interface{}) {
		log.Printf("KAFKA ERROR: "+msg, args...)
	})
}

func createWriter(cfg Config, tlsConfig *tls.Config, mechanism sasl.Mechanism) *kafka.Writer {
	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: int(cfg.RequiredAcks),
		ErrorLogger:  createErrorLogger(cfg),
	}

	if cfg.Async {
		writerConfig.Async = true
		writerConfig.BatchSize = cfg.BatchSize
		writerConfig.BatchTimeout = cfg.BatchTimeout
	}

	switch cfg.CompressionCodec {
	case "gzip":
		writerConfig.CompressionCodec = &compress.GzipCodec
	case "snappy":
		writerConfig.CompressionCodec = &compress.SnappyCodec
	case "lz4":
		writerConfig.CompressionCodec = &compress.Lz4Codec
	case "zstd":
		writerConfig.CompressionCodec = &compress.ZstdCodec
	}

	writerConfig.Dialer = &kafka.Dialer{
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}

	return kafka.NewWriter(writerConfig)
}

func createReader(cfg Config, tlsConfig *tls.Config, mechanism sasl.Mechanism) *kafka.Reader {
	readerConfig := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
		ErrorLogger: createErrorLogger(cfg),
	}

	// CommitInterval 0 makes CommitMessages synchronous
	if cfg.EnableAutoCommit {
		readerConfig.CommitInterval = cfg.CommitInterval
	}

	// kafka-go rejects a partition together with a group
	if cfg.Partition != -1 && cfg.GroupID == "" {
		readerConfig.Partition = cfg.Partition
	}

	readerConfig.Dialer = &kafka.Dialer{
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}

	return kafka.NewReader(readerConfig)
}

func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
