package kafka

import (
	"context"
	"sync"
)

// Client publishes and consumes Avro records on one topic.
//
// This interface is implemented by the concrete *KafkaClient type.
type Client interface {
	// Publish serializes rec and writes it to the topic.
	Publish(ctx context.Context, rec Record) error

	// Consume starts reading the topic. The channel is closed when ctx is
	// cancelled or the client shuts down.
	Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message

	// GracefulShutdown closes the underlying writer and reader.
	GracefulShutdown()
}

// Record is a message to publish.
type Record struct {
	// Key is the record key. With Config.AvroKeys it is a plain value tree
	// encoded with KeySchema; otherwise it must be a string or []byte.
	// Nil leaves the key empty.
	Key       interface{}
	KeySchema string

	// Value is a plain value tree encoded with ValueSchema. A nil Value
	// with an empty ValueSchema produces a tombstone.
	Value       interface{}
	ValueSchema string

	// Headers are attached to the message alongside any trace context.
	Headers map[string]string
}

// Message is a consumed record.
type Message interface {
	// Key returns the decoded key: a plain value tree with Config.AvroKeys,
	// raw []byte otherwise.
	Key() interface{}

	// Value returns the decoded value, nil for tombstones or when Err is set.
	Value() interface{}

	// Body returns the raw framed value bytes.
	Body() []byte

	// Header returns the message headers.
	Header() map[string]string

	// Err reports why the key or value could not be decoded. The message is
	// still delivered so the caller can commit or dead-letter it.
	Err() error

	// Context carries the trace context found in the headers.
	Context() context.Context

	Partition() int
	Offset() int64

	// CommitMsg commits the message offset for the consumer group.
	CommitMsg() error
}

var _ Client = (*KafkaClient)(nil)
