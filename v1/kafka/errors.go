package kafka

import "errors"

var (
	// ErrClientClosed is returned once GracefulShutdown has run.
	ErrClientClosed = errors.New("kafka: client is shut down")

	// ErrNotProducer is returned by Publish on a consumer client.
	ErrNotProducer = errors.New("kafka: client is not configured as a producer")

	// ErrInvalidKey is returned when a raw key is neither string nor []byte.
	ErrInvalidKey = errors.New("kafka: raw keys must be string or []byte")
)
