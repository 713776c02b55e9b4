package serde

import (
	"strconv"
	"time"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

func (s *AvroSerde) observeOperation(operation string, schemaID int, duration time.Duration, err error, size int64) {
	if s == nil || s.observer == nil {
		return
	}

	part := "value"
	if s.isKey {
		part = "key"
	}

	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "serde",
		Operation:   operation,
		Resource:    s.subject,
		SubResource: part,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata: map[string]interface{}{
			"schema_id": strconv.Itoa(schemaID),
		},
	})
}
