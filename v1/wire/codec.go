package wire

import (
	"errors"
	"fmt"
)

// MagicByte marks a payload as registry-framed.
const MagicByte byte = 0x0

// DefaultIDSize is the schema ID width used by Confluent-compatible registries.
const DefaultIDSize = 4

// MaxIDSize is the widest schema ID that fits in a uint64.
const MaxIDSize = 8

var (
	// ErrMalformedEnvelope is returned when data cannot be parsed as a framed payload.
	ErrMalformedEnvelope = errors.New("wire: malformed envelope")

	// ErrInvalidIDSize is returned for an ID size outside 1..MaxIDSize.
	ErrInvalidIDSize = errors.New("wire: invalid schema id size")

	// ErrIDOverflow is returned when a schema ID does not fit in the ID size.
	ErrIDOverflow = errors.New("wire: schema id does not fit in id size")
)

// HeaderSize returns the number of bytes before the payload.
func HeaderSize(idSize int) int {
	return 1 + idSize
}

// ValidIDSize reports whether idSize can be used for framing.
func ValidIDSize(idSize int) bool {
	return idSize >= 1 && idSize <= MaxIDSize
}

// Encode frames payload with the magic byte and id written big-endian in
// exactly idSize bytes. The payload is copied verbatim.
func Encode(id uint64, idSize int, payload []byte) ([]byte, error) {
	if !ValidIDSize(idSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIDSize, idSize)
	}
	if idSize < MaxIDSize && id>>(8*uint(idSize)) != 0 {
		return nil, fmt.Errorf("%w: id %d, size %d", ErrIDOverflow, id, idSize)
	}

	buf := make([]byte, HeaderSize(idSize)+len(payload))
	buf[0] = MagicByte
	putUint(buf[1:HeaderSize(idSize)], id)
	copy(buf[HeaderSize(idSize):], payload)
	return buf, nil
}

// Decode splits a framed payload into schema id and Avro bytes.
// The returned payload aliases data.
func Decode(data []byte, idSize int) (uint64, []byte, error) {
	if !ValidIDSize(idSize) {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidIDSize, idSize)
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: no data", ErrMalformedEnvelope)
	}
	if len(data) < HeaderSize(idSize) {
		return 0, nil, fmt.Errorf("%w: expected at least %d bytes, got %d",
			ErrMalformedEnvelope, HeaderSize(idSize), len(data))
	}
	if data[0] != MagicByte {
		return 0, nil, fmt.Errorf("%w: invalid magic byte: expected 0x%x, got 0x%x",
			ErrMalformedEnvelope, MagicByte, data[0])
	}

	return getUint(data[1:HeaderSize(idSize)]), data[HeaderSize(idSize):], nil
}

// putUint writes v big-endian into all of b.
func putUint(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
