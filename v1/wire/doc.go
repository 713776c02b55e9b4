// Package wire implements the registry framing placed in front of every
// Avro payload:
//
//	byte 0          magic byte, always 0x0
//	bytes 1..N      schema ID, big-endian, N = configured ID size (usually 4)
//	bytes N+1..end  Avro binary payload
//
// Encode and Decode are pure functions. Decode rejects any input that is
// empty, shorter than the header or does not start with the magic byte with
// an error matching ErrMalformedEnvelope.
package wire
