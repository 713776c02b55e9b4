/*
Package serde turns plain Go values into registry-framed Avro bytes and back.

An AvroKeyValueSerde is bound to one topic and one schema_registry.Registry.
Its Key and Value fields serialize the two halves of a record under the
subjects "<topic>-key" and "<topic>-value".

# Serializing

	kv, err := serde.NewAvroKeyValueSerde(registry, serde.Config{Topic: "employees"})
	if err != nil {
	    return err
	}

	data, err := kv.Value.Serialize(ctx, map[string]interface{}{
	    "name": "Ada",
	    "age":  int32(36),
	}, employeeSchema)

Serialize registers the schema (a no-op after the first call for the same
subject and schema), encodes the value with goavro and prefixes the payload
with the magic byte and the schema ID:

	+------+----------------------+--------------------+
	| 0x00 | schema ID (BE, 4 B)  | Avro binary datum  |
	+------+----------------------+--------------------+

# Deserializing

	value, err := kv.Value.Deserialize(ctx, data)

The schema is looked up by the ID in the header, so a consumer reads every
record with exactly the schema it was written with.

# Values

Records and maps are map[string]interface{}, arrays are slices, and union
values are passed bare; the serde picks the first union member that can hold
the value. Logical types accept time.Time, time.Duration and *big.Rat.
Deserialize returns the same shapes with unions already unwrapped.

# Errors

	_, err := kv.Value.Serialize(ctx, v, schemaV2)
	switch {
	case serde.IsIncompatibleSchema(err):
	    // the registry refused the schema; nothing was produced
	case serde.IsRetryable(err):
	    // registry unreachable, try again later
	case serde.IsSerializerError(err):
	    // v does not match the schema
	}

Deserialize failures are always *SerializerError; IsMalformedEnvelope and
IsSchemaNotFound see through it.
*/
package serde
