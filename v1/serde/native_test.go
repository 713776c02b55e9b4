package serde

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderSchema = `{
	"type": "record",
	"name": "Order",
	"namespace": "shop",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "note", "type": ["null", "string"], "default": null},
		{"name": "status", "type": {"type": "enum", "name": "Status", "symbols": ["OPEN", "CLOSED"]}},
		{"name": "lines", "type": {"type": "array", "items": {
			"type": "record",
			"name": "Line",
			"fields": [
				{"name": "sku", "type": "string"},
				{"name": "qty", "type": "int"}
			]
		}}},
		{"name": "tags", "type": {"type": "map", "values": "long"}},
		{"name": "shipping", "type": ["null", {
			"type": "record",
			"name": "Address",
			"fields": [{"name": "city", "type": "string"}]
		}]},
		{"name": "amount", "type": ["null", "long", "double"]},
		{"name": "digest", "type": {"type": "fixed", "name": "MD5", "size": 4}}
	]
}`

func roundTrip(t *testing.T, schema string, in interface{}) interface{} {
	t.Helper()
	compiled, err := (&codecCache{}).get(schema)
	require.NoError(t, err)

	native, err := toNative(compiled.root, in)
	require.NoError(t, err)
	binary, err := compiled.codec.BinaryFromNative(nil, native)
	require.NoError(t, err)

	decoded, rest, err := compiled.codec.NativeFromBinary(binary)
	require.NoError(t, err)
	require.Empty(t, rest)

	out, err := fromNative(compiled.root, decoded)
	require.NoError(t, err)
	return out
}

func TestNestedRecordRoundTrip(t *testing.T) {
	in := map[string]interface{}{
		"id":     int64(7),
		"note":   "leave at the door",
		"status": "OPEN",
		"lines": []interface{}{
			map[string]interface{}{"sku": "A-1", "qty": int32(2)},
			map[string]interface{}{"sku": "B-9", "qty": int32(1)},
		},
		"tags":     map[string]interface{}{"priority": int64(3)},
		"shipping": map[string]interface{}{"city": "Heidelberg"},
		"amount":   float64(19.99),
		"digest":   []byte{1, 2, 3, 4},
	}

	assert.Equal(t, in, roundTrip(t, orderSchema, in))
}

func TestNullUnionMembers(t *testing.T) {
	in := map[string]interface{}{
		"id":       int64(8),
		"note":     nil,
		"status":   "CLOSED",
		"lines":    []interface{}{},
		"tags":     map[string]interface{}{},
		"shipping": nil,
		"amount":   int64(20),
		"digest":   []byte{0, 0, 0, 0},
	}

	assert.Equal(t, in, roundTrip(t, orderSchema, in))
}

func TestUnionPicksFirstMatchingBranch(t *testing.T) {
	compiled, err := (&codecCache{}).get(`["null", "long", "double", "string"]`)
	require.NoError(t, err)

	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"null", nil, nil},
		{"integer goes to long", 42, map[string]interface{}{"long": 42}},
		{"float goes to double", 1.5, map[string]interface{}{"double": 1.5}},
		{"string", "x", map[string]interface{}{"string": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toNative(compiled.root, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = toNative(compiled.root, true)
	assert.Error(t, err)
}

func TestUnionIntegerBranchByRange(t *testing.T) {
	compiled, err := (&codecCache{}).get(`["null", "int", "long"]`)
	require.NoError(t, err)

	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"small int64 goes to int", int64(7), map[string]interface{}{"int": int64(7)}},
		{"int64 beyond int32 goes to long", int64(1) << 40, map[string]interface{}{"long": int64(1) << 40}},
		{"negative beyond int32 goes to long", int64(math.MinInt32) - 1, map[string]interface{}{"long": int64(math.MinInt32) - 1}},
		{"uint32 beyond int32 goes to long", uint32(math.MaxUint32), map[string]interface{}{"long": uint32(math.MaxUint32)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toNative(compiled.root, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = toNative(compiled.root, uint64(math.MaxUint64))
	assert.Error(t, err)

	schema := `{"type": "record", "name": "Counter", "fields": [{"name": "n", "type": ["null", "int", "long"]}]}`
	in := map[string]interface{}{"n": int64(1) << 40}
	assert.Equal(t, in, roundTrip(t, schema, in))
}

func TestUUIDInUnion(t *testing.T) {
	schema := `{
		"type": "record",
		"name": "Tagged",
		"fields": [
			{"name": "ref", "type": ["null", {"type": "string", "logicalType": "uuid"}]}
		]
	}`

	in := map[string]interface{}{"ref": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	assert.Equal(t, in, roundTrip(t, schema, in))

	none := map[string]interface{}{"ref": nil}
	assert.Equal(t, none, roundTrip(t, schema, none))
}

func TestUnionOfRecordsUsesShape(t *testing.T) {
	schema := `[
		{"type": "record", "name": "Cat", "namespace": "pets", "fields": [{"name": "lives", "type": "int"}]},
		{"type": "record", "name": "Dog", "namespace": "pets", "fields": [{"name": "tricks", "type": {"type": "array", "items": "string"}}]}
	]`
	compiled, err := (&codecCache{}).get(schema)
	require.NoError(t, err)

	got, err := toNative(compiled.root, map[string]interface{}{"tricks": []string{"sit"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"pets.Dog": map[string]interface{}{"tricks": []interface{}{"sit"}},
	}, got)

	dog := map[string]interface{}{"tricks": []interface{}{"sit", "roll"}}
	assert.Equal(t, dog, roundTrip(t, schema, dog))
}

func TestRecursiveSchema(t *testing.T) {
	schema := `{
		"type": "record",
		"name": "Node",
		"fields": [
			{"name": "value", "type": "int"},
			{"name": "next", "type": ["null", "Node"]}
		]
	}`
	in := map[string]interface{}{
		"value": int32(1),
		"next": map[string]interface{}{
			"value": int32(2),
			"next":  nil,
		},
	}

	assert.Equal(t, in, roundTrip(t, schema, in))
}

func TestLogicalTypeInUnion(t *testing.T) {
	schema := `{
		"type": "record",
		"name": "Event",
		"fields": [
			{"name": "at", "type": ["null", {"type": "long", "logicalType": "timestamp-millis"}]}
		]
	}`
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	out := roundTrip(t, schema, map[string]interface{}{"at": at})
	rec, ok := out.(map[string]interface{})
	require.True(t, ok)
	got, ok := rec["at"].(time.Time)
	require.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestTypedGoValuesAreAccepted(t *testing.T) {
	schema := `{
		"type": "record",
		"name": "Bag",
		"fields": [
			{"name": "counts", "type": {"type": "map", "values": "int"}},
			{"name": "names", "type": {"type": "array", "items": "string"}}
		]
	}`
	in := map[string]interface{}{
		"counts": map[string]int32{"a": 1},
		"names":  []string{"x", "y"},
	}
	want := map[string]interface{}{
		"counts": map[string]interface{}{"a": int32(1)},
		"names":  []interface{}{"x", "y"},
	}

	assert.Equal(t, want, roundTrip(t, schema, in))
}

func TestRecordRejectsNonMap(t *testing.T) {
	compiled, err := (&codecCache{}).get(employeeSchema)
	require.NoError(t, err)

	_, err = toNative(compiled.root, "not a record")
	assert.Error(t, err)
}
