package serde

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"
)

// toNative converts a plain value tree into the form goavro encodes:
// union members are wrapped as map[branch]value and generic slices and
// maps become []interface{} and map[string]interface{}.
func toNative(t *avroType, v interface{}) (interface{}, error) {
	switch t.kind {
	case "union":
		return unionToNative(t, v)
	case "record":
		rec, ok := asMap(v)
		if !ok {
			return nil, fmt.Errorf("%s: expected a map of field values, got %T", t.fullName, v)
		}
		out := make(map[string]interface{}, len(rec))
		for _, f := range t.fields {
			fv, present := rec[f.name]
			if !present {
				// goavro fills in defaults and reports missing required fields
				continue
			}
			n, err := toNative(f.typ, fv)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.fullName, f.name, err)
			}
			out[f.name] = n
		}
		return out, nil
	case "array":
		items, ok := asSlice(v)
		if !ok {
			return nil, fmt.Errorf("expected a slice, got %T", v)
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			n, err := toNative(t.items, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case "map":
		m, ok := asMap(v)
		if !ok {
			return nil, fmt.Errorf("expected a map, got %T", v)
		}
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			n, err := toNative(t.values, mv)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

func unionToNative(t *avroType, v interface{}) (interface{}, error) {
	branch := selectBranch(t, v)
	if branch == nil {
		return nil, fmt.Errorf("value of type %T matches no union branch", v)
	}
	if branch.kind == "null" {
		return nil, nil
	}
	n, err := toNative(branch, v)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{branch.unionKey(): n}, nil
}

// selectBranch picks the first union member, in schema order, that can hold v.
func selectBranch(t *avroType, v interface{}) *avroType {
	for _, b := range t.branches {
		if accepts(b, v) {
			return b
		}
	}
	return nil
}

func accepts(t *avroType, v interface{}) bool {
	if v == nil {
		return t.kind == "null"
	}

	switch t.kind {
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "int", "long":
		switch v.(type) {
		case time.Time:
			return t.logical == "timestamp-millis" || t.logical == "timestamp-micros" || t.logical == "date"
		case time.Duration:
			return t.logical == "time-millis" || t.logical == "time-micros"
		}
		if t.kind == "int" {
			return fitsInt(v, math.MinInt32, math.MaxInt32)
		}
		return fitsInt(v, math.MinInt64, math.MaxInt64)
	case "float", "double":
		return isInteger(v) || isFloat(v)
	case "string":
		_, ok := v.(string)
		return ok
	case "bytes":
		if _, ok := v.(*big.Rat); ok {
			return t.logical == "decimal"
		}
		_, ok := v.([]byte)
		return ok
	case "fixed":
		b, ok := v.([]byte)
		return ok && len(b) == t.size
	case "enum":
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, sym := range t.symbols {
			if sym == s {
				return true
			}
		}
		return false
	case "array":
		_, ok := asSlice(v)
		return ok
	case "map":
		_, ok := asMap(v)
		return ok
	case "record":
		rec, ok := asMap(v)
		if !ok {
			return false
		}
		return recordShapeMatches(t, rec)
	}
	return false
}

// recordShapeMatches reports whether rec has no unknown keys and carries
// every field that has no default.
func recordShapeMatches(t *avroType, rec map[string]interface{}) bool {
	known := make(map[string]bool, len(t.fields))
	for _, f := range t.fields {
		known[f.name] = true
		if _, ok := rec[f.name]; !ok && !f.hasDefault {
			return false
		}
	}
	for k := range rec {
		if !known[k] {
			return false
		}
	}
	return true
}

// fromNative converts goavro's decoded form into a plain value tree,
// unwrapping union members.
func fromNative(t *avroType, v interface{}) (interface{}, error) {
	switch t.kind {
	case "union":
		if v == nil {
			return nil, nil
		}
		wrapped, ok := v.(map[string]interface{})
		if !ok || len(wrapped) != 1 {
			return nil, fmt.Errorf("malformed union value %T", v)
		}
		for key, inner := range wrapped {
			for _, b := range t.branches {
				if b.unionKey() == key {
					return fromNative(b, inner)
				}
			}
			return nil, fmt.Errorf("union member %q not in schema", key)
		}
		return nil, nil
	case "record":
		rec, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: expected record, got %T", t.fullName, v)
		}
		out := make(map[string]interface{}, len(rec))
		for _, f := range t.fields {
			fv, present := rec[f.name]
			if !present {
				continue
			}
			p, err := fromNative(f.typ, fv)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.fullName, f.name, err)
			}
			out[f.name] = p
		}
		return out, nil
	case "array":
		items, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			p, err := fromNative(t.items, item)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case "map":
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected map, got %T", v)
		}
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			p, err := fromNative(t.values, mv)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	default:
		return v, nil
	}
}

func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// fitsInt reports whether v is a Go integer within [lo, hi].
func fitsInt(v interface{}, lo, hi int64) bool {
	switch n := v.(type) {
	case int:
		return int64(n) >= lo && int64(n) <= hi
	case int8:
		return int64(n) >= lo && int64(n) <= hi
	case int16:
		return int64(n) >= lo && int64(n) <= hi
	case int32:
		return int64(n) >= lo && int64(n) <= hi
	case int64:
		return n >= lo && n <= hi
	case uint:
		return uint64(n) <= uint64(hi)
	case uint8:
		return uint64(n) <= uint64(hi)
	case uint16:
		return uint64(n) <= uint64(hi)
	case uint32:
		return uint64(n) <= uint64(hi)
	case uint64:
		return n <= uint64(hi)
	}
	return false
}

func isFloat(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	if m, ok := v.(map[string]interface{}); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(v interface{}) ([]interface{}, bool) {
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
