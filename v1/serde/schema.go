package serde

import (
	"encoding/json"
	"fmt"
	"strings"
)

// avroType is the subset of a parsed Avro schema needed to move between
// plain values and goavro's native form, which wraps union members.
type avroType struct {
	kind     string
	fullName string
	logical  string

	fields   []avroField
	symbols  []string
	size     int
	items    *avroType
	values   *avroType
	branches []*avroType
}

type avroField struct {
	name       string
	typ        *avroType
	hasDefault bool
}

var primitiveKinds = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

// unionKeyLogical lists the logical types goavro names "<kind>.<logical>"
// inside unions.
var unionKeyLogical = map[string]bool{
	"int.date":              true,
	"int.time-millis":       true,
	"long.time-micros":      true,
	"long.timestamp-millis": true,
	"long.timestamp-micros": true,
	"bytes.decimal":         true,
}

// unionKey is the name goavro uses for t as a union member.
func (t *avroType) unionKey() string {
	switch {
	case t.fullName != "":
		return t.fullName
	case t.logical != "" && unionKeyLogical[t.kind+"."+t.logical]:
		return t.kind + "." + t.logical
	default:
		return t.kind
	}
}

func parseSchema(schema string) (*avroType, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(schema), &raw); err != nil {
		return nil, fmt.Errorf("schema is not valid JSON: %w", err)
	}
	p := &schemaParser{names: make(map[string]*avroType)}
	return p.parse(raw, "")
}

type schemaParser struct {
	names map[string]*avroType
}

func (p *schemaParser) parse(raw interface{}, namespace string) (*avroType, error) {
	switch v := raw.(type) {
	case string:
		return p.reference(v, namespace)
	case []interface{}:
		union := &avroType{kind: "union"}
		for _, member := range v {
			branch, err := p.parse(member, namespace)
			if err != nil {
				return nil, err
			}
			union.branches = append(union.branches, branch)
		}
		return union, nil
	case map[string]interface{}:
		return p.parseObject(v, namespace)
	default:
		return nil, fmt.Errorf("unexpected schema element %T", raw)
	}
}

func (p *schemaParser) reference(name, namespace string) (*avroType, error) {
	if primitiveKinds[name] {
		return &avroType{kind: name}, nil
	}
	if !strings.Contains(name, ".") && namespace != "" {
		if t, ok := p.names[namespace+"."+name]; ok {
			return t, nil
		}
	}
	if t, ok := p.names[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func (p *schemaParser) parseObject(obj map[string]interface{}, namespace string) (*avroType, error) {
	kind, _ := obj["type"].(string)
	logical, _ := obj["logicalType"].(string)

	switch kind {
	case "record", "error", "enum", "fixed":
		return p.parseNamed(obj, kind, namespace)
	case "array":
		items, err := p.parse(obj["items"], namespace)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		return &avroType{kind: "array", items: items}, nil
	case "map":
		values, err := p.parse(obj["values"], namespace)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		return &avroType{kind: "map", values: values}, nil
	}

	if primitiveKinds[kind] {
		return &avroType{kind: kind, logical: logical}, nil
	}

	// {"type": <nested schema or named reference>}
	inner, ok := obj["type"]
	if !ok {
		return nil, fmt.Errorf("schema object without type")
	}
	return p.parse(inner, namespace)
}

func (p *schemaParser) parseNamed(obj map[string]interface{}, kind, namespace string) (*avroType, error) {
	name, _ := obj["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%s without name", kind)
	}
	if ns, ok := obj["namespace"].(string); ok {
		namespace = ns
	}

	fullName := name
	if !strings.Contains(name, ".") && namespace != "" {
		fullName = namespace + "." + name
	}
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		namespace = fullName[:i]
	}

	if kind == "error" {
		kind = "record"
	}
	t := &avroType{kind: kind, fullName: fullName}
	t.logical, _ = obj["logicalType"].(string)

	// registered before the fields so recursive references resolve to t
	p.names[fullName] = t

	switch kind {
	case "record":
		fields, _ := obj["fields"].([]interface{})
		for _, f := range fields {
			fieldObj, ok := f.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("record %s: malformed field", fullName)
			}
			fieldName, _ := fieldObj["name"].(string)
			fieldType, err := p.parse(fieldObj["type"], namespace)
			if err != nil {
				return nil, fmt.Errorf("record %s field %q: %w", fullName, fieldName, err)
			}
			_, hasDefault := fieldObj["default"]
			t.fields = append(t.fields, avroField{name: fieldName, typ: fieldType, hasDefault: hasDefault})
		}
	case "enum":
		symbols, _ := obj["symbols"].([]interface{})
		for _, s := range symbols {
			if str, ok := s.(string); ok {
				t.symbols = append(t.symbols, str)
			}
		}
	case "fixed":
		size, _ := obj["size"].(float64)
		t.size = int(size)
	}

	return t, nil
}
