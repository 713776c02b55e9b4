package serde

import (
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"
)

// compiledSchema pairs a goavro codec with the parsed type tree used for
// plain-value conversion.
type compiledSchema struct {
	codec *goavro.Codec
	root  *avroType
}

// codecCache holds one compiled schema per schema text. Schema texts behind
// registry IDs never change, so entries live as long as the cache.
type codecCache struct {
	codecs sync.Map
}

func (c *codecCache) get(schema string) (*compiledSchema, error) {
	if v, ok := c.codecs.Load(schema); ok {
		return v.(*compiledSchema), nil
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid avro schema: %w", err)
	}
	root, err := parseSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid avro schema: %w", err)
	}

	v, _ := c.codecs.LoadOrStore(schema, &compiledSchema{codec: codec, root: root})
	return v.(*compiledSchema), nil
}
