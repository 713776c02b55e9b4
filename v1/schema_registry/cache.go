package schema_registry

import "sync"

// Cache holds the ID ↔ schema mappings learned from the registry.
//
// Schema IDs are immutable once issued, so entries are never invalidated or
// evicted. Both maps use insert-if-absent semantics: when two goroutines race
// to store different values for the same key, the first one wins and both
// callers get it back. A Cache may be shared between several clients that
// talk to the same registry.
type Cache struct {
	mu      sync.RWMutex
	schemas map[int]string
	ids     map[subjectSchema]int
}

type subjectSchema struct {
	subject    string
	schemaType string
	schema     string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		schemas: make(map[int]string),
		ids:     make(map[subjectSchema]int),
	}
}

// Schema returns the cached schema for id.
func (c *Cache) Schema(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[id]
	return schema, ok
}

// StoreSchema caches schema under id unless id is already present, and
// returns the cached value.
func (c *Cache) StoreSchema(id int, schema string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.schemas[id]; ok {
		return existing
	}
	c.schemas[id] = schema
	return schema
}

// ID returns the cached ID of schema under subject.
func (c *Cache) ID(subject, schemaType, schema string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[subjectSchema{subject, schemaType, schema}]
	return id, ok
}

// StoreID caches id for schema under subject unless an ID is already
// present, and returns the cached value.
func (c *Cache) StoreID(subject, schemaType, schema string, id int) int {
	key := subjectSchema{subject, schemaType, schema}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.ids[key]; ok {
		return existing
	}
	c.ids[key] = id
	return id
}

// Len returns the number of cached schemas and subject/schema IDs.
func (c *Cache) Len() (schemas, ids int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas), len(c.ids)
}
