package cache

import (
	"context"
	"sync"

	"github.com/formbridge/formbridge/internal/domain"
)

// MemoryCache is the in-process SchemaCache used when Redis is not
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	schemas map[string]*domain.FormSchema
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{schemas: make(map[string]*domain.FormSchema)}
}

// Get returns the cached schema for url.
func (c *MemoryCache) Get(_ context.Context, url string) (*domain.FormSchema, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[url]
	return schema, ok, nil
}

// Put stores schema keyed by its URL. Last write wins.
func (c *MemoryCache) Put(_ context.Context, schema *domain.FormSchema) error {
	if schema == nil || schema.URL == "" {
		return domain.ErrValidationField("schema", "schema with a URL is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schema.URL] = schema
	return nil
}
