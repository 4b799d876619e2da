// Package cache stores the most recent FormSchema per source URL so the
// direct-autofill path can skip a page load when the URL matches exactly.
//
// There is no TTL and no invalidation beyond exact-URL replacement: a
// page whose markup changes without a URL change will serve a stale
// schema until the next scan of that URL. Known gap; see DESIGN.md.
package cache

import (
	"context"

	"github.com/formbridge/formbridge/internal/domain"
)

// SchemaCache is a per-URL store of the most recent FormSchema.
type SchemaCache interface {
	// Get returns the cached schema for url, and whether one exists.
	// Only an exact URL match hits.
	Get(ctx context.Context, url string) (*domain.FormSchema, bool, error)

	// Put stores schema keyed by its URL, replacing any previous entry.
	Put(ctx context.Context, schema *domain.FormSchema) error
}
