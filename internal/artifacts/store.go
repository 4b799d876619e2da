// Package artifacts persists the flat JSON records the pipeline produces:
// dataset configurations, processed-data snapshots, form schemas, and
// mapping audit records. Keys are slash-separated paths; "latest" queries
// rely on timestamp-suffixed keys sorting lexically.
package artifacts

import (
	"context"
	"strings"
	"time"
)

// Well-known artifact keys and prefixes. Names are stable for tests and
// for external inspection of the data directory.
const (
	KeyDatasetConfig   = "dataset-configs/dataset-config.json"
	KeyContactSchema   = "contact-form-schema.json"
	KeyMultiPageSchema = "multi-page-form-schema.json"

	PrefixMapping       = "ai-mappings/mapping-"
	PrefixProcessedData = "processed-data/processed-data-"
)

// Store is a key-value artifact store. The filesystem is the default
// implementation; object storage and an in-memory double exist behind
// the same interface.
type Store interface {
	// Put writes an artifact, replacing any existing value for key.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads an artifact. Returns a NOT_FOUND domain error when the
	// key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetLatest returns the lexically greatest key under prefix and its
	// value. Returns a NOT_FOUND domain error when no key matches.
	GetLatest(ctx context.Context, prefix string) (string, []byte, error)

	// List returns all keys under prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}

// TimestampedKey builds a key like
// "ai-mappings/mapping-2025-01-02T03-04-05-678Z.json". Colons and dots
// are flattened so the key is safe as a filename on every backend.
func TimestampedKey(prefix string, t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return prefix + ts + ".json"
}
