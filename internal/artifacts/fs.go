package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/formbridge/formbridge/internal/domain"
)

// FSStore stores artifacts as files under a root directory. Keys map
// directly to relative paths.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.ErrStorage(err)
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes an artifact, creating parent directories as needed.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return domain.ErrStorage(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return domain.ErrStorage(err)
	}
	return nil
}

// Get reads an artifact by key.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound("artifact", key)
		}
		return nil, domain.ErrStorage(err)
	}
	return data, nil
}

// GetLatest returns the lexically greatest key under prefix.
func (s *FSStore) GetLatest(ctx context.Context, prefix string) (string, []byte, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return "", nil, domain.ErrNotFound("artifact", prefix+"*")
	}
	latest := keys[len(keys)-1]
	data, err := s.Get(ctx, latest)
	if err != nil {
		return "", nil, err
	}
	return latest, data, nil
}

// List returns all keys under prefix, sorted ascending.
func (s *FSStore) List(_ context.Context, prefix string) ([]string, error) {
	// The prefix splits into a directory part and a filename prefix,
	// e.g. "ai-mappings/mapping-" scans ai-mappings/ for mapping-*.
	dir, namePrefix := filepath.Split(filepath.FromSlash(prefix))
	entries, err := os.ReadDir(filepath.Join(s.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.ErrStorage(err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		keys = append(keys, filepath.ToSlash(filepath.Join(dir, e.Name())))
	}
	sort.Strings(keys)
	return keys, nil
}
