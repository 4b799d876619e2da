package artifacts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/formbridge/formbridge/internal/domain"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[key] = cp
	return nil
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound("artifact", key)
	}
	return data, nil
}

// GetLatest returns the lexically greatest key under prefix.
func (s *MemoryStore) GetLatest(ctx context.Context, prefix string) (string, []byte, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return "", nil, domain.ErrNotFound("artifact", prefix+"*")
	}
	latest := keys[len(keys)-1]
	data, err := s.Get(ctx, latest)
	return latest, data, err
}

// List returns all keys under prefix, sorted ascending.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
