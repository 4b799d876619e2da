package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldMap is a string-keyed map of field descriptors that preserves
// insertion order. Discovery order determines chunk partitioning and
// selector synthesis order downstream, and the JSON form must round-trip
// with keys in the same order, so a plain map is not enough.
type FieldMap struct {
	keys   []string
	fields map[string]FieldDescriptor
}

// NewFieldMap creates an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{fields: make(map[string]FieldDescriptor)}
}

// Set inserts or replaces a field. Replacing an existing key keeps its
// original position (last-writer-wins on the value).
func (m *FieldMap) Set(key string, fd FieldDescriptor) {
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = fd
}

// Get returns the descriptor for key.
func (m *FieldMap) Get(key string) (FieldDescriptor, bool) {
	fd, ok := m.fields[key]
	return fd, ok
}

// Len returns the number of fields.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (m *FieldMap) Keys() []string {
	return m.keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *FieldMap) Range(fn func(key string, fd FieldDescriptor) bool) {
	for _, k := range m.keys {
		if !fn(k, m.fields[k]) {
			return
		}
	}
}

// Slice returns consecutive partitions of at most size entries each,
// preserving insertion order. The last partition may be smaller.
func (m *FieldMap) Slice(size int) []*FieldMap {
	if size <= 0 || m.Len() == 0 {
		return nil
	}
	var chunks []*FieldMap
	for start := 0; start < len(m.keys); start += size {
		end := start + size
		if end > len(m.keys) {
			end = len(m.keys)
		}
		chunk := NewFieldMap()
		for _, k := range m.keys[start:end] {
			chunk.Set(k, m.fields[k])
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// MarshalJSON encodes the map as a JSON object with keys in insertion
// order.
func (m *FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording keys in document order.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.fields = make(map[string]FieldDescriptor)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("field map: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("field map: non-string key %v", keyTok)
		}
		var fd FieldDescriptor
		if err := dec.Decode(&fd); err != nil {
			return fmt.Errorf("field map: decoding %q: %w", key, err)
		}
		m.Set(key, fd)
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
