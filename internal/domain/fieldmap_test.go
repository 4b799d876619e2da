package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMap_InsertionOrder(t *testing.T) {
	m := NewFieldMap()
	m.Set("orgName", FieldDescriptor{Label: "Organization Name", Type: "text"})
	m.Set("email", FieldDescriptor{Label: "Email", Type: "email"})
	m.Set("state", FieldDescriptor{Label: "State", Type: "select", Options: []string{"Karnataka", "Kerala"}})

	assert.Equal(t, []string{"orgName", "email", "state"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	// Overwriting keeps the original position.
	m.Set("email", FieldDescriptor{Label: "Email Address", Type: "email"})
	assert.Equal(t, []string{"orgName", "email", "state"}, m.Keys())

	fd, ok := m.Get("email")
	require.True(t, ok)
	assert.Equal(t, "Email Address", fd.Label)
}

func TestFieldMap_JSONRoundTrip(t *testing.T) {
	m := NewFieldMap()
	m.Set("zebra", FieldDescriptor{Label: "Zebra", Type: "text"})
	m.Set("alpha", FieldDescriptor{Label: "Alpha", Type: "text", Placeholder: "a"})
	m.Set("mid", FieldDescriptor{Label: "Mid", Type: "checkbox", Options: []string{"Yes", "No"}})

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded FieldMap
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Key order and values survive the round trip.
	assert.Equal(t, m.Keys(), decoded.Keys())
	m.Range(func(key string, fd FieldDescriptor) bool {
		got, ok := decoded.Get(key)
		require.True(t, ok, "missing key %s", key)
		assert.Equal(t, fd, got)
		return true
	})

	// And the serialized bytes are stable.
	data2, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(data2))
	assert.Equal(t, string(data), string(data2))
}

func TestFieldMap_Slice(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		size      int
		wantSizes []int
	}{
		{"even split", 10, 5, []int{5, 5}},
		{"remainder", 12, 5, []int{5, 5, 2}},
		{"single chunk", 3, 5, []int{3}},
		{"exact one", 5, 5, []int{5}},
		{"empty", 0, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFieldMap()
			for i := 0; i < tt.total; i++ {
				m.Set("field_"+string(rune('a'+i)), FieldDescriptor{Type: "text"})
			}

			chunks := m.Slice(tt.size)
			require.Len(t, chunks, len(tt.wantSizes))

			var flattened []string
			for i, c := range chunks {
				assert.Equal(t, tt.wantSizes[i], c.Len())
				flattened = append(flattened, c.Keys()...)
			}
			assert.Equal(t, m.Keys(), flattened, "partition order must match field order")
		})
	}
}

func TestFieldMap_UnmarshalRejectsNonObject(t *testing.T) {
	var m FieldMap
	err := json.Unmarshal([]byte(`["not","an","object"]`), &m)
	assert.Error(t, err)
}
