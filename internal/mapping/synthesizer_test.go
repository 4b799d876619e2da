package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbridge/formbridge/internal/domain"
)

func strptr(s string) *string { return &s }

func TestSynthesize_SkipsNullValues(t *testing.T) {
	mapped := []domain.MappedField{
		{FieldID: "orgName", MappedValue: strptr("Helping Hands"), ValueType: domain.ValueTypeText},
		{FieldID: "pan", MappedValue: nil, ValueType: domain.ValueTypeText},
		{FieldID: "email", MappedValue: strptr("info@example.org"), ValueType: domain.ValueTypeText},
	}

	commands := NewSynthesizer().Synthesize(mapped, nil, nil)

	require.Len(t, commands, 2)
	assert.Equal(t, "orgName", commands[0].FieldID)
	assert.Equal(t, "email", commands[1].FieldID)
}

func TestSynthesize_SelectorPrecedence(t *testing.T) {
	raw := map[string]domain.RawField{
		"with_id":    {ID: "dob_field", Name: "dob"},
		"with_name":  {Name: "contact_email"},
		"with_label": {Labels: map[domain.LabelSource]string{domain.LabelExplicit: "City"}},
		"bare":       {},
	}

	tests := []struct {
		name     string
		field    domain.MappedField
		selector string
	}{
		{
			"model hint wins over everything",
			domain.MappedField{FieldID: "with_id", MappedValue: strptr("x"), Selector: "#custom"},
			"#custom",
		},
		{
			"id beats name",
			domain.MappedField{FieldID: "with_id", MappedValue: strptr("x")},
			"#dob_field",
		},
		{
			"name when id absent",
			domain.MappedField{FieldID: "with_name", MappedValue: strptr("x")},
			`[name="contact_email"]`,
		},
		{
			"aria-label when id and name absent",
			domain.MappedField{FieldID: "with_label", MappedValue: strptr("x")},
			`[aria-label="City"]`,
		},
		{
			"identity fallback when descriptor is bare",
			domain.MappedField{FieldID: "bare", MappedValue: strptr("x")},
			`[id="bare"]`,
		},
		{
			"identity fallback when descriptor is unknown",
			domain.MappedField{FieldID: "ghost", MappedValue: strptr("x")},
			`[id="ghost"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := NewSynthesizer().Synthesize([]domain.MappedField{tt.field}, nil, raw)
			require.Len(t, commands, 1)
			assert.Equal(t, tt.selector, commands[0].Selector)
			assert.NotEmpty(t, commands[0].Selector)
		})
	}
}

func TestSynthesize_Actions(t *testing.T) {
	mapped := []domain.MappedField{
		{FieldID: "orgName", MappedValue: strptr("Helping Hands"), ValueType: domain.ValueTypeText},
		{FieldID: "regProof", MappedValue: strptr("DECLARATION ..."), ValueType: domain.ValueTypeDocument},
	}

	commands := NewSynthesizer().Synthesize(mapped, nil, nil)

	require.Len(t, commands, 2)
	assert.Equal(t, domain.ActionFill, commands[0].Action)
	assert.Equal(t, domain.ActionDocument, commands[1].Action)
}

func TestSynthesize_CarriesFieldTypeFromSchema(t *testing.T) {
	fields := domain.NewFieldMap()
	fields.Set("dob", domain.FieldDescriptor{Label: "Date of Birth", Type: "date"})

	mapped := []domain.MappedField{
		{FieldID: "dob", Label: "Date of Birth", MappedValue: strptr("1990-05-12"), ValueType: domain.ValueTypeText, Confidence: 0.8},
	}

	commands := NewSynthesizer().Synthesize(mapped, fields, nil)

	require.Len(t, commands, 1)
	assert.Equal(t, "date", commands[0].FieldType)
	assert.Equal(t, "Date of Birth", commands[0].Label)
	assert.InDelta(t, 0.8, commands[0].Confidence, 1e-9)
}

func TestSynthesize_EndToEnd(t *testing.T) {
	// A mapped birth date with no model selector, against a descriptor
	// whose id is dob_field, resolves to a fill command on #dob_field.
	raw := map[string]domain.RawField{
		"dob": {ID: "dob_field", Tag: "input", Type: "date"},
	}
	mapped := []domain.MappedField{
		{FieldID: "dob", MappedValue: strptr("1990-05-12"), ValueType: domain.ValueTypeText},
	}

	commands := NewSynthesizer().Synthesize(mapped, nil, raw)

	require.Len(t, commands, 1)
	assert.Equal(t, "dob", commands[0].FieldID)
	assert.Equal(t, "#dob_field", commands[0].Selector)
	assert.Equal(t, domain.ActionFill, commands[0].Action)
	assert.Equal(t, "1990-05-12", commands[0].Value)
}

func TestSynthesize_PreservesInputOrder(t *testing.T) {
	mapped := []domain.MappedField{
		{FieldID: "c", MappedValue: strptr("3")},
		{FieldID: "a", MappedValue: strptr("1")},
		{FieldID: "b", MappedValue: strptr("2")},
	}

	commands := NewSynthesizer().Synthesize(mapped, nil, nil)

	ids := make([]string, len(commands))
	for i, c := range commands {
		ids[i] = c.FieldID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
