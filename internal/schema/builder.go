package schema

import (
	"strings"
	"time"

	"github.com/formbridge/formbridge/internal/domain"
)

// Control types that carry no user data and never enter the schema.
var excludedTypes = map[string]struct{}{
	"hidden": {},
	"button": {},
	"submit": {},
}

// Builder filters normalized fields into a FormSchema field map.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the ordered field mapping from normalized fields.
//
// Exclusion rules, applied in order: fields whose identity is empty,
// the literal "undefined", or synthetic; then fields whose control type
// is hidden, button or submit. Surviving fields are keyed by FinalName
// in discovery order. On a key collision the last writer wins, which
// silently drops the earlier field; see DESIGN.md for why this is a
// flagged open question rather than a feature.
func (b *Builder) Build(fields []domain.NormalizedField) *domain.FieldMap {
	out := domain.NewFieldMap()

	for _, f := range fields {
		if f.FinalName == "" || f.FinalName == "undefined" || strings.HasPrefix(f.FinalName, SyntheticPrefix) {
			continue
		}
		if _, excluded := excludedTypes[f.Type]; excluded {
			continue
		}

		label := f.Label
		if label == "" {
			label = f.Placeholder
		}

		out.Set(f.FinalName, domain.FieldDescriptor{
			Label:       label,
			Type:        f.Type,
			Placeholder: f.Placeholder,
			Options:     f.Options,
		})
	}

	return out
}

// BuildSchema assembles a complete FormSchema for one scanned page.
// Buttons and step indicators pass through untouched.
func (b *Builder) BuildSchema(url string, fields []domain.NormalizedField, buttons []domain.RawButton, steps []domain.StepIndicator) *domain.FormSchema {
	return &domain.FormSchema{
		URL:            url,
		ScannedAt:      time.Now().UTC(),
		Fields:         b.Build(fields),
		Buttons:        buttons,
		StepIndicators: steps,
	}
}
