package mapping

import (
	"fmt"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/observability"
	"github.com/formbridge/formbridge/internal/schema"
)

// Synthesizer converts mapped fields into selector-qualified autofill
// commands for the external executor.
type Synthesizer struct{}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize emits one command per mapped field with a non-null value,
// preserving input order. Null-valued fields produce no command. The
// raw lookup carries the original descriptors keyed by field identity;
// it may be nil when the schema came from cache, in which case selector
// resolution degrades to the identity fallback.
func (s *Synthesizer) Synthesize(mapped []domain.MappedField, fields *domain.FieldMap, raw map[string]domain.RawField) []domain.AutofillCommand {
	commands := make([]domain.AutofillCommand, 0, len(mapped))

	for _, m := range mapped {
		if m.MappedValue == nil {
			continue
		}

		action := domain.ActionFill
		if m.ValueType == domain.ValueTypeDocument {
			action = domain.ActionDocument
		}

		fieldType := ""
		if fields != nil {
			if desc, ok := fields.Get(m.FieldID); ok {
				fieldType = desc.Type
			}
		}

		commands = append(commands, domain.AutofillCommand{
			FieldID:    m.FieldID,
			Selector:   resolveSelector(m, raw),
			Value:      *m.MappedValue,
			Type:       m.ValueType,
			FieldType:  fieldType,
			Action:     action,
			Label:      m.Label,
			Confidence: m.Confidence,
		})
	}

	observability.GetMetrics().RecordCommands(len(commands))
	return commands
}

// resolveSelector picks the command selector: the model's hint wins,
// then the field's id, name and label attributes in that order, then a
// guaranteed fallback built from the field identity itself.
func resolveSelector(m domain.MappedField, raw map[string]domain.RawField) string {
	if m.Selector != "" {
		return m.Selector
	}
	if f, ok := raw[m.FieldID]; ok {
		if f.ID != "" {
			return "#" + f.ID
		}
		if f.Name != "" {
			return fmt.Sprintf("[name=%q]", f.Name)
		}
		if label := schema.ResolveLabel(f); label != "" {
			return fmt.Sprintf("[aria-label=%q]", label)
		}
	}
	return fmt.Sprintf("[id=%q]", m.FieldID)
}
