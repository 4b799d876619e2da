// Package schema turns raw DOM field descriptors into a stable,
// de-duplicated form schema: each field gets a human label and a
// machine identity resolved through ordered fallback chains.
package schema

import (
	"strings"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge/internal/domain"
)

// optionStoplist holds placeholder option texts that carry no data.
var optionStoplist = map[string]struct{}{
	"select":          {},
	"choose":          {},
	"---":             {},
	"select category": {},
	"select job":      {},
	"":                {},
}

// labelResolver produces a label candidate for a raw field, or "" when
// its source is absent. Resolvers are pure; precedence lives entirely
// in the resolver list order.
type labelResolver struct {
	name    string
	resolve func(domain.RawField) string
}

func fromSource(src domain.LabelSource) func(domain.RawField) string {
	return func(f domain.RawField) string {
		return strings.TrimSpace(f.Labels[src])
	}
}

// labelResolvers is the label precedence chain: first non-empty wins.
var labelResolvers = []labelResolver{
	{"explicit", fromSource(domain.LabelExplicit)},
	{"heading", fromSource(domain.LabelHeading)},
	{"grouped", fromSource(domain.LabelGrouped)},
	{"enclosing", fromSource(domain.LabelEnclosing)},
	{"prev_sibling", fromSource(domain.LabelPrevSibling)},
	{"nearby", fromSource(domain.LabelNearby)},
	{"placeholder", func(f domain.RawField) string { return strings.TrimSpace(f.Placeholder) }},
	{"name_derived", func(f domain.RawField) string { return humanizeName(f.Name) }},
	{"id_derived", func(f domain.RawField) string { return humanizeID(f.ID) }},
}

// SyntheticPrefix marks identities that had no resolvable source. They
// are not content-stable across scans and are dropped by the builder.
const SyntheticPrefix = "unknown_"

// Normalizer resolves labels, identities and option sets for raw fields.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize is a pure transform over a snapshot of raw descriptors. The
// output order matches the input order.
func (n *Normalizer) Normalize(raw []domain.RawField) []domain.NormalizedField {
	groups := groupChoiceFields(raw)

	out := make([]domain.NormalizedField, 0, len(raw))
	for _, f := range raw {
		label := ResolveLabel(f)

		out = append(out, domain.NormalizedField{
			FinalName:   ResolveFinalName(f, label),
			Label:       label,
			Placeholder: f.Placeholder,
			Tag:         f.Tag,
			Type:        f.Type,
			Options:     n.resolveOptions(f, groups),
		})
	}
	return out
}

// ResolveLabel walks the resolver chain and returns the first non-empty
// candidate, or "" when none resolve. An empty label is not an error.
func ResolveLabel(f domain.RawField) string {
	for _, r := range labelResolvers {
		if label := r.resolve(f); label != "" {
			return label
		}
	}
	return ""
}

// ResolveFinalName derives the stable field identity: explicit name,
// then id, then a slug of the resolved label, then a synthetic identity
// that is guaranteed non-empty but not stable across scans.
func ResolveFinalName(f domain.RawField, label string) string {
	if f.Name != "" {
		return f.Name
	}
	if f.ID != "" {
		return f.ID
	}
	if label != "" {
		return Slug(label)
	}
	return SyntheticPrefix + uuid.NewString()[:6]
}

// Slug lowercases s and collapses every run of non-alphanumeric
// characters to a single underscore. Leading and trailing runs are kept
// as underscores so the result matches the historical identity of
// previously scanned forms.
func Slug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
		} else if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// choiceGroup collects the members of a radio/checkbox group sharing a
// name attribute.
type choiceGroup struct {
	members []domain.RawField
	options []string
}

func isChoiceType(t string) bool {
	return t == "radio" || t == "checkbox"
}

// groupChoiceFields resolves option sets for radio/checkbox groups. A
// group of one is not a choice group and gets no options.
func groupChoiceFields(raw []domain.RawField) map[string]*choiceGroup {
	groups := make(map[string]*choiceGroup)
	order := make([]string, 0)
	for _, f := range raw {
		if !isChoiceType(f.Type) || f.Name == "" {
			continue
		}
		g, ok := groups[f.Name]
		if !ok {
			g = &choiceGroup{}
			groups[f.Name] = g
			order = append(order, f.Name)
		}
		g.members = append(g.members, f)
	}

	for _, name := range order {
		g := groups[name]
		if len(g.members) < 2 {
			continue
		}
		g.options = resolveGroupOptions(g.members)
	}
	return groups
}

// resolveGroupOptions collects each member's resolved choice label and
// deduplicates them as a set, preserving first-seen order. When no
// member label resolves, the grouped-choice markup options collected at
// extraction time serve as the fallback.
func resolveGroupOptions(members []domain.RawField) []string {
	seen := make(map[string]struct{})
	var options []string
	add := func(label string) {
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		options = append(options, label)
	}

	for _, m := range members {
		add(choiceMemberLabel(m))
	}
	if len(options) == 0 {
		for _, m := range members {
			for _, opt := range m.Options {
				add(opt)
			}
		}
	}
	return options
}

// choiceMemberLabel resolves the label of a single group member:
// explicit label[for], then enclosing label, then adjacent sibling,
// then grouped-choice markup.
func choiceMemberLabel(m domain.RawField) string {
	for _, src := range []domain.LabelSource{
		domain.LabelExplicit,
		domain.LabelEnclosing,
		domain.LabelPrevSibling,
		domain.LabelNearby,
		domain.LabelGrouped,
	} {
		if label := strings.TrimSpace(m.Labels[src]); label != "" {
			return label
		}
	}
	return ""
}

// resolveOptions produces the final option list for one field.
func (n *Normalizer) resolveOptions(f domain.RawField, groups map[string]*choiceGroup) []string {
	if f.Tag == "select" {
		return filterSelectOptions(f.Options)
	}
	if isChoiceType(f.Type) && f.Name != "" {
		if g, ok := groups[f.Name]; ok {
			return g.options
		}
	}
	return nil
}

// filterSelectOptions drops placeholder option texts, preserving source
// order.
func filterSelectOptions(options []string) []string {
	var out []string
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if _, blocked := optionStoplist[strings.ToLower(opt)]; blocked {
			continue
		}
		out = append(out, opt)
	}
	return out
}

// humanizeName derives a label from a name attribute: underscores become
// spaces, brackets are stripped, each word is title-cased.
func humanizeName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ReplaceAll(name, "_", " ")
	s = strings.NewReplacer("[", "", "]", "").Replace(s)
	return titleWords(s)
}

// humanizeID derives a label from an id attribute.
func humanizeID(id string) string {
	if id == "" {
		return ""
	}
	return titleWords(strings.ReplaceAll(id, "_", " "))
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
