package domain

import (
	"strconv"
	"time"
)

// LabelSource identifies where a raw label candidate was found in the DOM.
type LabelSource string

const (
	LabelExplicit    LabelSource = "explicit"     // label[for=id]
	LabelHeading     LabelSource = "heading"      // fieldset legend / enclosing heading
	LabelGrouped     LabelSource = "grouped"      // form-library container markup (.gfield_label etc.)
	LabelEnclosing   LabelSource = "enclosing"    // closest("label")
	LabelPrevSibling LabelSource = "prev_sibling" // preceding sibling <label>
	LabelNearby      LabelSource = "nearby"       // label found in the parent element
)

// RawField is one form control exactly as seen in the DOM, before any
// normalization. Produced once per scan and never mutated.
type RawField struct {
	Tag         string                 `json:"tag"`
	Type        string                 `json:"type"`
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Placeholder string                 `json:"placeholder"`
	Labels      map[LabelSource]string `json:"labels"`
	Options     []string               `json:"options"`
}

// RawButton is a button element extracted alongside form fields. Buttons
// pass through the schema untouched; they exist for wizard navigation.
type RawButton struct {
	ButtonType string `json:"buttonType"`
	Purpose    string `json:"purpose"` // next, previous, submit, cancel, skip, unknown
	ID         string `json:"id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	Text       string `json:"text"`
	ClassName  string `json:"className"`
	IsVisible  bool   `json:"isVisible"`
	IsDisabled bool   `json:"isDisabled"`
}

// StepIndicator is a wizard progress marker found on the page.
type StepIndicator struct {
	Text      string `json:"text"`
	ClassName string `json:"className"`
	IsActive  bool   `json:"isActive"`
}

// NormalizedField carries the resolved label and stable identity for one
// raw field. Immutable once created.
type NormalizedField struct {
	FinalName   string   `json:"finalName"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Options     []string `json:"options"`
}

// FieldDescriptor is the schema-side view of one field.
type FieldDescriptor struct {
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// FormSchema is the filtered, ordered mapping of field identities to
// descriptors for one scanned page. Superseded by the next scan of the
// same URL.
type FormSchema struct {
	URL            string          `json:"url"`
	ScannedAt      time.Time       `json:"scannedAt"`
	Fields         *FieldMap       `json:"fields"`
	Buttons        []RawButton     `json:"buttons"`
	StepIndicators []StepIndicator `json:"stepIndicators"`
}

// FieldCount returns the number of schema fields.
func (s *FormSchema) FieldCount() int {
	if s == nil || s.Fields == nil {
		return 0
	}
	return s.Fields.Len()
}

// PageScan is the result of scanning one wizard page. Multi-page scans
// aggregate several of these.
type PageScan struct {
	Page   int         `json:"page"`
	URL    string      `json:"url"`
	Schema *FormSchema `json:"schema"`
}

// MultiPageSchema aggregates the schemas of a wizard form.
type MultiPageSchema struct {
	StartURL     string     `json:"startUrl"`
	ScannedAt    time.Time  `json:"scannedAt"`
	TotalPages   int        `json:"totalPages"`
	TotalFields  int        `json:"totalFields"`
	TotalButtons int        `json:"totalButtons"`
	Pages        []PageScan `json:"pages"`
}

// ValueType distinguishes plain text values from synthesized document
// content.
const (
	ValueTypeText     = "text"
	ValueTypeDocument = "document"
)

// MappedField is one model-produced field/value tuple. MappedValue is nil
// when the model had no defensible value for the field.
type MappedField struct {
	FieldID     string  `json:"fieldId"`
	Label       string  `json:"label"`
	MappedValue *string `json:"mappedValue"`
	ValueType   string  `json:"valueType"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	Selector    string  `json:"selector,omitempty"`
}

// MissingField records a field the model could not map, with its reason.
type MissingField struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// MappingOutcome is the merged result of a mapping run, single-shot or
// chunked. A chunked run is successful when at least one chunk produced
// mapped fields, even if sibling chunks failed.
type MappingOutcome struct {
	MappedFields     []MappedField  `json:"mappedFields"`
	MissingFields    []MissingField `json:"missingFields"`
	Chunked          bool           `json:"chunked"`
	TotalChunks      int            `json:"totalChunks"`
	SuccessfulChunks int            `json:"successfulChunks"`
	Error            string         `json:"error,omitempty"`
}

// Successful reports whether the run produced any usable mapping.
func (o *MappingOutcome) Successful() bool {
	return len(o.MappedFields) > 0
}

// Autofill command actions.
const (
	ActionFill     = "fill"
	ActionDocument = "document"
)

// AutofillCommand is a selector-qualified instruction for the external
// UI-automation executor. One-shot; never read back.
type AutofillCommand struct {
	FieldID    string  `json:"fieldId"`
	Selector   string  `json:"selector"`
	Value      string  `json:"value"`
	Type       string  `json:"type"`
	FieldType  string  `json:"fieldType"`
	Action     string  `json:"action"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DatasetConfig is the organization dataset configuration persisted as
// the canonical "latest dataset" record.
type DatasetConfig struct {
	Type      string        `json:"type"` // local, google-drive
	LastSaved string        `json:"lastSaved,omitempty"`
	Local     *LocalDataset `json:"local,omitempty"`
	Drive     *DriveDataset `json:"drive,omitempty"`
}

// LocalDataset describes a locally uploaded dataset.
type LocalDataset struct {
	TotalFiles    int            `json:"totalFiles"`
	ProcessedData map[string]any `json:"processedData,omitempty"`
}

// DriveDataset points at a Google Drive file or folder.
type DriveDataset struct {
	Type string `json:"type"` // file, folder
	ID   string `json:"id"`
}

// Summary returns a short description of the dataset for audit records.
func (c *DatasetConfig) Summary() string {
	if c == nil {
		return "none"
	}
	switch c.Type {
	case "local":
		n := 0
		if c.Local != nil {
			n = c.Local.TotalFiles
		}
		return pluralFiles(n)
	case "google-drive":
		kind := "file"
		if c.Drive != nil && c.Drive.Type != "" {
			kind = c.Drive.Type
		}
		return "Google Drive " + kind
	default:
		return c.Type
	}
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return strconv.Itoa(n) + " files"
}
