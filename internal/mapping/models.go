// Package mapping drives the form-to-dataset mapping pipeline: prompt
// construction, engine calls, chunked orchestration with partial-failure
// tolerance, and synthesis of executable autofill commands.
package mapping

import (
	"context"

	"github.com/formbridge/formbridge/internal/domain"
)

// Request carries one engine call's inputs: the schema field mapping
// (or a partition of it) plus the organization dataset.
type Request struct {
	FormFields *domain.FieldMap      `json:"form_fields"`
	Dataset    *domain.DatasetConfig `json:"dataset"`
}

// Result is a successful engine evaluation. Failures are reported as
// errors, never as a success shape with an error field inside.
type Result struct {
	MappedFields  []domain.MappedField  `json:"mappedFields"`
	MissingFields []domain.MissingField `json:"missingFields"`
}

// Engine is the stateless boundary to the mapping model. The
// orchestrator depends on this interface so it can be tested with a
// deterministic fake.
type Engine interface {
	Evaluate(ctx context.Context, req Request) (*Result, error)
}
