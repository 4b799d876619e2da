// Package handlers contains the HTTP handlers for the autofill API.
package handlers

import (
	"context"
	"encoding/json"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/services/autofill"
)

// Service is the pipeline surface the handlers drive. The concrete
// implementation is internal/services/autofill.Service.
type Service interface {
	ScanForm(ctx context.Context, url string) (*autofill.ScanResult, error)
	ScanMultiPageForm(ctx context.Context, url string, maxPages int) (*autofill.MultiScanResult, error)
	ConfigureDataset(ctx context.Context, cfg *domain.DatasetConfig) (string, error)
	DirectAutofill(ctx context.Context, url string, dataset *domain.DatasetConfig) (*autofill.AutofillResult, error)
	RunMapping(ctx context.Context) (*autofill.MappingReport, error)
	LatestMapping(ctx context.Context) (string, json.RawMessage, error)
	LatestProcessedData(ctx context.Context) (string, json.RawMessage, int, error)
	LatestDatasetConfig(ctx context.Context) (*domain.DatasetConfig, error)
}

// mappingTail phrases the mapping report for scan response messages.
func mappingTail(report *autofill.MappingReport) string {
	switch {
	case report == nil:
		return ""
	case report.Success:
		return "AI mapping completed."
	case report.Skipped:
		return "AI mapping skipped - no dataset configured."
	default:
		return "AI mapping failed - check logs."
	}
}
