package handlers

import (
	"encoding/json"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/artifacts"
	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/pkg/httputil"
)

// DatasetHandler handles dataset configuration requests
type DatasetHandler struct {
	service Service
	logger  *zap.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service Service, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{service: service, logger: logger}
}

type datasetInfo struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp,omitempty"`
	Summary   string `json:"summary"`
}

// Configure handles POST /api/dataset/configure
func (h *DatasetHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var cfg domain.DatasetConfig
	if err := httputil.DecodeJSON(r, &cfg); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	summary, err := h.service.ConfigureDataset(r.Context(), &cfg)
	if err != nil {
		h.logger.Error("Dataset configuration failed", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Dataset configuration received successfully",
		"savedAs": path.Base(artifacts.KeyDatasetConfig),
		"config": datasetInfo{
			Type:      cfg.Type,
			Timestamp: cfg.LastSaved,
			Summary:   summary,
		},
	})
}

// ProcessedData handles GET /api/dataset/processed-data
func (h *DatasetHandler) ProcessedData(w http.ResponseWriter, r *http.Request) {
	key, data, count, err := h.service.LatestProcessedData(r.Context())
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeNotFound) {
			httputil.JSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    []any{},
				"message": "No processed data available",
			})
			return
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"data":           json.RawMessage(data),
		"filename":       path.Base(key),
		"availableFiles": count,
	})
}

// Test handles GET /api/dataset/test, the extension's presence check
// for a configured dataset.
func (h *DatasetHandler) Test(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.LatestDatasetConfig(r.Context())
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeConfigMissing) {
			httputil.JSON(w, http.StatusOK, map[string]any{
				"success":    true,
				"configured": false,
				"message":    "No dataset configuration found",
			})
			return
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"configured": true,
		"config": datasetInfo{
			Type:      cfg.Type,
			Timestamp: cfg.LastSaved,
			Summary:   cfg.Summary(),
		},
	})
}
