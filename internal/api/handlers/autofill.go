package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/pkg/httputil"
)

// AutofillHandler handles direct autofill requests
type AutofillHandler struct {
	service Service
	logger  *zap.Logger
}

// NewAutofillHandler creates a new autofill handler
func NewAutofillHandler(service Service, logger *zap.Logger) *AutofillHandler {
	return &AutofillHandler{service: service, logger: logger}
}

type directRequest struct {
	URL     string                `json:"url"`
	Dataset *domain.DatasetConfig `json:"dataset,omitempty"`
}

type directMetadata struct {
	TotalFields   int                   `json:"totalFields"`
	MissingFields []domain.MissingField `json:"missingFields"`
	Timestamp     time.Time             `json:"timestamp"`
}

type directResponse struct {
	Success   bool                     `json:"success"`
	Commands  []domain.AutofillCommand `json:"commands"`
	Metadata  directMetadata           `json:"metadata"`
	FromCache bool                     `json:"fromCache"`
}

// Direct handles POST /api/autofill/direct
func (h *AutofillHandler) Direct(w http.ResponseWriter, r *http.Request) {
	var req directRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.URL == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidationField("url", "URL is required"))
		return
	}

	result, err := h.service.DirectAutofill(r.Context(), req.URL, req.Dataset)
	if err != nil {
		h.logger.Error("Direct autofill failed", zap.String("url", req.URL), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	missing := result.MissingFields
	if missing == nil {
		missing = []domain.MissingField{}
	}

	httputil.JSON(w, http.StatusOK, directResponse{
		Success:  true,
		Commands: result.Commands,
		Metadata: directMetadata{
			TotalFields:   result.TotalFields,
			MissingFields: missing,
			Timestamp:     result.Timestamp,
		},
		FromCache: result.FromCache,
	})
}
