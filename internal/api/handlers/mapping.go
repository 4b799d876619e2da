package handlers

import (
	"encoding/json"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/pkg/httputil"
)

// MappingHandler handles mapping audit and manual-run requests
type MappingHandler struct {
	service Service
	logger  *zap.Logger
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(service Service, logger *zap.Logger) *MappingHandler {
	return &MappingHandler{service: service, logger: logger}
}

// Latest handles GET /api/ai-mapping/latest
func (h *MappingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	key, data, err := h.service.LatestMapping(r.Context())
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeNotFound) {
			httputil.JSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    nil,
				"message": "No AI mapping results available",
			})
			return
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"data":     json.RawMessage(data),
		"filename": path.Base(key),
	})
}

// Run handles POST /run-ai-mapping, the manual retry entry point.
func (h *MappingHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunMapping(r.Context())
	if err != nil {
		h.logger.Error("Manual mapping run failed", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": report.Success,
		"result":  report,
	})
}
