package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/services/autofill"
	"github.com/formbridge/formbridge/pkg/httputil"
)

// ScanHandler handles form scanning requests
type ScanHandler struct {
	service Service
	logger  *zap.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(service Service, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{service: service, logger: logger}
}

type scanRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"maxPages,omitempty"`
}

// singleScanBody mirrors what the extension popup renders after a scan.
type singleScanBody struct {
	URL            string                 `json:"url"`
	FieldCount     int                    `json:"fieldCount"`
	ButtonCount    int                    `json:"buttonCount"`
	Fields         *domain.FieldMap       `json:"fields"`
	Buttons        []domain.RawButton     `json:"buttons"`
	StepIndicators []domain.StepIndicator `json:"stepIndicators"`
}

type singleScanResponse struct {
	Success   bool                    `json:"success"`
	Scan      singleScanBody          `json:"scan"`
	AIMapping *autofill.MappingReport `json:"aiMapping"`
	Message   string                  `json:"message"`
}

// ScanForm handles POST /scan-form
func (h *ScanHandler) ScanForm(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.URL == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidationField("url", "URL is required"))
		return
	}

	result, err := h.service.ScanForm(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("Form scan failed", zap.String("url", req.URL), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	s := result.Schema
	httputil.JSON(w, http.StatusOK, singleScanResponse{
		Success: true,
		Scan: singleScanBody{
			URL:            s.URL,
			FieldCount:     s.FieldCount(),
			ButtonCount:    len(s.Buttons),
			Fields:         s.Fields,
			Buttons:        s.Buttons,
			StepIndicators: s.StepIndicators,
		},
		AIMapping: result.Mapping,
		Message: fmt.Sprintf("Form scanned successfully with %d fields. %s",
			s.FieldCount(), mappingTail(result.Mapping)),
	})
}

type multiScanBody struct {
	TotalPages   int               `json:"totalPages"`
	TotalFields  int               `json:"totalFields"`
	TotalButtons int               `json:"totalButtons"`
	Pages        []domain.PageScan `json:"pages"`
}

type multiScanResponse struct {
	Success   bool                    `json:"success"`
	Scan      multiScanBody           `json:"scan"`
	AIMapping *autofill.MappingReport `json:"aiMapping"`
	Message   string                  `json:"message"`
}

// ScanMultiPage handles POST /scan-multi-page-form
func (h *ScanHandler) ScanMultiPage(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.URL == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidationField("url", "URL is required"))
		return
	}

	result, err := h.service.ScanMultiPageForm(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		h.logger.Error("Multi-page scan failed", zap.String("url", req.URL), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	s := result.Schema
	httputil.JSON(w, http.StatusOK, multiScanResponse{
		Success: true,
		Scan: multiScanBody{
			TotalPages:   s.TotalPages,
			TotalFields:  s.TotalFields,
			TotalButtons: s.TotalButtons,
			Pages:        s.Pages,
		},
		AIMapping: result.Mapping,
		Message: fmt.Sprintf("Scanned %d pages with %d fields. %s",
			s.TotalPages, s.TotalFields, mappingTail(result.Mapping)),
	})
}
