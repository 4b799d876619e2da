package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/services/autofill"
)

type fakeService struct {
	scanResult      *autofill.ScanResult
	scanErr         error
	multiResult     *autofill.MultiScanResult
	configureTo     string
	configureErr    error
	directResult    *autofill.AutofillResult
	directErr       error
	runReport       *autofill.MappingReport
	runErr          error
	mappingKey      string
	mappingData     json.RawMessage
	mappingErr      error
	processedKey    string
	processedData   json.RawMessage
	processedCount  int
	processedErr    error
	datasetConfig   *domain.DatasetConfig
	datasetErr      error
	lastURL         string
	lastMaxPages    int
	lastDataset     *domain.DatasetConfig
	configuredWith  *domain.DatasetConfig
}

func (f *fakeService) ScanForm(_ context.Context, url string) (*autofill.ScanResult, error) {
	f.lastURL = url
	return f.scanResult, f.scanErr
}

func (f *fakeService) ScanMultiPageForm(_ context.Context, url string, maxPages int) (*autofill.MultiScanResult, error) {
	f.lastURL = url
	f.lastMaxPages = maxPages
	return f.multiResult, f.scanErr
}

func (f *fakeService) ConfigureDataset(_ context.Context, cfg *domain.DatasetConfig) (string, error) {
	f.configuredWith = cfg
	return f.configureTo, f.configureErr
}

func (f *fakeService) DirectAutofill(_ context.Context, url string, dataset *domain.DatasetConfig) (*autofill.AutofillResult, error) {
	f.lastURL = url
	f.lastDataset = dataset
	return f.directResult, f.directErr
}

func (f *fakeService) RunMapping(context.Context) (*autofill.MappingReport, error) {
	return f.runReport, f.runErr
}

func (f *fakeService) LatestMapping(context.Context) (string, json.RawMessage, error) {
	return f.mappingKey, f.mappingData, f.mappingErr
}

func (f *fakeService) LatestProcessedData(context.Context) (string, json.RawMessage, int, error) {
	return f.processedKey, f.processedData, f.processedCount, f.processedErr
}

func (f *fakeService) LatestDatasetConfig(context.Context) (*domain.DatasetConfig, error) {
	return f.datasetConfig, f.datasetErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func getJSON(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleSchema() *domain.FormSchema {
	fields := domain.NewFieldMap()
	fields.Set("orgName", domain.FieldDescriptor{Label: "Organization Name", Type: "text"})
	fields.Set("contact_email", domain.FieldDescriptor{Label: "Email", Type: "email"})
	return &domain.FormSchema{
		URL:       "https://example.org/apply",
		ScannedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Fields:    fields,
		Buttons:   []domain.RawButton{{ButtonType: "submit", Purpose: "submit", Text: "Submit"}},
	}
}

func TestScanForm(t *testing.T) {
	svc := &fakeService{
		scanResult: &autofill.ScanResult{
			Schema:  sampleSchema(),
			Mapping: &autofill.MappingReport{Success: true},
		},
	}
	h := NewScanHandler(svc, zap.NewNop())

	rec := postJSON(t, h.ScanForm, `{"url":"https://example.org/apply"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Form scanned successfully with 2 fields. AI mapping completed.", body["message"])

	scan := body["scan"].(map[string]any)
	assert.Equal(t, "https://example.org/apply", scan["url"])
	assert.Equal(t, float64(2), scan["fieldCount"])
	assert.Equal(t, float64(1), scan["buttonCount"])
	assert.Contains(t, scan["fields"], "orgName")
	assert.Equal(t, "https://example.org/apply", svc.lastURL)
}

func TestScanForm_SkippedMapping(t *testing.T) {
	svc := &fakeService{
		scanResult: &autofill.ScanResult{
			Schema:  sampleSchema(),
			Mapping: &autofill.MappingReport{Skipped: true, Message: "No dataset configuration found"},
		},
	}
	h := NewScanHandler(svc, zap.NewNop())

	rec := postJSON(t, h.ScanForm, `{"url":"https://example.org/apply"}`)

	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "AI mapping skipped - no dataset configured.")
}

func TestScanForm_URLRequired(t *testing.T) {
	h := NewScanHandler(&fakeService{}, zap.NewNop())

	rec := postJSON(t, h.ScanForm, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestScanForm_ExtractionFailure(t *testing.T) {
	svc := &fakeService{scanErr: domain.ErrExtractionFailed("https://example.org/apply", assert.AnError)}
	h := NewScanHandler(svc, zap.NewNop())

	rec := postJSON(t, h.ScanForm, `{"url":"https://example.org/apply"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, domain.ErrCodeExtractionFailed, errObj["code"])
}

func TestScanMultiPage(t *testing.T) {
	svc := &fakeService{
		multiResult: &autofill.MultiScanResult{
			Schema: &domain.MultiPageSchema{
				StartURL:    "https://example.org/wizard",
				TotalPages:  3,
				TotalFields: 12,
				Pages: []domain.PageScan{
					{Page: 1, URL: "https://example.org/wizard"},
					{Page: 2, URL: "https://example.org/wizard?page=2"},
					{Page: 3, URL: "https://example.org/wizard?page=3"},
				},
			},
			Mapping: &autofill.MappingReport{Success: false, Skipped: false},
		},
	}
	h := NewScanHandler(svc, zap.NewNop())

	rec := postJSON(t, h.ScanMultiPage, `{"url":"https://example.org/wizard","maxPages":5}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Scanned 3 pages with 12 fields. AI mapping failed - check logs.", body["message"])
	scan := body["scan"].(map[string]any)
	assert.Equal(t, float64(3), scan["totalPages"])
	assert.Len(t, scan["pages"], 3)
	assert.Equal(t, 5, svc.lastMaxPages)
}

func TestConfigureDataset(t *testing.T) {
	svc := &fakeService{configureTo: "4 files"}
	h := NewDatasetHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Configure, `{"type":"local","lastSaved":"2025-06-01T10:00:00Z","local":{"totalFiles":4}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "dataset-config.json", body["savedAs"])
	cfg := body["config"].(map[string]any)
	assert.Equal(t, "local", cfg["type"])
	assert.Equal(t, "4 files", cfg["summary"])
	require.NotNil(t, svc.configuredWith)
	assert.Equal(t, 4, svc.configuredWith.Local.TotalFiles)
}

func TestConfigureDataset_TypeRequired(t *testing.T) {
	svc := &fakeService{configureErr: domain.ErrValidationField("type", "dataset type is required")}
	h := NewDatasetHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Configure, `{"local":{"totalFiles":1}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessedData(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		svc := &fakeService{processedErr: domain.ErrNotFound("artifact", "processed-data")}
		h := NewDatasetHandler(svc, zap.NewNop())

		rec := getJSON(t, h.ProcessedData)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, []any{}, body["data"])
		assert.Equal(t, "No processed data available", body["message"])
	})

	t.Run("latest", func(t *testing.T) {
		svc := &fakeService{
			processedKey:   "processed-data/processed-data-2025-06-01T10-00-00-000Z.json",
			processedData:  json.RawMessage(`{"files":[]}`),
			processedCount: 3,
		}
		h := NewDatasetHandler(svc, zap.NewNop())

		rec := getJSON(t, h.ProcessedData)

		body := decodeBody(t, rec)
		assert.Equal(t, "processed-data-2025-06-01T10-00-00-000Z.json", body["filename"])
		assert.Equal(t, float64(3), body["availableFiles"])
	})
}

func TestDatasetTest(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := &fakeService{datasetErr: domain.ErrConfigMissing()}
		h := NewDatasetHandler(svc, zap.NewNop())

		rec := getJSON(t, h.Test)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["configured"])
	})

	t.Run("configured", func(t *testing.T) {
		svc := &fakeService{datasetConfig: &domain.DatasetConfig{
			Type:  "google-drive",
			Drive: &domain.DriveDataset{Type: "folder", ID: "abc"},
		}}
		h := NewDatasetHandler(svc, zap.NewNop())

		rec := getJSON(t, h.Test)

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["configured"])
		cfg := body["config"].(map[string]any)
		assert.Equal(t, "Google Drive folder", cfg["summary"])
	})
}

func TestLatestMapping(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		svc := &fakeService{mappingErr: domain.ErrNotFound("artifact", "mapping")}
		h := NewMappingHandler(svc, zap.NewNop())

		rec := getJSON(t, h.Latest)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Nil(t, body["data"])
		assert.Equal(t, "No AI mapping results available", body["message"])
	})

	t.Run("latest", func(t *testing.T) {
		svc := &fakeService{
			mappingKey:  "ai-mappings/mapping-2025-06-01T10-30-00-123Z.json",
			mappingData: json.RawMessage(`{"formUrl":"https://example.org/apply"}`),
		}
		h := NewMappingHandler(svc, zap.NewNop())

		rec := getJSON(t, h.Latest)

		body := decodeBody(t, rec)
		assert.Equal(t, "mapping-2025-06-01T10-30-00-123Z.json", body["filename"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "https://example.org/apply", data["formUrl"])
	})
}

func TestRunMapping(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeService{runReport: &autofill.MappingReport{
			Success: true,
			Result:  &domain.MappingOutcome{MappedFields: []domain.MappedField{{FieldID: "orgName"}}},
		}}
		h := NewMappingHandler(svc, zap.NewNop())

		rec := postJSON(t, h.Run, `{}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
	})

	t.Run("no schema yet", func(t *testing.T) {
		svc := &fakeService{runErr: domain.ErrValidation("No form schema found. Please scan a form first.")}
		h := NewMappingHandler(svc, zap.NewNop())

		rec := postJSON(t, h.Run, `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDirectAutofill(t *testing.T) {
	value := "Helping Hands"
	svc := &fakeService{directResult: &autofill.AutofillResult{
		Commands: []domain.AutofillCommand{
			{FieldID: "orgName", Selector: "#orgName", Value: value, Action: domain.ActionFill},
		},
		TotalFields: 2,
		MissingFields: []domain.MissingField{
			{Label: "PAN", Reason: "not in dataset"},
		},
		Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		FromCache: true,
	}}
	h := NewAutofillHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Direct, `{"url":"https://example.org/apply"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["fromCache"])
	assert.Len(t, body["commands"], 1)
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, float64(2), meta["totalFields"])
	assert.Len(t, meta["missingFields"], 1)
}

func TestDirectAutofill_URLRequired(t *testing.T) {
	h := NewAutofillHandler(&fakeService{}, zap.NewNop())

	rec := postJSON(t, h.Direct, `{"dataset":{"type":"local"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDirectAutofill_DatasetOverride(t *testing.T) {
	svc := &fakeService{directResult: &autofill.AutofillResult{}}
	h := NewAutofillHandler(svc, zap.NewNop())

	postJSON(t, h.Direct, `{"url":"https://example.org/apply","dataset":{"type":"local","local":{"totalFiles":2}}}`)

	require.NotNil(t, svc.lastDataset)
	assert.Equal(t, "local", svc.lastDataset.Type)
}
