// Package autofill wires the scan-normalize-map-synthesize pipeline
// behind one service: scanning forms, configuring datasets, running
// mappings, and producing executable autofill commands.
package autofill

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/artifacts"
	"github.com/formbridge/formbridge/internal/browser"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/mapping"
	"github.com/formbridge/formbridge/internal/observability"
	"github.com/formbridge/formbridge/internal/schema"
)

// Scanner is the page-extraction boundary.
type Scanner interface {
	ScanPage(ctx context.Context, url string) (*browser.ExtractResult, error)
	ScanWizard(ctx context.Context, url string, maxPages int) ([]browser.PageSnapshot, error)
}

// Mapper runs the mapping pipeline over a schema.
type Mapper interface {
	Map(ctx context.Context, schema *domain.FormSchema, dataset *domain.DatasetConfig) *domain.MappingOutcome
}

// Service drives the autofill pipeline end to end.
type Service struct {
	scanner     Scanner
	normalizer  *schema.Normalizer
	builder     *schema.Builder
	schemaCache cache.SchemaCache
	store       artifacts.Store
	mapper      Mapper
	synthesizer *mapping.Synthesizer
	logger      *zap.Logger

	now func() time.Time
}

// NewService creates the pipeline service.
func NewService(scanner Scanner, schemaCache cache.SchemaCache, store artifacts.Store, mapper Mapper, logger *zap.Logger) *Service {
	return &Service{
		scanner:     scanner,
		normalizer:  schema.NewNormalizer(),
		builder:     schema.NewBuilder(),
		schemaCache: schemaCache,
		store:       store,
		mapper:      mapper,
		synthesizer: mapping.NewSynthesizer(),
		logger:      logger,
		now:         time.Now,
	}
}

// MappingReport describes the mapping run attached to a scan response.
// A missing dataset skips mapping without invalidating the scan.
type MappingReport struct {
	Success bool                   `json:"success"`
	Skipped bool                   `json:"skipped,omitempty"`
	Message string                 `json:"message,omitempty"`
	Result  *domain.MappingOutcome `json:"result,omitempty"`
}

// ScanResult is a completed single-page scan plus its mapping report.
type ScanResult struct {
	Schema  *domain.FormSchema
	Raw     map[string]domain.RawField
	Mapping *MappingReport
}

// MultiScanResult is a completed wizard scan plus its mapping report
// over the aggregated fields.
type MultiScanResult struct {
	Schema  *domain.MultiPageSchema
	Raw     map[string]domain.RawField
	Mapping *MappingReport
}

// AutofillResult carries the synthesized commands for one direct
// autofill request.
type AutofillResult struct {
	Commands      []domain.AutofillCommand
	TotalFields   int
	MissingFields []domain.MissingField
	Timestamp     time.Time
	FromCache     bool
}

// ScanForm scans a single-page form: extract, normalize, build the
// schema, persist it, cache it, then run mapping automatically. A
// mapping problem never invalidates the scan.
func (s *Service) ScanForm(ctx context.Context, url string) (*ScanResult, error) {
	formSchema, raw, err := s.scan(ctx, url)
	if err != nil {
		return nil, err
	}

	return &ScanResult{
		Schema:  formSchema,
		Raw:     raw,
		Mapping: s.autoMap(ctx, formSchema),
	}, nil
}

// scan extracts, normalizes, persists, and caches one page without
// running mapping. DirectAutofill uses it directly so a cache miss
// triggers exactly one mapping run.
func (s *Service) scan(ctx context.Context, url string) (*domain.FormSchema, map[string]domain.RawField, error) {
	start := s.now()

	ext, err := s.scanner.ScanPage(ctx, url)
	if err != nil {
		observability.GetMetrics().RecordScan("single", "failure", 0, time.Since(start))
		return nil, nil, err
	}

	normalized := s.normalizer.Normalize(ext.Fields)
	formSchema := s.builder.BuildSchema(url, normalized, ext.Buttons, ext.StepIndicators)
	raw := rawLookup(ext.Fields, normalized)

	s.persistSchema(ctx, artifacts.KeyContactSchema, formSchema)
	if err := s.schemaCache.Put(ctx, formSchema); err != nil {
		s.logger.Warn("caching schema failed", zap.String("url", url), zap.Error(err))
	}

	observability.GetMetrics().RecordScan("single", "success", formSchema.FieldCount(), time.Since(start))
	s.logger.Info("form scanned",
		zap.String("url", url),
		zap.Int("fields", formSchema.FieldCount()),
		zap.Int("buttons", len(formSchema.Buttons)))

	return formSchema, raw, nil
}

// ScanMultiPageForm walks a wizard form page by page, persists the
// aggregate schema, and maps over the merged field set.
func (s *Service) ScanMultiPageForm(ctx context.Context, url string, maxPages int) (*MultiScanResult, error) {
	start := s.now()

	snapshots, err := s.scanner.ScanWizard(ctx, url, maxPages)
	if err != nil {
		observability.GetMetrics().RecordScan("multi_page", "failure", 0, time.Since(start))
		return nil, err
	}

	multi := &domain.MultiPageSchema{
		StartURL:  url,
		ScannedAt: s.now().UTC(),
	}
	merged := domain.NewFieldMap()
	raw := make(map[string]domain.RawField)

	for _, snap := range snapshots {
		normalized := s.normalizer.Normalize(snap.Result.Fields)
		pageSchema := s.builder.BuildSchema(snap.URL, normalized, snap.Result.Buttons, snap.Result.StepIndicators)

		multi.Pages = append(multi.Pages, domain.PageScan{
			Page:   snap.Page,
			URL:    snap.URL,
			Schema: pageSchema,
		})
		multi.TotalFields += pageSchema.FieldCount()
		multi.TotalButtons += len(pageSchema.Buttons)

		pageSchema.Fields.Range(func(key string, fd domain.FieldDescriptor) bool {
			merged.Set(key, fd)
			return true
		})
		for k, v := range rawLookup(snap.Result.Fields, normalized) {
			raw[k] = v
		}
	}
	multi.TotalPages = len(multi.Pages)

	s.persistJSON(ctx, artifacts.KeyMultiPageSchema, multi)

	// The aggregate schema feeds mapping and the per-URL cache so a
	// later direct autofill of the same wizard reuses it.
	aggregate := &domain.FormSchema{
		URL:       url,
		ScannedAt: multi.ScannedAt,
		Fields:    merged,
	}
	if err := s.schemaCache.Put(ctx, aggregate); err != nil {
		s.logger.Warn("caching aggregate schema failed", zap.String("url", url), zap.Error(err))
	}

	observability.GetMetrics().RecordScan("multi_page", "success", multi.TotalFields, time.Since(start))
	s.logger.Info("multi-page form scanned",
		zap.String("url", url),
		zap.Int("pages", multi.TotalPages),
		zap.Int("total_fields", multi.TotalFields))

	return &MultiScanResult{
		Schema:  multi,
		Raw:     raw,
		Mapping: s.autoMap(ctx, aggregate),
	}, nil
}

// ConfigureDataset stores the dataset configuration as the canonical
// latest record, plus a timestamped processed-data snapshot when one is
// attached.
func (s *Service) ConfigureDataset(ctx context.Context, cfg *domain.DatasetConfig) (string, error) {
	if cfg == nil || cfg.Type == "" {
		return "", domain.ErrValidationField("type", "dataset type is required")
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", domain.ErrInternal("marshaling dataset config").WithCause(err)
	}
	if err := s.store.Put(ctx, artifacts.KeyDatasetConfig, data); err != nil {
		return "", err
	}

	if cfg.Local != nil && cfg.Local.ProcessedData != nil {
		s.persistProcessedData(ctx, cfg.Local.ProcessedData)
	}

	s.logger.Info("dataset configured",
		zap.String("type", cfg.Type),
		zap.String("summary", cfg.Summary()))

	return cfg.Summary(), nil
}

// DirectAutofill maps a form straight to commands: cached schema when
// the URL matches exactly, a fresh scan otherwise.
func (s *Service) DirectAutofill(ctx context.Context, url string, datasetOverride *domain.DatasetConfig) (*AutofillResult, error) {
	formSchema, hit, err := s.schemaCache.Get(ctx, url)
	if err != nil {
		s.logger.Warn("schema cache lookup failed", zap.String("url", url), zap.Error(err))
		hit = false
	}
	observability.GetMetrics().RecordCacheLookup(hit)

	var raw map[string]domain.RawField
	if !hit {
		formSchema, raw, err = s.scan(ctx, url)
		if err != nil {
			return nil, err
		}
	}

	dataset := datasetOverride
	if dataset == nil {
		dataset, err = s.latestDataset(ctx)
		if err != nil {
			return nil, err
		}
	}

	outcome := s.mapper.Map(ctx, formSchema, dataset)
	if !outcome.Successful() && outcome.Error != "" {
		return nil, domain.ErrMappingFailed(errors.New(outcome.Error))
	}

	commands := s.synthesizer.Synthesize(outcome.MappedFields, formSchema.Fields, raw)

	return &AutofillResult{
		Commands:      commands,
		TotalFields:   formSchema.FieldCount(),
		MissingFields: outcome.MissingFields,
		Timestamp:     s.now().UTC(),
		FromCache:     hit,
	}, nil
}

// RunMapping re-runs mapping over the most recently scanned form, the
// manual retry entry point after a failed automatic run.
func (s *Service) RunMapping(ctx context.Context) (*MappingReport, error) {
	data, err := s.store.Get(ctx, artifacts.KeyContactSchema)
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrValidation("No form schema found. Please scan a form first.")
		}
		return nil, err
	}

	var formSchema domain.FormSchema
	if err := json.Unmarshal(data, &formSchema); err != nil {
		return nil, domain.ErrInternal("stored form schema is corrupt").WithCause(err)
	}

	dataset, err := s.latestDataset(ctx)
	if err != nil {
		return nil, err
	}

	outcome := s.mapper.Map(ctx, &formSchema, dataset)
	return reportFor(outcome), nil
}

// LatestMapping returns the newest mapping audit record.
func (s *Service) LatestMapping(ctx context.Context) (string, json.RawMessage, error) {
	key, data, err := s.store.GetLatest(ctx, artifacts.PrefixMapping)
	if err != nil {
		return "", nil, err
	}
	return key, data, nil
}

// LatestProcessedData returns the newest processed-data snapshot and
// how many snapshots exist.
func (s *Service) LatestProcessedData(ctx context.Context) (string, json.RawMessage, int, error) {
	key, data, err := s.store.GetLatest(ctx, artifacts.PrefixProcessedData)
	if err != nil {
		return "", nil, 0, err
	}
	keys, err := s.store.List(ctx, artifacts.PrefixProcessedData)
	if err != nil {
		return "", nil, 0, err
	}
	return key, data, len(keys), nil
}

// LatestDatasetConfig returns the stored dataset configuration.
func (s *Service) LatestDatasetConfig(ctx context.Context) (*domain.DatasetConfig, error) {
	return s.latestDataset(ctx)
}

// autoMap runs mapping after a scan. A missing dataset skips mapping;
// nothing here can fail the scan.
func (s *Service) autoMap(ctx context.Context, formSchema *domain.FormSchema) *MappingReport {
	dataset, err := s.latestDataset(ctx)
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeConfigMissing) {
			s.logger.Info("no dataset configured, skipping mapping")
			return &MappingReport{
				Success: false,
				Skipped: true,
				Message: "No dataset configuration found",
			}
		}
		s.logger.Error("loading dataset config failed", zap.Error(err))
		return &MappingReport{Success: false, Message: err.Error()}
	}

	return reportFor(s.mapper.Map(ctx, formSchema, dataset))
}

// reportFor derives the report shape from a mapping outcome: a chunked
// run succeeds when at least one chunk mapped fields, a single-shot run
// when the engine reported no error.
func reportFor(outcome *domain.MappingOutcome) *MappingReport {
	success := outcome.Error == ""
	if outcome.Chunked {
		success = outcome.Successful()
	}
	return &MappingReport{
		Success: success,
		Message: outcome.Error,
		Result:  outcome,
	}
}

// latestDataset loads the stored dataset configuration, translating a
// missing record into the config-missing error.
func (s *Service) latestDataset(ctx context.Context) (*domain.DatasetConfig, error) {
	data, err := s.store.Get(ctx, artifacts.KeyDatasetConfig)
	if err != nil {
		if domain.HasErrorCode(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrConfigMissing()
		}
		return nil, err
	}

	var cfg domain.DatasetConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, domain.ErrInternal("stored dataset config is corrupt").WithCause(err)
	}
	return &cfg, nil
}

func (s *Service) persistSchema(ctx context.Context, key string, formSchema *domain.FormSchema) {
	s.persistJSON(ctx, key, formSchema)
}

func (s *Service) persistJSON(ctx context.Context, key string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("marshaling artifact", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		s.logger.Error("persisting artifact", zap.String("key", key), zap.Error(err))
	}
}

// persistProcessedData writes a timestamped snapshot of client-side
// processed dataset files. The timestamp comes from the snapshot's own
// processedAt when present.
func (s *Service) persistProcessedData(ctx context.Context, processed map[string]any) {
	ts := s.now().UTC()
	if at, ok := processed["processedAt"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, at); err == nil {
			ts = parsed.UTC()
		}
	}
	data, err := json.MarshalIndent(processed, "", "  ")
	if err != nil {
		s.logger.Error("marshaling processed data", zap.Error(err))
		return
	}
	key := artifacts.TimestampedKey(artifacts.PrefixProcessedData, ts)
	if err := s.store.Put(ctx, key, data); err != nil {
		s.logger.Error("persisting processed data", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Info("processed data saved", zap.String("key", key))
}

// rawLookup indexes raw descriptors by their resolved identity so the
// synthesizer can derive selectors from original attributes.
func rawLookup(raw []domain.RawField, normalized []domain.NormalizedField) map[string]domain.RawField {
	out := make(map[string]domain.RawField, len(raw))
	for i, n := range normalized {
		if i < len(raw) {
			out[n.FinalName] = raw[i]
		}
	}
	return out
}
