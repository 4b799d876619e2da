package mapping

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/artifacts"
	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/observability"
)

// Orchestrator chooses single-shot vs chunked mapping, drives the
// engine, merges partial results, and persists an audit record of every
// run.
type Orchestrator struct {
	engine Engine
	store  artifacts.Store
	logger *zap.Logger

	chunkThreshold int
	chunkSize      int
	delay          time.Duration

	now func() time.Time
}

// NewOrchestrator creates an Orchestrator with the configured chunking
// strategy.
func NewOrchestrator(engine Engine, store artifacts.Store, cfg config.MappingConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		engine:         engine,
		store:          store,
		logger:         logger,
		chunkThreshold: cfg.ChunkThreshold,
		chunkSize:      cfg.ChunkSize,
		delay:          cfg.InterChunkDelay,
		now:            time.Now,
	}
}

// auditRecord is the immutable, timestamp-named artifact written after
// every run. Never read back by the orchestrator itself.
type auditRecord struct {
	Timestamp      time.Time              `json:"timestamp"`
	FormURL        string                 `json:"formUrl"`
	FormFieldCount int                    `json:"formFieldCount"`
	Chunked        bool                   `json:"chunked"`
	DatasetUsed    datasetSummary         `json:"datasetUsed"`
	MappingResult  *domain.MappingOutcome `json:"mappingResult"`
}

type datasetSummary struct {
	Type      string `json:"type"`
	LastSaved string `json:"lastSaved,omitempty"`
	Summary   string `json:"summary"`
}

// Map runs the mapping pipeline over a form schema. Engine failures are
// captured inside the returned outcome, never raised: a scan is never
// invalidated by a mapping problem, and chunked runs tolerate partial
// failure.
func (o *Orchestrator) Map(ctx context.Context, schema *domain.FormSchema, dataset *domain.DatasetConfig) *domain.MappingOutcome {
	fieldCount := schema.FieldCount()
	start := time.Now()

	var outcome *domain.MappingOutcome
	if fieldCount > o.chunkThreshold {
		o.logger.Info("mapping form in chunks",
			zap.String("url", schema.URL),
			zap.Int("field_count", fieldCount),
			zap.Int("chunk_size", o.chunkSize))
		outcome = o.mapChunked(ctx, schema, dataset)
	} else {
		o.logger.Info("mapping form single-shot",
			zap.String("url", schema.URL),
			zap.Int("field_count", fieldCount))
		outcome = o.mapSingleShot(ctx, schema, dataset)
	}

	observability.GetMetrics().RecordMappingRun(outcome.Chunked, outcome.Successful(), time.Since(start))
	o.persistAudit(ctx, schema, dataset, outcome)
	return outcome
}

func (o *Orchestrator) mapSingleShot(ctx context.Context, schema *domain.FormSchema, dataset *domain.DatasetConfig) *domain.MappingOutcome {
	result, err := o.engine.Evaluate(ctx, Request{FormFields: schema.Fields, Dataset: dataset})
	if err != nil {
		o.logger.Error("single-shot mapping failed", zap.Error(err))
		return &domain.MappingOutcome{
			MappedFields:  []domain.MappedField{},
			MissingFields: []domain.MissingField{},
			Error:         err.Error(),
		}
	}

	return &domain.MappingOutcome{
		MappedFields:  result.MappedFields,
		MissingFields: result.MissingFields,
	}
}

// mapChunked partitions the field mapping into fixed-size groups and
// evaluates them sequentially with a fixed inter-chunk delay. One
// chunk's failure never aborts the batch.
func (o *Orchestrator) mapChunked(ctx context.Context, schema *domain.FormSchema, dataset *domain.DatasetConfig) *domain.MappingOutcome {
	chunks := schema.Fields.Slice(o.chunkSize)

	outcome := &domain.MappingOutcome{
		MappedFields:  []domain.MappedField{},
		MissingFields: []domain.MissingField{},
		Chunked:       true,
		TotalChunks:   len(chunks),
	}

	for i, chunk := range chunks {
		if i > 0 {
			if err := o.wait(ctx); err != nil {
				o.logger.Warn("chunked mapping aborted",
					zap.Int("completed_chunks", i),
					zap.Error(err))
				break
			}
		}

		result, err := o.engine.Evaluate(ctx, Request{FormFields: chunk, Dataset: dataset})
		if err != nil {
			observability.GetMetrics().RecordMappingChunk(false)
			o.logger.Warn("chunk failed, continuing",
				zap.Int("chunk", i+1),
				zap.Int("total_chunks", len(chunks)),
				zap.Error(err))
			continue
		}

		observability.GetMetrics().RecordMappingChunk(true)
		outcome.MappedFields = append(outcome.MappedFields, result.MappedFields...)
		outcome.MissingFields = append(outcome.MissingFields, result.MissingFields...)
		outcome.SuccessfulChunks++
	}

	o.logger.Info("chunked mapping finished",
		zap.Int("total_chunks", outcome.TotalChunks),
		zap.Int("successful_chunks", outcome.SuccessfulChunks),
		zap.Int("mapped_fields", len(outcome.MappedFields)))

	return outcome
}

// wait sleeps for the inter-chunk delay, honoring context cancellation.
func (o *Orchestrator) wait(ctx context.Context) error {
	if o.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// persistAudit writes the run's audit record under a fresh timestamped
// key. A storage failure degrades the audit trail but never the run.
func (o *Orchestrator) persistAudit(ctx context.Context, schema *domain.FormSchema, dataset *domain.DatasetConfig, outcome *domain.MappingOutcome) {
	record := auditRecord{
		Timestamp:      o.now().UTC(),
		FormURL:        schema.URL,
		FormFieldCount: schema.FieldCount(),
		Chunked:        outcome.Chunked,
		MappingResult:  outcome,
		DatasetUsed: datasetSummary{
			Summary: dataset.Summary(),
		},
	}
	if dataset != nil {
		record.DatasetUsed.Type = dataset.Type
		record.DatasetUsed.LastSaved = dataset.LastSaved
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		o.logger.Error("marshaling mapping audit record", zap.Error(err))
		return
	}

	key := artifacts.TimestampedKey(artifacts.PrefixMapping, record.Timestamp)
	if err := o.store.Put(ctx, key, data); err != nil {
		o.logger.Error("persisting mapping audit record",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	o.logger.Debug("mapping audit record saved", zap.String("key", key))
}
