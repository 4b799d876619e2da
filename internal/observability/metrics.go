package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Scan metrics
	FormScansTotal  *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec
	FieldsExtracted *prometheus.HistogramVec

	// Mapping metrics
	MappingRunsTotal    *prometheus.CounterVec
	MappingChunksTotal  *prometheus.CounterVec
	MappingDuration     *prometheus.HistogramVec
	CommandsSynthesized prometheus.Counter

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensUsed      *prometheus.CounterVec

	// Cache metrics
	SchemaCacheHits   prometheus.Counter
	SchemaCacheMisses prometheus.Counter
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "formbridge"
	}

	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		// Scan metrics
		FormScansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_scans_total",
				Help:      "Total number of form scans",
			},
			[]string{"mode", "status"}, // mode: single, multi_page
		),
		ScanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Form scan duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"mode"},
		),
		FieldsExtracted: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fields_extracted",
				Help:      "Number of schema fields produced per scan",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"mode"},
		),

		// Mapping metrics
		MappingRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_runs_total",
				Help:      "Total number of mapping runs",
			},
			[]string{"mode", "status"}, // mode: single_shot, chunked
		),
		MappingChunksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_chunks_total",
				Help:      "Total number of mapping chunks processed",
			},
			[]string{"status"},
		),
		MappingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mapping_duration_seconds",
				Help:      "Mapping run duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		CommandsSynthesized: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_synthesized_total",
				Help:      "Total number of autofill commands synthesized",
			},
		),

		// LLM metrics
		LLMRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM API requests",
			},
			[]string{"model", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM API request duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"model", "type"}, // type: prompt, completion
		),

		// Cache metrics
		SchemaCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_cache_hits_total",
				Help:      "Total number of schema cache hits",
			},
		),
		SchemaCacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_cache_misses_total",
				Help:      "Total number of schema cache misses",
			},
		),
	}

	return m
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScan records form scan metrics
func (m *Metrics) RecordScan(mode, status string, fieldCount int, duration time.Duration) {
	m.FormScansTotal.WithLabelValues(mode, status).Inc()
	m.ScanDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.FieldsExtracted.WithLabelValues(mode).Observe(float64(fieldCount))
}

// RecordMappingRun records mapping run metrics
func (m *Metrics) RecordMappingRun(chunked, successful bool, duration time.Duration) {
	mode := "single_shot"
	if chunked {
		mode = "chunked"
	}
	status := "failure"
	if successful {
		status = "success"
	}
	m.MappingRunsTotal.WithLabelValues(mode, status).Inc()
	m.MappingDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordMappingChunk records the outcome of one mapping chunk
func (m *Metrics) RecordMappingChunk(successful bool) {
	status := "failure"
	if successful {
		status = "success"
	}
	m.MappingChunksTotal.WithLabelValues(status).Inc()
}

// RecordLLMRequest records LLM API metrics
func (m *Metrics) RecordLLMRequest(model, status string, duration time.Duration, promptTokens, completionTokens int) {
	m.LLMRequestsTotal.WithLabelValues(model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.LLMTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.LLMTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordCacheLookup records a schema cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.SchemaCacheHits.Inc()
	} else {
		m.SchemaCacheMisses.Inc()
	}
}

// RecordCommands records synthesized autofill commands
func (m *Metrics) RecordCommands(count int) {
	m.CommandsSynthesized.Add(float64(count))
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		m.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Global metrics instance
var globalMetrics *Metrics

// InitMetrics initializes the global metrics instance
func InitMetrics(namespace string) *Metrics {
	globalMetrics = NewMetrics(namespace)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		globalMetrics = NewMetrics("formbridge")
	}
	return globalMetrics
}
