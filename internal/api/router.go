// Package api wires the chi router for the autofill backend.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/api/handlers"
	"github.com/formbridge/formbridge/internal/api/middleware"
	"github.com/formbridge/formbridge/internal/bridge"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/observability"
	"github.com/formbridge/formbridge/pkg/httputil"
)

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Service    handlers.Service
	Dispatcher *bridge.Dispatcher
	RateLimit  *cache.RedisCache // nil disables Redis-backed rate limiting
	Metrics    *observability.Metrics
	Logger     *zap.Logger

	EnableCORS     bool
	RequestsPerMin int
	Model          string
	APIConfigured  bool
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	r.Use(chimw.Timeout(5 * time.Minute)) // scans drive a real browser

	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
	}

	// CORS configuration; the extension popup calls from a browser origin
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Rate limiting (if Redis is available)
	if cfg.RateLimit != nil && cfg.RequestsPerMin > 0 {
		r.Use(middleware.NewRateLimitMiddleware(cfg.RateLimit, cfg.RequestsPerMin, true).Handler)
	}

	scanHandler := handlers.NewScanHandler(cfg.Service, cfg.Logger)
	datasetHandler := handlers.NewDatasetHandler(cfg.Service, cfg.Logger)
	mappingHandler := handlers.NewMappingHandler(cfg.Service, cfg.Logger)
	autofillHandler := handlers.NewAutofillHandler(cfg.Service, cfg.Logger)

	r.Get("/", infoHandler(cfg))
	r.Get("/health", healthHandler)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Post("/scan-form", scanHandler.ScanForm)
	r.Post("/scan-multi-page-form", scanHandler.ScanMultiPage)
	r.Post("/run-ai-mapping", mappingHandler.Run)

	r.Route("/api", func(r chi.Router) {
		r.Route("/dataset", func(r chi.Router) {
			r.Post("/configure", datasetHandler.Configure)
			r.Get("/processed-data", datasetHandler.ProcessedData)
			r.Get("/test", datasetHandler.Test)
		})
		r.Get("/ai-mapping/latest", mappingHandler.Latest)
		r.Post("/autofill/direct", autofillHandler.Direct)
	})

	if cfg.Dispatcher != nil {
		r.Post("/extension/message", extensionHandler(cfg.Dispatcher))
	}

	return &Router{
		Router: r,
		logger: cfg.Logger,
	}
}

// infoHandler returns the service banner with its route map
func infoHandler(cfg RouterConfig) http.HandlerFunc {
	keyStatus := "missing"
	if cfg.APIConfigured {
		keyStatus = "configured"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]any{
			"message":      "Autofill backend is running",
			"model":        cfg.Model,
			"apiKeyStatus": keyStatus,
			"endpoints": map[string]string{
				"GET  /":                           "Health check",
				"POST /api/dataset/configure":      "Receive dataset configuration",
				"GET  /api/dataset/processed-data": "Get latest processed data",
				"GET  /api/dataset/test":           "Check for a configured dataset",
				"POST /scan-form":                  "Scan single page form (auto AI mapping)",
				"POST /scan-multi-page-form":       "Scan multi-page forms (auto AI mapping)",
				"GET  /api/ai-mapping/latest":      "Get latest AI mapping result",
				"POST /api/autofill/direct":        "Map a form straight to fill commands",
				"POST /run-ai-mapping":             "Manually run AI mapping",
				"POST /extension/message":          "Extension message bridge",
			},
		})
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "formbridge-api",
	})
}

// extensionHandler adapts the bridge dispatcher to HTTP. The ack is
// always 200; failures ride inside the body like every extension
// message exchange.
func extensionHandler(d *bridge.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg bridge.Message
		if err := httputil.DecodeJSON(r, &msg); err != nil {
			httputil.ErrorFromDomain(w, err)
			return
		}

		ack := d.Dispatch(r.Context(), msg)
		httputil.JSON(w, http.StatusOK, ack)
	}
}
