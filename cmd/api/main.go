package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formbridge/formbridge/internal/api"
	"github.com/formbridge/formbridge/internal/artifacts"
	"github.com/formbridge/formbridge/internal/bridge"
	"github.com/formbridge/formbridge/internal/browser"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/mapping"
	"github.com/formbridge/formbridge/internal/observability"
	"github.com/formbridge/formbridge/internal/services/autofill"
)

func main() {
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Env, cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting FormBridge API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
	)

	metrics := observability.InitMetrics(cfg.App.Name)

	// Headless browser
	b, err := browser.New(cfg.Browser, logger)
	if err != nil {
		logger.Fatal("Failed to launch browser", zap.Error(err))
	}
	defer b.Close()
	logger.Info("Browser launched", zap.Bool("headless", cfg.Browser.Headless))

	// Artifact storage
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	// Schema cache; Redis when enabled, in-process otherwise
	var schemaCache cache.SchemaCache
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, using in-memory schema cache", zap.Error(err))
		} else {
			defer redisCache.Close()
			schemaCache = redisCache
			logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
		}
	}
	if schemaCache == nil {
		schemaCache = cache.NewMemoryCache()
	}

	// Mapping engine
	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	engine := mapping.NewLLMEngine(client, logger)
	orchestrator := mapping.NewOrchestrator(engine, store, cfg.Mapping, logger)

	// Pipeline service + extension bridge
	scanner := browser.NewScanner(b, logger)
	service := autofill.NewService(scanner, schemaCache, store, orchestrator, logger)
	dispatcher := bridge.NewDispatcher(service, nil, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		Service:        service,
		Dispatcher:     dispatcher,
		RateLimit:      rateLimitCache(redisCache, cfg),
		Metrics:        metrics,
		Logger:         logger,
		EnableCORS:     true,
		RequestsPerMin: cfg.RateLimits.RequestsPerMin,
		Model:          cfg.LLM.Model,
		APIConfigured:  cfg.LLM.APIKey != "",
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// newStore builds the configured artifact backend.
func newStore(cfg *config.Config, logger *zap.Logger) (artifacts.Store, error) {
	switch cfg.Storage.Type {
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := artifacts.NewMinIOStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		logger.Info("Artifact storage ready",
			zap.String("backend", "minio"),
			zap.String("bucket", cfg.Storage.Bucket))
		return store, nil
	default:
		store, err := artifacts.NewFSStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("Artifact storage ready",
			zap.String("backend", "fs"),
			zap.String("dir", cfg.Storage.Dir))
		return store, nil
	}
}

// rateLimitCache returns the Redis handle for rate limiting, or nil
// when rate limiting is disabled or Redis is unavailable.
func rateLimitCache(redisCache *cache.RedisCache, cfg *config.Config) *cache.RedisCache {
	if !cfg.RateLimits.Enabled {
		return nil
	}
	return redisCache
}

// initLogger creates a configured zap logger
func initLogger(env config.Environment, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if env == config.EnvProduction {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
