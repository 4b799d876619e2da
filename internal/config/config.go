package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// HTTP server
	Server ServerConfig

	// Headless browser
	Browser BrowserConfig

	// Mapping engine (LLM)
	LLM LLMConfig

	// Mapping orchestration
	Mapping MappingConfig

	// Redis (schema cache + rate limiting)
	Redis RedisConfig

	// Artifact storage
	Storage StorageConfig

	// Rate limits
	RateLimits RateLimitConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"formbridge"`
	Version  string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `envconfig:"SERVER_MAX_REQUEST_SIZE" default:"52428800"` // 50MB
}

// BrowserConfig holds headless browser settings
type BrowserConfig struct {
	Headless       bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	NavTimeout     time.Duration `envconfig:"BROWSER_NAV_TIMEOUT" default:"60s"`
	SettleWait     time.Duration `envconfig:"BROWSER_SETTLE_WAIT" default:"2s"`
	ViewportWidth  int           `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int           `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1080"`
	UserAgent      string        `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	MaxWizardPages int           `envconfig:"BROWSER_MAX_WIZARD_PAGES" default:"10"`
}

// LLMConfig holds mapping engine settings. The endpoint and key are
// always injected from the environment, never embedded in source.
type LLMConfig struct {
	APIKey       string        `envconfig:"LLM_API_KEY" required:"true"`
	BaseURL      string        `envconfig:"LLM_BASE_URL" default:"https://ollama.com/api/chat"`
	Model        string        `envconfig:"LLM_MODEL" default:"glm-4.6"`
	MaxTokens    int           `envconfig:"LLM_MAX_TOKENS" default:"4000"`
	Temperature  float64       `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	Timeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`
	RateLimitRPM int           `envconfig:"LLM_RATE_LIMIT_RPM" default:"50"`
}

// MappingConfig holds chunking strategy settings
type MappingConfig struct {
	ChunkThreshold  int           `envconfig:"MAPPING_CHUNK_THRESHOLD" default:"10"`
	ChunkSize       int           `envconfig:"MAPPING_CHUNK_SIZE" default:"5"`
	InterChunkDelay time.Duration `envconfig:"MAPPING_INTER_CHUNK_DELAY" default:"1s"`
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds artifact storage settings
type StorageConfig struct {
	Type string `envconfig:"STORAGE_TYPE" default:"fs"` // fs, minio

	// Filesystem backend
	Dir string `envconfig:"STORAGE_DIR" default:"./data"`

	// MinIO/S3 backend
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"formbridge"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// RateLimitConfig holds API rate limiting settings
type RateLimitConfig struct {
	Enabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMin int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MIN" default:"60"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config without failing on missing required
// fields (for CLI tools that only scan). envconfig stops at the first
// missing required key, leaving every later section untouched, so the
// sections after LLM are processed individually when the key is absent.
func LoadWithDefaults() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		envconfig.Process("", &cfg.Mapping)
		envconfig.Process("", &cfg.Redis)
		envconfig.Process("", &cfg.Storage)
		envconfig.Process("", &cfg.RateLimits)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required")
	}
	if c.Mapping.ChunkSize <= 0 {
		errs = append(errs, "MAPPING_CHUNK_SIZE must be positive")
	}
	if c.Storage.Type != "fs" && c.Storage.Type != "minio" {
		errs = append(errs, "STORAGE_TYPE must be fs or minio")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
