package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "formbridge", cfg.App.Name)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://ollama.com/api/chat", cfg.LLM.BaseURL)
	assert.Equal(t, "glm-4.6", cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 10, cfg.Mapping.ChunkThreshold)
	assert.Equal(t, 5, cfg.Mapping.ChunkSize)
	assert.Equal(t, time.Second, cfg.Mapping.InterChunkDelay)
	assert.Equal(t, 10, cfg.Browser.MaxWizardPages)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("MAPPING_CHUNK_SIZE", "3")
	t.Setenv("MAPPING_INTER_CHUNK_DELAY", "250ms")
	t.Setenv("STORAGE_TYPE", "minio")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Mapping.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Mapping.InterChunkDelay)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadWithDefaults_NoAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	cfg, err := LoadWithDefaults()
	require.NoError(t, err)

	// The sections declared after LLM still get their defaults even
	// though envconfig stops at the missing required key.
	assert.Equal(t, "formbridge", cfg.App.Name)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10, cfg.Browser.MaxWizardPages)
	assert.Equal(t, 10, cfg.Mapping.ChunkThreshold)
	assert.Equal(t, 5, cfg.Mapping.ChunkSize)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, 60, cfg.RateLimits.RequestsPerMin)
}

func TestValidate(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("STORAGE_TYPE", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_TYPE")
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.internal", Port: 6380}
	assert.Equal(t, "redis.internal:6380", cfg.Addr())
}

func TestGetLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	assert.Equal(t, "warn", cfg.GetLogLevel())

	cfg.Debug = true
	assert.Equal(t, "debug", cfg.GetLogLevel())
}
