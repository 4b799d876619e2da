package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:       "test-api-key",
		BaseURL:      baseURL,
		Model:        "glm-4.6",
		MaxTokens:    4000,
		Temperature:  0.3,
		Timeout:      5 * time.Second,
		RateLimitRPM: 6000,
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.LLMConfig{BaseURL: "https://ollama.com/api/chat"})
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeValidation))
}

func TestClient_Complete(t *testing.T) {
	var captured ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := ChatResponse{PromptTokens: 120, CompletionTokens: 48}
		resp.Message.Role = "assistant"
		resp.Message.Content = `{"mappedFields": []}`
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "map these fields")
	require.NoError(t, err)
	assert.Equal(t, `{"mappedFields": []}`, text)

	// Request carries the configured generation parameters and never
	// asks for a stream.
	assert.Equal(t, "glm-4.6", captured.Model)
	assert.Equal(t, 4000, captured.MaxTokens)
	assert.InDelta(t, 0.3, captured.Temperature, 1e-9)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "map these fields", captured.Messages[0].Content)

	m := client.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(1), m.SuccessRequests)
	assert.Equal(t, int64(120), m.PromptTokens)
	assert.Equal(t, int64(48), m.CompletionTokens)
}

func TestClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "map these fields")
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeExternalAPI))

	m := client.GetMetrics()
	assert.Equal(t, int64(1), m.FailedRequests)
	assert.Equal(t, int64(0), m.SuccessRequests)
}

func TestClient_Complete_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeExternalAPI))
}

func TestClient_Complete_ContextCanceled(t *testing.T) {
	client, err := NewClient(testConfig("http://127.0.0.1:0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, "prompt")
	require.Error(t, err)
}
