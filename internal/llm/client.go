// Package llm is a thin chat-completion client. It knows nothing about
// forms or mapping; callers own prompt construction and response
// interpretation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/observability"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completion wire request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// ChatResponse is the chat-completion wire response. Token counts are
// optional; not every provider reports them.
type ChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptTokens     int `json:"prompt_eval_count,omitempty"`
	CompletionTokens int `json:"eval_count,omitempty"`
}

// Metrics tracks client usage across the process lifetime.
type Metrics struct {
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	PromptTokens     int64
	CompletionTokens int64
	TotalLatencyMs   int64
}

// Client calls a chat-completion endpoint with client-side rate
// limiting. Safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	metrics Metrics
}

// NewClient creates a Client from the LLM section of the app config.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrValidationField("llm_api_key", "LLM API key is required")
	}

	rpm := cfg.RateLimitRPM
	if rpm <= 0 {
		rpm = 50
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}, nil
}

// Complete sends a single user prompt and returns the raw assistant
// text. No response parsing happens here.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt64(&c.metrics.TotalRequests, 1)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return "", domain.ErrInternal("LLM rate limiter wait aborted").WithCause(err)
	}

	start := time.Now()

	resp, err := c.doRequest(ctx, ChatRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	})
	if err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		observability.GetMetrics().RecordLLMRequest(c.model, "failure", time.Since(start), 0, 0)
		return "", err
	}

	atomic.AddInt64(&c.metrics.SuccessRequests, 1)
	atomic.AddInt64(&c.metrics.PromptTokens, int64(resp.PromptTokens))
	atomic.AddInt64(&c.metrics.CompletionTokens, int64(resp.CompletionTokens))
	atomic.AddInt64(&c.metrics.TotalLatencyMs, time.Since(start).Milliseconds())
	observability.GetMetrics().RecordLLMRequest(c.model, "success", time.Since(start), resp.PromptTokens, resp.CompletionTokens)

	return resp.Message.Content, nil
}

func (c *Client) doRequest(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.ErrInternal("marshaling chat request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrInternal("creating chat request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrExternalAPI("llm", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrExternalAPI("llm", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrExternalAPI("llm", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 512))).
			WithMetadata("status", resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, domain.ErrExternalAPI("llm", fmt.Errorf("malformed response envelope: %w", err))
	}
	return &chatResp, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// GetMetrics returns a snapshot of usage counters.
func (c *Client) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&c.metrics.TotalRequests),
		SuccessRequests:  atomic.LoadInt64(&c.metrics.SuccessRequests),
		FailedRequests:   atomic.LoadInt64(&c.metrics.FailedRequests),
		PromptTokens:     atomic.LoadInt64(&c.metrics.PromptTokens),
		CompletionTokens: atomic.LoadInt64(&c.metrics.CompletionTokens),
		TotalLatencyMs:   atomic.LoadInt64(&c.metrics.TotalLatencyMs),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
