package mapping

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
)

// Completer abstracts the chat-completion client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMEngine evaluates mapping requests against a language model.
type LLMEngine struct {
	client Completer
	logger *zap.Logger
}

// NewLLMEngine creates an engine backed by the given completion client.
func NewLLMEngine(client Completer, logger *zap.Logger) *LLMEngine {
	return &LLMEngine{client: client, logger: logger}
}

// Evaluate sends one mapping request and parses the model's answer.
// Transport failures and unparseable output both surface as errors; a
// *Result is returned only for a well-formed mapping.
func (e *LLMEngine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, domain.ErrMappingFailed(err)
	}

	payload, ok := ExtractJSON(raw)
	if !ok {
		e.logger.Warn("no JSON object in model output",
			zap.Int("response_len", len(raw)))
		return nil, domain.ErrMappingParseFailed("no JSON object found in model output")
	}

	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		e.logger.Warn("model output failed to parse",
			zap.Error(err),
			zap.Int("payload_len", len(payload)))
		return nil, domain.ErrMappingParseFailed(err.Error())
	}

	e.logger.Debug("mapping evaluated",
		zap.Int("mapped_fields", len(result.MappedFields)),
		zap.Int("missing_fields", len(result.MissingFields)))

	return &result, nil
}

// ExtractJSON recovers the JSON object from raw model output that may
// carry surrounding prose or code-fence markers: trim, then take the
// substring from the first "{" to the last "}" inclusive. Returns false
// when either bracket is absent.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
