// Package bridge is the extension-facing message boundary: it accepts
// popup/background messages, drives the autofill service, and delivers
// execution payloads to the page-side runner.
package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/services/autofill"
)

// Message actions understood by the dispatcher.
const (
	ActionRequestAutofill = "REQUEST_AUTOFILL"
	ActionExecuteAutofill = "EXECUTE_AUTOFILL"
)

// Message is an inbound extension message.
type Message struct {
	Action  string                `json:"action"`
	URL     string                `json:"url,omitempty"`
	Dataset *domain.DatasetConfig `json:"dataset,omitempty"`
}

// Metadata summarizes an autofill run for the extension UI.
type Metadata struct {
	TotalFields   int       `json:"totalFields"`
	MissingFields int       `json:"missingFields"`
	Timestamp     time.Time `json:"timestamp"`
}

// Ack is the response to a REQUEST_AUTOFILL message.
type Ack struct {
	Success     bool      `json:"success"`
	FieldsCount int       `json:"fieldsCount,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ExecutePayload is the EXECUTE_AUTOFILL message delivered to the
// executor running in the page.
type ExecutePayload struct {
	Action   string                   `json:"action"`
	Commands []domain.AutofillCommand `json:"commands"`
	Metadata *Metadata                `json:"metadata"`
}

// Executor delivers execution payloads to the page-side runner. The
// runner itself lives outside this system.
type Executor interface {
	Execute(ctx context.Context, payload ExecutePayload) error
}

// AutofillService is the slice of the pipeline service the dispatcher
// depends on.
type AutofillService interface {
	DirectAutofill(ctx context.Context, url string, dataset *domain.DatasetConfig) (*autofill.AutofillResult, error)
}

// Dispatcher routes extension messages.
type Dispatcher struct {
	service  AutofillService
	executor Executor
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher. executor may be nil when no
// page-side runner is attached; commands are then only acknowledged.
func NewDispatcher(service AutofillService, executor Executor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{service: service, executor: executor, logger: logger}
}

// Dispatch handles one inbound message. Failures come back as a
// non-success Ack rather than an error so the extension always receives
// a well-formed response.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Ack {
	switch msg.Action {
	case ActionRequestAutofill:
		return d.handleAutofillRequest(ctx, msg)
	default:
		return Ack{Success: false, Error: "unknown action: " + msg.Action}
	}
}

func (d *Dispatcher) handleAutofillRequest(ctx context.Context, msg Message) Ack {
	if msg.URL == "" {
		return Ack{Success: false, Error: "URL is required"}
	}

	result, err := d.service.DirectAutofill(ctx, msg.URL, msg.Dataset)
	if err != nil {
		d.logger.Warn("autofill request failed",
			zap.String("url", msg.URL),
			zap.Error(err))
		return Ack{Success: false, Error: err.Error()}
	}

	meta := &Metadata{
		TotalFields:   result.TotalFields,
		MissingFields: len(result.MissingFields),
		Timestamp:     result.Timestamp,
	}

	if d.executor != nil {
		payload := ExecutePayload{
			Action:   ActionExecuteAutofill,
			Commands: result.Commands,
			Metadata: meta,
		}
		if err := d.executor.Execute(ctx, payload); err != nil {
			d.logger.Warn("delivering execute payload failed",
				zap.String("url", msg.URL),
				zap.Error(err))
			return Ack{Success: false, Error: err.Error()}
		}
	}

	return Ack{
		Success:     true,
		FieldsCount: len(result.Commands),
		Metadata:    meta,
	}
}
