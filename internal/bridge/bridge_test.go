package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
	"github.com/formbridge/formbridge/internal/services/autofill"
)

type fakeAutofill struct {
	result *autofill.AutofillResult
	err    error
	urls   []string
}

func (f *fakeAutofill) DirectAutofill(_ context.Context, url string, _ *domain.DatasetConfig) (*autofill.AutofillResult, error) {
	f.urls = append(f.urls, url)
	return f.result, f.err
}

type fakeExecutor struct {
	payloads []ExecutePayload
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, payload ExecutePayload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

func sampleResult() *autofill.AutofillResult {
	return &autofill.AutofillResult{
		Commands: []domain.AutofillCommand{
			{FieldID: "orgName", Selector: "#orgName", Value: "Helping Hands", Action: domain.ActionFill},
		},
		TotalFields:   5,
		MissingFields: []domain.MissingField{{Label: "PAN", Reason: "not in dataset"}},
		Timestamp:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatch_RequestAutofill(t *testing.T) {
	service := &fakeAutofill{result: sampleResult()}
	executor := &fakeExecutor{}
	d := NewDispatcher(service, executor, zap.NewNop())

	ack := d.Dispatch(context.Background(), Message{
		Action: ActionRequestAutofill,
		URL:    "https://example.org/apply",
	})

	assert.True(t, ack.Success)
	assert.Equal(t, 1, ack.FieldsCount)
	require.NotNil(t, ack.Metadata)
	assert.Equal(t, 5, ack.Metadata.TotalFields)
	assert.Equal(t, 1, ack.Metadata.MissingFields)

	// The executor received an EXECUTE_AUTOFILL payload with the same
	// commands and metadata.
	require.Len(t, executor.payloads, 1)
	assert.Equal(t, ActionExecuteAutofill, executor.payloads[0].Action)
	assert.Len(t, executor.payloads[0].Commands, 1)
	assert.Equal(t, ack.Metadata, executor.payloads[0].Metadata)

	assert.Equal(t, []string{"https://example.org/apply"}, service.urls)
}

func TestDispatch_RequestAutofill_NoExecutor(t *testing.T) {
	d := NewDispatcher(&fakeAutofill{result: sampleResult()}, nil, zap.NewNop())

	ack := d.Dispatch(context.Background(), Message{
		Action: ActionRequestAutofill,
		URL:    "https://example.org/apply",
	})

	assert.True(t, ack.Success)
	assert.Equal(t, 1, ack.FieldsCount)
}

func TestDispatch_ServiceFailure(t *testing.T) {
	d := NewDispatcher(&fakeAutofill{err: errors.New("no dataset configured")}, &fakeExecutor{}, zap.NewNop())

	ack := d.Dispatch(context.Background(), Message{
		Action: ActionRequestAutofill,
		URL:    "https://example.org/apply",
	})

	assert.False(t, ack.Success)
	assert.Equal(t, "no dataset configured", ack.Error)
	assert.Nil(t, ack.Metadata)
}

func TestDispatch_ExecutorFailure(t *testing.T) {
	d := NewDispatcher(&fakeAutofill{result: sampleResult()}, &fakeExecutor{err: errors.New("tab closed")}, zap.NewNop())

	ack := d.Dispatch(context.Background(), Message{
		Action: ActionRequestAutofill,
		URL:    "https://example.org/apply",
	})

	assert.False(t, ack.Success)
	assert.Equal(t, "tab closed", ack.Error)
}

func TestDispatch_Validation(t *testing.T) {
	d := NewDispatcher(&fakeAutofill{}, nil, zap.NewNop())

	t.Run("missing URL", func(t *testing.T) {
		ack := d.Dispatch(context.Background(), Message{Action: ActionRequestAutofill})
		assert.False(t, ack.Success)
		assert.Equal(t, "URL is required", ack.Error)
	})

	t.Run("unknown action", func(t *testing.T) {
		ack := d.Dispatch(context.Background(), Message{Action: "SELF_DESTRUCT"})
		assert.False(t, ack.Success)
		assert.Contains(t, ack.Error, "unknown action")
	})
}
