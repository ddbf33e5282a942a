package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/deadletter"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/testutil/fakes"
	"github.com/formflux/formflux/internal/transform"
	"github.com/formflux/formflux/pkg/clock"
)

type pipelineFixture struct {
	service    *Service
	triggers   *fakes.FakeTriggerStore
	executions *fakes.FakeExecutionStore
	deadStore  *fakes.FakeDeadLetterStore
	sender     *fakes.FakeSender
	executors  *ExecutorRegistry
}

func newPipelineFixture() *pipelineFixture {
	logger := logging.NewNoOpLogger()
	triggers := fakes.NewFakeTriggerStore()
	executions := fakes.NewFakeExecutionStore()
	deadStore := fakes.NewFakeDeadLetterStore()
	sender := fakes.NewFakeSender()
	executors := NewExecutorRegistry()
	escalator := deadletter.NewService(deadStore, executions, nil, logger)

	service := NewService(
		triggers,
		executions,
		escalator,
		sender,
		executors,
		transform.NewEngine(transform.NewRegistry(), logger),
		logger,
		clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	)
	return &pipelineFixture{
		service:    service,
		triggers:   triggers,
		executions: executions,
		deadStore:  deadStore,
		sender:     sender,
		executors:  executors,
	}
}

func testEvent() models.Event {
	return models.Event{
		ID:         "evt-1",
		TenantID:   "tenant-1",
		EventType:  "form.submitted",
		SourceType: models.SourceTypeForm,
		Data:       map[string]interface{}{"amount": 150.0, "name": "  Núria  "},
		OccurredAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func webhookAction(id string, critical bool) models.Action {
	return models.Action{
		ID:         id,
		TriggerID:  "trig-1",
		Order:      1,
		ActionType: models.ActionSendWebhook,
		Config:     json.RawMessage(`{"connector_id":"conn-1","url":"https://example.com/hook"}`),
		IsCritical: critical,
	}
}

func TestProcessEvent_WhenTriggerHasNoConditions_ThenActionExecutes(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions:       []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{JobID: "job-1", Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, f.sender.SentCount())
	exec := f.executions.LatestExecution()
	require.NotNil(t, exec)
	assert.Equal(t, models.ExecutionStatusSuccess, exec.Status)
	assert.Equal(t, "act-1", exec.ActionID)
}

func TestProcessEvent_WhenConditionsNotMet_ThenTriggerSkipped(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:        "trig-1",
		TenantID:  "tenant-1",
		EventType: "form.submitted",
		Status:    models.TriggerStatusActive,
		Conditions: []models.Condition{
			{Field: "amount", Operator: models.OperatorGreaterThan, Value: 1000},
		},
		Actions: []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, f.sender.SentCount())
	assert.Empty(t, f.executions.Executions)
}

func TestProcessEvent_WhenConditionMatches_ThenWebhookDelivered(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:        "trig-1",
		TenantID:  "tenant-1",
		EventType: "form.submitted",
		Status:    models.TriggerStatusActive,
		Conditions: []models.Condition{
			{Field: "amount", Operator: models.OperatorGreaterThan, Value: 100},
		},
		Actions: []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	require.Equal(t, 1, f.sender.SentCount())
	sent := f.sender.Requests[0]
	assert.Equal(t, "https://example.com/hook", sent.URL)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(sent.Body, &payload))
	assert.Equal(t, "evt-1", payload["event_id"])
	assert.Equal(t, "form.submitted", payload["event_type"])
}

func TestProcessEvent_WhenStopOnFirstError_ThenRemainingActionsSkipped(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.sender.Err = errors.New("connector down")
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions: []models.Action{
			webhookAction("act-1", false),
			webhookAction("act-2", false),
		},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	var execErr *ActionExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "act-1", execErr.ActionID)
	assert.Equal(t, 1, f.sender.SentCount())
	require.Len(t, f.executions.Executions, 1)
	assert.Equal(t, models.ExecutionStatusFailed, f.executions.Executions[0].Status)
}

func TestProcessEvent_WhenContinueOnError_ThenAllActionsAttempted(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.sender.Err = errors.New("connector down")
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.ContinueOnError,
		Actions: []models.Action{
			webhookAction("act-1", false),
			webhookAction("act-2", false),
		},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, f.sender.SentCount())
	assert.Len(t, f.executions.Executions, 2)
}

func TestProcessEvent_WhenOneTriggerFails_ThenSiblingsStillRun(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	failing := fakes.NewFakeActionExecutor()
	failing.Err = errors.New("smtp relay rejected")
	f.executors.Register(models.ActionSendEmail, failing)

	f.triggers.Seed(models.Trigger{
		ID:            "trig-email",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Priority:      10,
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions: []models.Action{{
			ID:         "act-email",
			TriggerID:  "trig-email",
			ActionType: models.ActionSendEmail,
			Config:     json.RawMessage(`{"to":"ops@example.com"}`),
		}},
	})
	f.triggers.Seed(models.Trigger{
		ID:            "trig-webhook",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Priority:      5,
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions:       []models.Action{webhookAction("act-hook", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	var execErr *ActionExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "act-email", execErr.ActionID)
	assert.Equal(t, 1, f.sender.SentCount())
}

func TestProcessEvent_WhenCriticalActionFails_ThenEscalatesToDeadLetter(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.sender.Err = errors.New("connector down")
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions:       []models.Action{webhookAction("act-1", true)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.Error(t, err)
	assert.Equal(t, 1, f.deadStore.Count())
	entry, getErr := f.deadStore.GetDeadLetterByKey(context.Background(), "evt-1", "trig-1", "act-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DeadLetterStatusPending, entry.Status)
	assert.Contains(t, entry.LastError, "connector down")
}

func TestProcessEvent_WhenNonCriticalFailsEarly_ThenNoEscalation(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.sender.Err = errors.New("connector down")
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions:       []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.Error(t, err)
	assert.Equal(t, 0, f.deadStore.Count())
}

func TestProcessEvent_WhenAttemptsExhausting_ThenNonCriticalEscalatesToo(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.sender.Err = errors.New("connector down")
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions:       []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 3})

	// Assert
	require.Error(t, err)
	assert.Equal(t, 1, f.deadStore.Count())
}

func TestProcessEvent_WhenDisabledTrigger_ThenNeverMatched(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:        "trig-1",
		TenantID:  "tenant-1",
		EventType: "form.submitted",
		Status:    models.TriggerStatusDisabled,
		Actions:   []models.Action{webhookAction("act-1", false)},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, f.sender.SentCount())
}

func TestProcessEvent_WhenActionConfigInvalid_ThenValidationErrorWithoutDispatch(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:            "trig-1",
		TenantID:      "tenant-1",
		EventType:     "form.submitted",
		Status:        models.TriggerStatusActive,
		ErrorHandling: models.StopOnFirstError,
		Actions: []models.Action{{
			ID:         "act-1",
			TriggerID:  "trig-1",
			ActionType: models.ActionSendWebhook,
			Config:     json.RawMessage(`{"url":"https://example.com/hook"}`),
		}},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.Error(t, err)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, f.sender.SentCount())
}

func TestProcessEvent_WhenTransformsConfigured_ThenPayloadFieldsTransformed(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	f.triggers.Seed(models.Trigger{
		ID:        "trig-1",
		TenantID:  "tenant-1",
		EventType: "form.submitted",
		Status:    models.TriggerStatusActive,
		Actions: []models.Action{{
			ID:         "act-1",
			TriggerID:  "trig-1",
			ActionType: models.ActionSendWebhook,
			Config: json.RawMessage(`{
				"connector_id": "conn-1",
				"url": "https://example.com/hook",
				"transforms": {
					"name": [{"type": "trim"}, {"type": "strip_diacritics"}]
				}
			}`),
		}},
	})

	// Act
	err := f.service.ProcessEvent(context.Background(), models.EventJob{Event: testEvent(), Attempt: 1})

	// Assert
	require.NoError(t, err)
	require.Equal(t, 1, f.sender.SentCount())

	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(f.sender.Requests[0].Body, &payload))
	assert.Equal(t, "Nuria", payload.Data["name"])
	// The original event is never mutated by payload transforms.
	assert.Equal(t, 150.0, payload.Data["amount"])
}

func TestExecuteAction_WhenNonHTTPType_ThenDispatchesToRegisteredExecutor(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	executor := fakes.NewFakeActionExecutor()
	executor.Result = "email queued"
	f.executors.Register(models.ActionSendEmail, executor)
	event := testEvent()
	action := models.Action{
		ID:         "act-1",
		ActionType: models.ActionSendEmail,
		Config:     json.RawMessage(`{"to":"ops@example.com","subject":"hi"}`),
	}

	// Act
	result, err := f.service.ExecuteAction(context.Background(), &event, &action)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "email queued", result)
	assert.Equal(t, 1, executor.Calls())
}

func TestExecuteAction_WhenExecutorMissing_ThenValidationError(t *testing.T) {
	// Arrange
	f := newPipelineFixture()
	event := testEvent()
	action := models.Action{
		ID:         "act-1",
		ActionType: models.ActionCreateTask,
		Config:     json.RawMessage(`{"title":"follow up"}`),
	}

	// Act
	_, err := f.service.ExecuteAction(context.Background(), &event, &action)

	// Assert
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "no executor registered")
}
