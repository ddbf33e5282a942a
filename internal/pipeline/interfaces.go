package pipeline

import (
	"context"
	"encoding/json"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/models"
)

// TriggerStore loads tenant trigger configuration for matching.
type TriggerStore interface {
	ListActiveTriggers(ctx context.Context, tenantID, eventType string) ([]models.Trigger, error)
}

// ExecutionStore persists per-action execution records.
type ExecutionStore interface {
	CreateActionExecution(ctx context.Context, exec *models.ActionExecution) error
	CompleteActionExecution(ctx context.Context, executionID string, status models.ExecutionStatus, response, errMsg *string) error
}

// Escalator hands an exhausted action failure to the dead-letter subsystem.
type Escalator interface {
	Escalate(ctx context.Context, event *models.Event, trigger *models.Trigger, action *models.Action, cause error) (*models.DeadLetterEntry, error)
}

// Sender abstracts the outbound gateway for testability.
type Sender interface {
	Send(ctx context.Context, connectorID, tenantID string, req gateway.Request) (*gateway.Response, error)
}

// ActionExecutor runs one non-HTTP action type. Implementations live
// outside the pipeline (email, SMS, CRM providers); the pipeline treats
// them uniformly through this contract.
type ActionExecutor interface {
	Execute(ctx context.Context, config json.RawMessage, eventData map[string]interface{}) (string, error)
}
