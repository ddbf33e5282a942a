package pipeline

import (
	"context"
	"encoding/json"

	"github.com/formflux/formflux/internal/models"
)

// ExecutorRegistry maps non-HTTP action types to their executors. Like the
// transform registry, it is built once at startup and read-only during
// request processing.
type ExecutorRegistry struct {
	executors map[models.ActionType]ActionExecutor
}

// NewExecutorRegistry builds an empty registry; main wires the concrete
// executors (email, SMS, CRM providers).
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[models.ActionType]ActionExecutor)}
}

// Register binds an executor to an action type. Re-binding replaces the
// previous executor; only startup and tests may do this.
func (r *ExecutorRegistry) Register(actionType models.ActionType, executor ActionExecutor) {
	r.executors[actionType] = executor
}

// Execute dispatches to the executor for the action type. An unknown type
// is a validation error, not a crash.
func (r *ExecutorRegistry) Execute(ctx context.Context, actionType models.ActionType, config json.RawMessage, eventData map[string]interface{}) (string, error) {
	executor, ok := r.executors[actionType]
	if !ok {
		return "", NewValidationError("no executor registered for action type %q", actionType)
	}
	return executor.Execute(ctx, config, eventData)
}
