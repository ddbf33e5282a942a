package pipeline

import (
	"fmt"

	"github.com/formflux/formflux/internal/models"
)

// ValidationError represents bad action configuration. It is surfaced
// immediately and never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError creates a new validation error.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ActionExecutionError wraps any failure that occurred while executing one
// action, carrying enough identity for the worker layer and dead-letter
// subsystem to act on it.
type ActionExecutionError struct {
	EventID    string
	TriggerID  string
	ActionID   string
	ActionType models.ActionType
	cause      error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s (%s) failed for event %s: %v", e.ActionID, e.ActionType, e.EventID, e.cause)
}

func (e *ActionExecutionError) Unwrap() error { return e.cause }
