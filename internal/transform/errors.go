package transform

import "fmt"

// ValidationError reports a bad pipeline definition: an unknown transform
// type or a missing required parameter. Raised before any step runs.
type ValidationError struct {
	StepIndex int
	StepType  string
	msg       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transform step %d (%s): %s", e.StepIndex, e.StepType, e.msg)
}

// NewValidationError creates a validation error for one step.
func NewValidationError(index int, stepType, format string, args ...interface{}) error {
	return &ValidationError{
		StepIndex: index,
		StepType:  stepType,
		msg:       fmt.Sprintf(format, args...),
	}
}

// StepError reports a runtime failure inside one step. The pipeline aborts
// at the failing step.
type StepError struct {
	StepIndex int
	StepType  string
	cause     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transform step %d (%s) failed: %v", e.StepIndex, e.StepType, e.cause)
}

func (e *StepError) Unwrap() error { return e.cause }
