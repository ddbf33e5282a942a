package transform

import (
	"context"
	"time"

	"github.com/formflux/formflux/internal/logging"
	"go.uber.org/zap"
)

// Observability thresholds. Exceeding them logs a warning; it is never an
// error condition.
const (
	slowStepThreshold     = 100 * time.Millisecond
	slowPipelineThreshold = 500 * time.Millisecond
)

// Step is one element of a transform pipeline definition.
type Step struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// StepTrace records one executed step for observability and debugging.
type StepTrace struct {
	Index      int         `json:"index"`
	Type       string      `json:"type"`
	Output     interface{} `json:"output"`
	DurationMs int64       `json:"duration_ms"`
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Output     interface{} `json:"output"`
	Steps      []StepTrace `json:"steps"`
	DurationMs int64       `json:"duration_ms"`
}

// Engine runs transform pipelines against a registry. The engine is
// stateless; all behavior lives in the registered transforms.
type Engine struct {
	registry *Registry
	logger   logging.Logger
}

// NewEngine builds an engine over the given registry.
func NewEngine(registry *Registry, logger logging.Logger) *Engine {
	return &Engine{registry: registry, logger: logger}
}

// Execute validates the whole pipeline up front, then runs steps strictly
// in order, each step's output feeding the next step's input. Validation is
// all-or-nothing: a bad step fails the call before anything runs.
func (e *Engine) Execute(ctx context.Context, input interface{}, steps []Step) (*Result, error) {
	if err := e.validate(steps); err != nil {
		return nil, err
	}

	start := time.Now()
	current := input
	traces := make([]StepTrace, 0, len(steps))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StepError{StepIndex: i, StepType: step.Type, cause: err}
		}

		t, _ := e.registry.Get(step.Type)

		stepStart := time.Now()
		output, err := t.Apply(current, step.Params)
		stepDur := time.Since(stepStart)

		if err != nil {
			return nil, &StepError{StepIndex: i, StepType: step.Type, cause: err}
		}

		if stepDur > slowStepThreshold {
			e.logger.Warn("slow transform step",
				zap.Int("step_index", i),
				zap.String("step_type", step.Type),
				zap.Duration("duration", stepDur))
		}

		traces = append(traces, StepTrace{
			Index:      i,
			Type:       step.Type,
			Output:     output,
			DurationMs: stepDur.Milliseconds(),
		})
		current = output
	}

	total := time.Since(start)
	if total > slowPipelineThreshold {
		e.logger.Warn("slow transform pipeline",
			zap.Int("steps", len(steps)),
			zap.Duration("duration", total))
	}

	return &Result{
		Output:     current,
		Steps:      traces,
		DurationMs: total.Milliseconds(),
	}, nil
}

func (e *Engine) validate(steps []Step) error {
	for i, step := range steps {
		t, ok := e.registry.Get(step.Type)
		if !ok {
			return NewValidationError(i, step.Type, "unknown transform type")
		}
		for _, param := range t.RequiredParams {
			if _, present := step.Params[param]; !present {
				return NewValidationError(i, step.Type, "missing required parameter %q", param)
			}
		}
	}
	return nil
}
