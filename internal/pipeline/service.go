package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/transform"
	"github.com/formflux/formflux/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// escalationAttemptThreshold is the queue-level attempt count at or above
// which any action failure is escalated to the dead-letter subsystem, even
// for non-critical actions. This counter is distinct from the gateway's
// in-call retry counter.
const escalationAttemptThreshold = 3

// Service matches incoming events against tenant triggers and executes the
// matched triggers' actions in order.
type Service struct {
	triggers   TriggerStore
	executions ExecutionStore
	escalator  Escalator
	gateway    Sender
	executors  *ExecutorRegistry
	transforms *transform.Engine
	logger     logging.Logger
	clock      clock.Clock
}

// NewService wires the pipeline.
func NewService(
	triggers TriggerStore,
	executions ExecutionStore,
	escalator Escalator,
	sender Sender,
	executors *ExecutorRegistry,
	transforms *transform.Engine,
	logger logging.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		triggers:   triggers,
		executions: executions,
		escalator:  escalator,
		gateway:    sender,
		executors:  executors,
		transforms: transforms,
		logger:     logger,
		clock:      clk,
	}
}

// ProcessEvent runs trigger matching and action execution for one event job.
// Triggers are processed in descending priority. A failure inside one
// trigger never affects its siblings; the first trigger-aborting failure is
// returned so the queue layer can apply its retry policy.
func (s *Service) ProcessEvent(ctx context.Context, job models.EventJob) error {
	event := job.Event

	triggers, err := s.triggers.ListActiveTriggers(ctx, event.TenantID, event.EventType)
	if err != nil {
		return fmt.Errorf("load triggers for tenant %s event %s: %w", event.TenantID, event.EventType, err)
	}

	s.logger.Debug("matched trigger candidates",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.EventType),
		zap.Int("candidates", len(triggers)))

	var firstErr error
	for i := range triggers {
		if err := s.runTrigger(ctx, &event, &triggers[i], job.Attempt); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ExecuteAction runs a single action against a frozen event outside normal
// matching. The dead-letter subsystem replays snapshots through this path
// so replay and live execution share one contract.
func (s *Service) ExecuteAction(ctx context.Context, event *models.Event, action *models.Action) (string, error) {
	if err := validateActionConfig(action); err != nil {
		return "", err
	}
	return s.dispatch(ctx, event, action)
}

func (s *Service) runTrigger(ctx context.Context, event *models.Event, trigger *models.Trigger, jobAttempt int) error {
	matched, err := EvaluateConditions(trigger.Conditions, event.Data)
	if err != nil {
		s.logger.Warn("condition evaluation failed, skipping trigger",
			zap.String("event_id", event.ID),
			zap.String("trigger_id", trigger.ID),
			zap.Error(err))
		return nil
	}
	if !matched {
		s.logger.Debug("trigger conditions not met",
			zap.String("event_id", event.ID),
			zap.String("trigger_id", trigger.ID))
		return nil
	}

	for i := range trigger.Actions {
		action := &trigger.Actions[i]
		if err := s.executeAction(ctx, event, trigger, action, jobAttempt); err != nil {
			if trigger.ErrorHandling == models.StopOnFirstError {
				s.logger.Warn("aborting remaining actions for trigger",
					zap.String("event_id", event.ID),
					zap.String("trigger_id", trigger.ID),
					zap.String("failed_action_id", action.ID))
				return err
			}
			// continue strategy: failure already recorded, move on
		}
	}
	return nil
}

func (s *Service) executeAction(ctx context.Context, event *models.Event, trigger *models.Trigger, action *models.Action, jobAttempt int) error {
	now := s.clock.Now().UTC()
	exec := &models.ActionExecution{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		TriggerID: trigger.ID,
		ActionID:  action.ID,
		Status:    models.ExecutionStatusPending,
		Attempt:   jobAttempt,
		StartedAt: now,
	}
	if err := s.executions.CreateActionExecution(ctx, exec); err != nil {
		return fmt.Errorf("create action execution: %w", err)
	}

	result, err := s.ExecuteAction(ctx, event, action)
	if err != nil {
		errMsg := err.Error()
		if completeErr := s.executions.CompleteActionExecution(ctx, exec.ID, models.ExecutionStatusFailed, nil, &errMsg); completeErr != nil {
			s.logger.Error("failed to record action failure",
				zap.String("execution_id", exec.ID),
				zap.Error(completeErr))
		}

		if action.IsCritical || jobAttempt >= escalationAttemptThreshold {
			if _, escErr := s.escalator.Escalate(ctx, event, trigger, action, err); escErr != nil {
				s.logger.Error("dead-letter escalation failed",
					zap.String("event_id", event.ID),
					zap.String("action_id", action.ID),
					zap.Error(escErr))
			}
		}

		s.logger.Warn("action execution failed",
			zap.String("event_id", event.ID),
			zap.String("trigger_id", trigger.ID),
			zap.String("action_id", action.ID),
			zap.String("action_type", string(action.ActionType)),
			zap.Bool("is_critical", action.IsCritical),
			zap.Int("job_attempt", jobAttempt),
			zap.Error(err))

		return &ActionExecutionError{
			EventID:    event.ID,
			TriggerID:  trigger.ID,
			ActionID:   action.ID,
			ActionType: action.ActionType,
			cause:      err,
		}
	}

	if completeErr := s.executions.CompleteActionExecution(ctx, exec.ID, models.ExecutionStatusSuccess, &result, nil); completeErr != nil {
		s.logger.Error("failed to record action success",
			zap.String("execution_id", exec.ID),
			zap.Error(completeErr))
	}

	s.logger.Info("action executed",
		zap.String("event_id", event.ID),
		zap.String("trigger_id", trigger.ID),
		zap.String("action_id", action.ID),
		zap.String("action_type", string(action.ActionType)))
	return nil
}

// httpActionConfig is the decoded config for gateway-dispatched actions.
type httpActionConfig struct {
	ConnectorID string                      `json:"connector_id"`
	URL         string                      `json:"url"`
	Method      string                      `json:"method,omitempty"`
	Headers     map[string]string           `json:"headers,omitempty"`
	Body        json.RawMessage             `json:"body,omitempty"`
	MaxRetries  int                         `json:"max_retries,omitempty"`
	Auth        *gateway.Auth               `json:"auth,omitempty"`
	Transforms  map[string][]transform.Step `json:"transforms,omitempty"`
}

func (s *Service) dispatch(ctx context.Context, event *models.Event, action *models.Action) (string, error) {
	if !action.IsHTTP() {
		return s.executors.Execute(ctx, action.ActionType, action.Config, event.Data)
	}

	var cfg httpActionConfig
	if err := json.Unmarshal(action.Config, &cfg); err != nil {
		return "", NewValidationError("action %s config: %v", action.ID, err)
	}

	payload, err := s.buildPayload(ctx, event, &cfg)
	if err != nil {
		return "", err
	}

	req := gateway.Request{
		URL:        cfg.URL,
		Method:     cfg.Method,
		Headers:    cfg.Headers,
		Body:       payload,
		TimeoutMs:  action.TimeoutMs,
		MaxRetries: cfg.MaxRetries,
		Auth:       cfg.Auth,
	}

	resp, err := s.gateway.Send(ctx, cfg.ConnectorID, event.TenantID, req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("status=%d elapsed_ms=%d", resp.StatusCode, resp.ElapsedMs), nil
}

// buildPayload assembles the outbound body: the explicit config body if
// given, otherwise the event data with any per-field transform pipelines
// applied to a copy.
func (s *Service) buildPayload(ctx context.Context, event *models.Event, cfg *httpActionConfig) (json.RawMessage, error) {
	if len(cfg.Body) > 0 {
		return cfg.Body, nil
	}

	data := make(map[string]interface{}, len(event.Data))
	for k, v := range event.Data {
		data[k] = v
	}

	for field, steps := range cfg.Transforms {
		input, found := data[field]
		if !found {
			continue
		}
		result, err := s.transforms.Execute(ctx, input, steps)
		if err != nil {
			return nil, err
		}
		data[field] = result.Output
	}

	body := map[string]interface{}{
		"event_id":    event.ID,
		"event_type":  event.EventType,
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339),
		"data":        data,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal outbound payload: %w", err)
	}
	return raw, nil
}
