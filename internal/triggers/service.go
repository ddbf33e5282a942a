// Package triggers owns trigger configuration: validation, persistence and
// the partial-update rules. The pipeline only ever reads what this package
// writes.
package triggers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/pipeline"
	"github.com/formflux/formflux/pkg/clock"
)

// Service encapsulates trigger business logic.
type Service struct {
	store TriggerStore
	clock clock.Clock
}

// NewService creates a trigger service.
func NewService(store TriggerStore, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// CreateTrigger validates and persists a trigger with its action list.
func (s *Service) CreateTrigger(ctx context.Context, req models.CreateTriggerRequest) (*models.Trigger, error) {
	req.EventType = strings.TrimSpace(req.EventType)
	if req.EventType == "" {
		return nil, NewValidationError("event_type is required")
	}
	if err := validateConditions(req.Conditions); err != nil {
		return nil, err
	}

	errorHandling := req.ErrorHandling
	if errorHandling == "" {
		errorHandling = models.StopOnFirstError
	}

	now := s.clock.Now().UTC()
	trigger := models.Trigger{
		ID:            uuid.New().String(),
		TenantID:      req.TenantID,
		EventType:     req.EventType,
		Conditions:    req.Conditions,
		Priority:      req.Priority,
		Status:        models.TriggerStatusActive,
		ErrorHandling: errorHandling,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	actions, err := buildActions(trigger.ID, req.Actions)
	if err != nil {
		return nil, err
	}
	trigger.Actions = actions

	if err := s.store.CreateTrigger(ctx, &trigger); err != nil {
		return nil, err
	}
	return s.store.GetTrigger(ctx, trigger.ID)
}

// GetTrigger fetches one trigger.
func (s *Service) GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, error) {
	return s.store.GetTrigger(ctx, triggerID)
}

// ListTriggers returns triggers along with pagination metadata.
func (s *Service) ListTriggers(ctx context.Context, query models.ListTriggersQuery) ([]models.Trigger, models.Pagination, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	triggers, total, err := s.store.ListTriggers(ctx, query)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return triggers, models.Pagination{
		CurrentPage:  query.Page,
		PageSize:     query.Limit,
		TotalPages:   totalPages,
		TotalRecords: total,
	}, nil
}

// UpdateTrigger applies a partial update. A provided action list replaces
// the existing one wholesale.
func (s *Service) UpdateTrigger(ctx context.Context, triggerID string, req models.UpdateTriggerRequest) (*models.Trigger, error) {
	current, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.EventType != nil {
		eventType := strings.TrimSpace(*req.EventType)
		if eventType == "" {
			return nil, NewValidationError("event_type cannot be empty")
		}
		updates["event_type"] = eventType
	}
	if req.Conditions != nil {
		if err := validateConditions(*req.Conditions); err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(*req.Conditions)
		if err != nil {
			return nil, NewValidationError("conditions are not encodable: %v", err)
		}
		updates["conditions"] = string(encoded)
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.ErrorHandling != nil {
		updates["error_handling"] = *req.ErrorHandling
	}

	var replacement []models.Action
	if req.Actions != nil {
		if len(*req.Actions) == 0 {
			return nil, NewValidationError("a trigger needs at least one action")
		}
		replacement, err = buildActions(current.ID, *req.Actions)
		if err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 || replacement != nil {
		updates["updated_at"] = s.clock.Now().UTC()
		if err := s.store.UpdateTrigger(ctx, triggerID, updates); err != nil {
			return nil, err
		}
	}
	if replacement != nil {
		if err := s.store.ReplaceTriggerActions(ctx, triggerID, replacement); err != nil {
			return nil, err
		}
	}

	return s.store.GetTrigger(ctx, triggerID)
}

// DeleteTrigger removes a trigger and its actions.
func (s *Service) DeleteTrigger(ctx context.Context, triggerID string) error {
	return s.store.DeleteTrigger(ctx, triggerID)
}

func validateConditions(conditions []models.Condition) error {
	for i, condition := range conditions {
		if strings.TrimSpace(condition.Field) == "" {
			return NewValidationError("condition %d: field is required", i)
		}
		switch condition.Operator {
		case models.OperatorEquals, models.OperatorNotEquals, models.OperatorContains,
			models.OperatorGreaterThan, models.OperatorLessThan:
			if condition.Value == nil {
				return NewValidationError("condition %d: operator %s requires a value", i, condition.Operator)
			}
		case models.OperatorIsEmpty, models.OperatorIsNotEmpty:
			// No value needed.
		default:
			return NewValidationError("condition %d: unsupported operator: %s", i, condition.Operator)
		}
	}
	return nil
}

func buildActions(triggerID string, inputs []models.ActionInput) ([]models.Action, error) {
	actions := make([]models.Action, 0, len(inputs))
	for i, input := range inputs {
		if err := pipeline.ValidateActionConfig(input.ActionType, input.Config); err != nil {
			return nil, NewValidationError("action %d: %v", i, err)
		}
		actions = append(actions, models.Action{
			ID:         uuid.New().String(),
			TriggerID:  triggerID,
			Order:      i + 1,
			ActionType: input.ActionType,
			Config:     input.Config,
			IsCritical: input.IsCritical,
			TimeoutMs:  input.TimeoutMs,
		})
	}
	return actions, nil
}
