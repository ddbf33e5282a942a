package models

import (
	"encoding/json"
	"time"
)

// TriggerStatus represents the lifecycle status of a trigger.
type TriggerStatus string

const (
	TriggerStatusActive   TriggerStatus = "active"
	TriggerStatusDisabled TriggerStatus = "disabled"
)

// ErrorHandlingStrategy controls how a trigger reacts to a failing action.
type ErrorHandlingStrategy string

const (
	// StopOnFirstError aborts the trigger's remaining actions when one fails.
	StopOnFirstError ErrorHandlingStrategy = "stop_on_first_error"
	// ContinueOnError records the failure and moves to the next action.
	ContinueOnError ErrorHandlingStrategy = "continue"
)

// ConditionOperator is a comparison applied to a field of event data.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// Condition is a single predicate evaluated against event data.
// Field is a dot path ("customer.address.city") into the data map.
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value,omitempty"`
}

// Trigger binds an event type to an ordered action list for one tenant.
// Triggers are mutated only through the configuration API; the pipeline
// reads them as-is.
type Trigger struct {
	ID            string                `json:"id"`
	TenantID      string                `json:"tenant_id"`
	EventType     string                `json:"event_type"`
	Conditions    []Condition           `json:"conditions,omitempty"`
	Priority      int                   `json:"priority"`
	Status        TriggerStatus         `json:"status"`
	ErrorHandling ErrorHandlingStrategy `json:"error_handling"`
	Actions       []Action              `json:"actions,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ActionType names the capability that executes an action.
type ActionType string

const (
	ActionSendWebhook ActionType = "send_webhook"
	ActionHTTPRequest ActionType = "http_request"
	ActionSendEmail   ActionType = "send_email"
	ActionSendSMS     ActionType = "send_sms"
	ActionUpdateCRM   ActionType = "update_crm"
	ActionCreateTask  ActionType = "create_task"
)

// Action is one step of a trigger, executed in Order within its trigger.
type Action struct {
	ID         string          `json:"id"`
	TriggerID  string          `json:"trigger_id"`
	Order      int             `json:"order"`
	ActionType ActionType      `json:"action_type"`
	Config     json.RawMessage `json:"config"`
	IsCritical bool            `json:"is_critical"`
	TimeoutMs  int             `json:"timeout_ms,omitempty"`
}

// IsHTTP reports whether the action is dispatched through the outbound gateway.
func (a Action) IsHTTP() bool {
	return a.ActionType == ActionSendWebhook || a.ActionType == ActionHTTPRequest
}

// Snapshot returns a JSON copy of the action for dead-letter storage.
func (a Action) Snapshot() (json.RawMessage, error) {
	return json.Marshal(a)
}

// ActionFromSnapshot rebuilds an action from a frozen dead-letter snapshot.
func ActionFromSnapshot(raw json.RawMessage) (*Action, error) {
	var a Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ActionInput is the API shape for one action of a trigger. Order follows
// list position.
type ActionInput struct {
	ActionType ActionType      `json:"action_type" binding:"required"`
	Config     json.RawMessage `json:"config" binding:"required"`
	IsCritical bool            `json:"is_critical"`
	TimeoutMs  int             `json:"timeout_ms" binding:"omitempty,min=1"`
}

// CreateTriggerRequest creates a trigger with its full action list.
type CreateTriggerRequest struct {
	TenantID      string                `json:"tenant_id" binding:"required" example:"tenant-42"`
	EventType     string                `json:"event_type" binding:"required" example:"form.submitted"`
	Conditions    []Condition           `json:"conditions,omitempty"`
	Priority      int                   `json:"priority"`
	ErrorHandling ErrorHandlingStrategy `json:"error_handling" binding:"omitempty,oneof=stop_on_first_error continue"`
	Actions       []ActionInput         `json:"actions" binding:"required,min=1"`
}

// UpdateTriggerRequest applies a partial update. A non-nil Actions replaces
// the whole action list.
type UpdateTriggerRequest struct {
	EventType     *string                `json:"event_type,omitempty"`
	Conditions    *[]Condition           `json:"conditions,omitempty"`
	Priority      *int                   `json:"priority,omitempty"`
	Status        *TriggerStatus         `json:"status,omitempty" binding:"omitempty,oneof=active disabled"`
	ErrorHandling *ErrorHandlingStrategy `json:"error_handling,omitempty" binding:"omitempty,oneof=stop_on_first_error continue"`
	Actions       *[]ActionInput         `json:"actions,omitempty"`
}

// ListTriggersQuery filters the trigger listing.
type ListTriggersQuery struct {
	TenantID  string `form:"tenant_id" example:"tenant-42"`
	EventType string `form:"event_type" example:"form.submitted"`
	Status    string `form:"status" binding:"omitempty,oneof=active disabled" example:"active"`
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}
