package models

import (
	"encoding/json"
	"time"
)

// DeadLetterStatus is the lifecycle of a dead-letter entry. resolved, failed
// and ignored are terminal.
type DeadLetterStatus string

const (
	DeadLetterStatusPending  DeadLetterStatus = "pending"
	DeadLetterStatusResolved DeadLetterStatus = "resolved"
	DeadLetterStatusFailed   DeadLetterStatus = "failed"
	DeadLetterStatusIgnored  DeadLetterStatus = "ignored"
)

// IsTerminal reports whether the entry can no longer be replayed.
func (s DeadLetterStatus) IsTerminal() bool {
	return s == DeadLetterStatusResolved || s == DeadLetterStatusFailed || s == DeadLetterStatusIgnored
}

// DeadLetterEntry captures an action execution that exhausted its retries.
// Event and action data are frozen snapshots copied at failure time, so a
// late replay reflects the data seen when the failure happened even if the
// live rows have since changed or been deleted.
type DeadLetterEntry struct {
	ID             string           `json:"id"`
	EventID        string           `json:"event_id"`
	TenantID       string           `json:"tenant_id"`
	TriggerID      string           `json:"trigger_id"`
	ActionID       string           `json:"action_id"`
	FailureCount   int              `json:"failure_count"`
	LastError      string           `json:"last_error"`
	EventSnapshot  json.RawMessage  `json:"event_snapshot"`
	ActionSnapshot json.RawMessage  `json:"action_snapshot"`
	Status         DeadLetterStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ListDeadLettersQuery filters the operator-facing dead-letter listing.
type ListDeadLettersQuery struct {
	TenantID string `form:"tenant_id" example:"tenant-42"`
	Status   string `form:"status" binding:"omitempty,oneof=pending resolved failed ignored" example:"pending"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	CurrentPage  int   `json:"current_page" example:"1"`
	PageSize     int   `json:"page_size" example:"20"`
	TotalPages   int   `json:"total_pages" example:"5"`
	TotalRecords int64 `json:"total_records" example:"100"`
}
