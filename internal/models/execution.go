package models

import "time"

// ExecutionStatus represents the terminal state of one action execution.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ActionExecution records one (event, action) attempt group. A row is created
// in pending state before the underlying call and updated at most once to a
// terminal state per logical attempt.
type ActionExecution struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	TriggerID   string          `json:"trigger_id"`
	ActionID    string          `json:"action_id"`
	Status      ExecutionStatus `json:"status"`
	Attempt     int             `json:"attempt"`
	Response    *string         `json:"response,omitempty"`
	Error       *string         `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// DeliveryRecord is the audit row kept for webhook and outbound-push jobs
// after their queue-level retries are exhausted, and for successful
// deliveries. Unlike event jobs, these are never silently dropped.
type DeliveryRecord struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	Queue          string    `json:"queue"`
	TenantID       string    `json:"tenant_id"`
	Endpoint       string    `json:"endpoint"`
	Attempt        int       `json:"attempt"`
	Status         string    `json:"status"`
	HTTPStatusCode *int      `json:"http_status_code,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListDeliveryRecordsQuery filters the delivery audit listing.
type ListDeliveryRecordsQuery struct {
	TenantID string `form:"tenant_id" example:"tenant-42"`
	Queue    string `form:"queue" binding:"omitempty,oneof=webhooks push" example:"webhooks"`
	Status   string `form:"status" binding:"omitempty,oneof=success failed" example:"failed"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}
