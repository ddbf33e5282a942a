package models

import (
	"encoding/json"
	"time"
)

// SourceType identifies the producer that emitted an event.
type SourceType string

const (
	SourceTypeForm    SourceType = "form"
	SourceTypeCRM     SourceType = "crm"
	SourceTypeERP     SourceType = "erp"
	SourceTypeWebhook SourceType = "webhook"
	SourceTypeManual  SourceType = "manual"
)

// Event is an immutable business event consumed by the pipeline.
// Producers are responsible for idempotency via a unique ID.
type Event struct {
	ID         string                 `json:"id"`
	TenantID   string                 `json:"tenant_id"`
	EventType  string                 `json:"event_type"`
	SourceType SourceType             `json:"source_type"`
	SourceID   string                 `json:"source_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Snapshot returns a JSON copy of the event suitable for dead-letter storage.
// The copy is owned by the caller and does not track later event mutations.
func (e *Event) Snapshot() (json.RawMessage, error) {
	return json.Marshal(e)
}

// EventFromSnapshot rebuilds an event from a frozen dead-letter snapshot.
func EventFromSnapshot(raw json.RawMessage) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// IngestEventRequest is the producer-facing payload to enqueue an event.
type IngestEventRequest struct {
	EventType  string                 `json:"event_type" binding:"required" example:"form.submitted"`
	TenantID   string                 `json:"tenant_id" binding:"required" example:"tenant-42"`
	SourceType SourceType             `json:"source_type" binding:"required,oneof=form crm erp webhook manual" example:"form"`
	SourceID   string                 `json:"source_id,omitempty" example:"form-31337"`
	Data       map[string]interface{} `json:"data" binding:"required"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt *time.Time             `json:"occurred_at,omitempty"`
}

// IngestEventResponse acknowledges an accepted event.
type IngestEventResponse struct {
	EventID string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}
