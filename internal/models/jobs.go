package models

import (
	"encoding/json"
	"time"
)

// Queue names map one-to-one onto Kafka topics.
const (
	QueueEvents   = "events"
	QueueWebhooks = "webhooks"
	QueueDLQ      = "dlq"
	QueuePush     = "push"
)

// EventJob asks the pipeline to run trigger matching for one event.
// Attempt is the queue-level attempt counter, distinct from the gateway's
// in-call retry counter.
type EventJob struct {
	JobID   string `json:"job_id"`
	Event   Event  `json:"event"`
	Attempt int    `json:"attempt"`
}

// WebhookJob is a standalone webhook delivery outside trigger matching,
// e.g. a subscription notification fanned out by a producer.
type WebhookJob struct {
	JobID       string            `json:"job_id"`
	TenantID    string            `json:"tenant_id"`
	ConnectorID string            `json:"connector_id"`
	URL         string            `json:"url"`
	EventType   string            `json:"event_type"`
	Payload     json.RawMessage   `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attempt     int               `json:"attempt"`
}

// DLQJob schedules a replay of one dead-letter entry.
type DLQJob struct {
	JobID   string `json:"job_id"`
	EntryID string `json:"entry_id"`
	Attempt int    `json:"attempt"`
}

// PushJob carries an outbound ERP/CRM push whose audit trail must be
// retained even after final exhaustion.
type PushJob struct {
	JobID       string          `json:"job_id"`
	TenantID    string          `json:"tenant_id"`
	ConnectorID string          `json:"connector_id"`
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}
