package worker

import (
	"context"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/models"
)

// EventProcessor runs trigger matching and action execution for one event.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, job models.EventJob) error
}

// Deliverer performs a guarded outbound HTTP call.
type Deliverer interface {
	Send(ctx context.Context, connectorID, tenantID string, req gateway.Request) (*gateway.Response, error)
}

// Replayer re-runs a dead-letter entry through the action pipeline.
type Replayer interface {
	Replay(ctx context.Context, entryID string) error
}

// DeliveryRecorder persists per-attempt delivery audit rows.
type DeliveryRecorder interface {
	CreateDeliveryRecord(ctx context.Context, rec *models.DeliveryRecord) error
}
