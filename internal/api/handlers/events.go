package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/pkg/clock"
)

// EventEnqueuer publishes accepted events onto the processing queue.
type EventEnqueuer interface {
	EnqueueEvent(ctx context.Context, job models.EventJob) error
}

// EventHandler accepts producer events and enqueues them for trigger
// processing. Ingestion is asynchronous, so a 202 only means the event was
// durably queued.
type EventHandler struct {
	logger   logging.Logger
	enqueuer EventEnqueuer
	clock    clock.Clock
}

// NewEventHandler creates a new event ingestion handler.
func NewEventHandler(logger logging.Logger, enqueuer EventEnqueuer, clk clock.Clock) *EventHandler {
	return &EventHandler{logger: logger, enqueuer: enqueuer, clock: clk}
}

// IngestEvent handles POST /api/v1/events.
func (h *EventHandler) IngestEvent(c *gin.Context) {
	var req models.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid event payload", err.Error())
		return
	}

	occurredAt := h.clock.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event := models.Event{
		ID:         uuid.New().String(),
		TenantID:   req.TenantID,
		EventType:  req.EventType,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Data:       req.Data,
		Metadata:   req.Metadata,
		OccurredAt: occurredAt,
	}
	job := models.EventJob{
		JobID:   uuid.New().String(),
		Event:   event,
		Attempt: 1,
	}

	if err := h.enqueuer.EnqueueEvent(c.Request.Context(), job); err != nil {
		h.logger.Error("failed to enqueue event",
			zap.String("tenant_id", req.TenantID),
			zap.String("event_type", req.EventType),
			zap.Error(err),
		)
		response.InternalServerError(c, "failed to enqueue event")
		return
	}

	h.logger.Info("event accepted",
		zap.String("event_id", event.ID),
		zap.String("tenant_id", event.TenantID),
		zap.String("event_type", event.EventType),
	)
	response.Accepted(c, models.IngestEventResponse{EventID: event.ID}, "event accepted for processing")
}
