package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/deadletter"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/storage"
)

// DeadLetterHandler exposes the dead-letter review surface: list, inspect,
// replay, ignore and delete.
type DeadLetterHandler struct {
	logger   logging.Logger
	service  *deadletter.Service
	enqueuer deadletter.Enqueuer
}

// NewDeadLetterHandler creates a new dead-letter handler.
func NewDeadLetterHandler(logger logging.Logger, service *deadletter.Service, enqueuer deadletter.Enqueuer) *DeadLetterHandler {
	return &DeadLetterHandler{logger: logger, service: service, enqueuer: enqueuer}
}

// ListDeadLetters handles GET /api/v1/dead-letters.
func (h *DeadLetterHandler) ListDeadLetters(c *gin.Context) {
	var query models.ListDeadLettersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	entries, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list dead letters", zap.Error(err))
		response.InternalServerError(c, "failed to list dead letters")
		return
	}
	response.Paginated(c, entries, pagination)
}

// GetDeadLetter handles GET /api/v1/dead-letters/:id.
func (h *DeadLetterHandler) GetDeadLetter(c *gin.Context) {
	entryID := c.Param("id")

	entry, err := h.service.Get(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, storage.ErrDeadLetterNotFound) {
			response.NotFound(c, "dead letter entry not found")
			return
		}
		h.logger.Error("failed to load dead letter", zap.String("entry_id", entryID), zap.Error(err))
		response.InternalServerError(c, "failed to load dead letter")
		return
	}
	response.OK(c, entry)
}

// ReplayDeadLetter handles POST /api/v1/dead-letters/:id/replay. The replay
// itself runs asynchronously on the dead-letter queue.
func (h *DeadLetterHandler) ReplayDeadLetter(c *gin.Context) {
	entryID := c.Param("id")

	entry, err := h.service.Get(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, storage.ErrDeadLetterNotFound) {
			response.NotFound(c, "dead letter entry not found")
			return
		}
		h.logger.Error("failed to load dead letter", zap.String("entry_id", entryID), zap.Error(err))
		response.InternalServerError(c, "failed to load dead letter")
		return
	}
	if entry.Status.IsTerminal() {
		response.Conflict(c, "dead letter entry is already settled", gin.H{"status": entry.Status})
		return
	}

	job := models.DLQJob{
		JobID:   uuid.New().String(),
		EntryID: entryID,
		Attempt: 1,
	}
	if err := h.enqueuer.EnqueueDLQ(c.Request.Context(), job); err != nil {
		h.logger.Error("failed to enqueue replay", zap.String("entry_id", entryID), zap.Error(err))
		response.InternalServerError(c, "failed to enqueue replay")
		return
	}

	h.logger.Info("replay scheduled",
		zap.String("entry_id", entryID),
		zap.String("job_id", job.JobID),
	)
	response.Accepted(c, gin.H{"job_id": job.JobID}, "replay scheduled")
}

// IgnoreDeadLetter handles POST /api/v1/dead-letters/:id/ignore.
func (h *DeadLetterHandler) IgnoreDeadLetter(c *gin.Context) {
	entryID := c.Param("id")

	if err := h.service.Ignore(c.Request.Context(), entryID); err != nil {
		if errors.Is(err, storage.ErrDeadLetterNotFound) {
			response.NotFound(c, "dead letter entry not found")
			return
		}
		h.logger.Error("failed to ignore dead letter", zap.String("entry_id", entryID), zap.Error(err))
		response.InternalServerError(c, "failed to ignore dead letter")
		return
	}
	response.OK(c, gin.H{"entry_id": entryID, "status": models.DeadLetterStatusIgnored})
}

// DeleteDeadLetter handles DELETE /api/v1/dead-letters/:id.
func (h *DeadLetterHandler) DeleteDeadLetter(c *gin.Context) {
	entryID := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), entryID); err != nil {
		if errors.Is(err, storage.ErrDeadLetterNotFound) {
			response.NotFound(c, "dead letter entry not found")
			return
		}
		h.logger.Error("failed to delete dead letter", zap.String("entry_id", entryID), zap.Error(err))
		response.InternalServerError(c, "failed to delete dead letter")
		return
	}
	response.NoContent(c)
}
