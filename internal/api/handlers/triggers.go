package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/storage"
	"github.com/formflux/formflux/internal/triggers"
)

// TriggerHandler manages trigger configuration.
type TriggerHandler struct {
	logger  logging.Logger
	service *triggers.Service
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(logger logging.Logger, service *triggers.Service) *TriggerHandler {
	return &TriggerHandler{logger: logger, service: service}
}

// CreateTrigger handles POST /api/v1/triggers.
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	var req models.CreateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid trigger payload", err.Error())
		return
	}

	trigger, err := h.service.CreateTrigger(c.Request.Context(), req)
	if err != nil {
		var validationErr triggers.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(c, "trigger validation failed", validationErr.Error())
			return
		}
		h.logger.Error("failed to create trigger", zap.Error(err))
		response.InternalServerError(c, "failed to create trigger")
		return
	}

	h.logger.Info("trigger created",
		zap.String("trigger_id", trigger.ID),
		zap.String("tenant_id", trigger.TenantID),
		zap.String("event_type", trigger.EventType),
	)
	response.Created(c, trigger, "trigger created")
}

// ListTriggers handles GET /api/v1/triggers.
func (h *TriggerHandler) ListTriggers(c *gin.Context) {
	var query models.ListTriggersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, pagination, err := h.service.ListTriggers(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list triggers", zap.Error(err))
		response.InternalServerError(c, "failed to list triggers")
		return
	}
	response.Paginated(c, list, pagination)
}

// GetTrigger handles GET /api/v1/triggers/:id.
func (h *TriggerHandler) GetTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	trigger, err := h.service.GetTrigger(c.Request.Context(), triggerID)
	if err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			response.NotFound(c, "trigger not found")
			return
		}
		h.logger.Error("failed to load trigger", zap.String("trigger_id", triggerID), zap.Error(err))
		response.InternalServerError(c, "failed to load trigger")
		return
	}
	response.OK(c, trigger)
}

// UpdateTrigger handles PUT /api/v1/triggers/:id.
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	var req models.UpdateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid trigger payload", err.Error())
		return
	}

	trigger, err := h.service.UpdateTrigger(c.Request.Context(), triggerID, req)
	if err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			response.NotFound(c, "trigger not found")
			return
		}
		var validationErr triggers.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(c, "trigger validation failed", validationErr.Error())
			return
		}
		h.logger.Error("failed to update trigger", zap.String("trigger_id", triggerID), zap.Error(err))
		response.InternalServerError(c, "failed to update trigger")
		return
	}
	response.OK(c, trigger)
}

// DeleteTrigger handles DELETE /api/v1/triggers/:id.
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	if err := h.service.DeleteTrigger(c.Request.Context(), triggerID); err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			response.NotFound(c, "trigger not found")
			return
		}
		h.logger.Error("failed to delete trigger", zap.String("trigger_id", triggerID), zap.Error(err))
		response.InternalServerError(c, "failed to delete trigger")
		return
	}
	response.NoContent(c)
}
