package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/deliveries"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
)

// DeliveryHandler exposes the delivery audit trail.
type DeliveryHandler struct {
	logger  logging.Logger
	service *deliveries.Service
}

// NewDeliveryHandler creates a new delivery audit handler.
func NewDeliveryHandler(logger logging.Logger, service *deliveries.Service) *DeliveryHandler {
	return &DeliveryHandler{logger: logger, service: service}
}

// ListDeliveries handles GET /api/v1/deliveries.
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	var query models.ListDeliveryRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	records, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list delivery records", zap.Error(err))
		response.InternalServerError(c, "failed to list delivery records")
		return
	}
	response.Paginated(c, records, pagination)
}
