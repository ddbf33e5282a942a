package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
)

// ConnectorHandler exposes per-connector gateway diagnostics and the manual
// circuit reset used by operators after a downstream outage clears.
type ConnectorHandler struct {
	logger  logging.Logger
	gateway *gateway.Gateway
}

// NewConnectorHandler creates a new connector diagnostics handler.
func NewConnectorHandler(logger logging.Logger, gw *gateway.Gateway) *ConnectorHandler {
	return &ConnectorHandler{logger: logger, gateway: gw}
}

// GetConnectorStatus handles GET /api/v1/connectors/:id/status.
func (h *ConnectorHandler) GetConnectorStatus(c *gin.Context) {
	connectorID := c.Param("id")
	ctx := c.Request.Context()

	circuit, err := h.gateway.Circuit().State(ctx, connectorID)
	if err != nil {
		h.logger.Error("failed to read circuit state",
			zap.String("connector_id", connectorID),
			zap.Error(err),
		)
		response.InternalServerError(c, "failed to read connector state")
		return
	}

	limiter := h.gateway.Limiter()
	usage, err := limiter.Usage(ctx, connectorID)
	if err != nil {
		h.logger.Error("failed to read rate window",
			zap.String("connector_id", connectorID),
			zap.Error(err),
		)
		response.InternalServerError(c, "failed to read connector state")
		return
	}

	status := models.ConnectorStatus{
		ConnectorID:    connectorID,
		Circuit:        circuit.State,
		Failures:       circuit.Failures,
		LastFailureAt:  timePtr(circuit.LastFailureAt),
		OpenedAt:       timePtr(circuit.OpenedAt),
		WindowRequests: usage,
		WindowLimit:    limiter.Limit(),
		WindowSeconds:  int(limiter.Window().Seconds()),
		RateLimited:    usage >= int64(limiter.Limit()),
	}
	response.OK(c, status)
}

// ResetConnectorCircuit handles POST /api/v1/connectors/:id/reset.
func (h *ConnectorHandler) ResetConnectorCircuit(c *gin.Context) {
	connectorID := c.Param("id")

	if err := h.gateway.Circuit().Reset(c.Request.Context(), connectorID); err != nil {
		h.logger.Error("failed to reset circuit",
			zap.String("connector_id", connectorID),
			zap.Error(err),
		)
		response.InternalServerError(c, "failed to reset circuit")
		return
	}

	h.logger.Info("circuit manually reset", zap.String("connector_id", connectorID))
	response.OK(c, gin.H{"connector_id": connectorID, "circuit": models.CircuitClosed})
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
