// Package handlers contains the gin HTTP handlers for the API surface.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/formflux/formflux/internal/api/response"
	"github.com/formflux/formflux/internal/logging"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger logging.Logger
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(logger logging.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health reports service liveness.
func (h *HealthHandler) Health(c *gin.Context) {
	response.OK(c, HealthResponse{
		Status:  "ok",
		Service: "formflux",
		Version: "1.0.0",
	})
}
