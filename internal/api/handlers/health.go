package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/sirupsen/logrus"
)

// HealthSource reports dependency health; services.Container implements it
type HealthSource interface {
	Health(ctx context.Context) map[string]interface{}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	services    HealthSource
	serviceName string
	logger      *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(services HealthSource, serviceName string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		services:    services,
		serviceName: serviceName,
		logger:      logger,
	}
}

// GetLiveness handles liveness checks
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} models.LivenessResponse
// @Router /healthz [get]
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, models.LivenessResponse{
		Status:    "ok",
		Service:   h.serviceName,
		Timestamp: time.Now(),
	})
}

// GetReadiness handles readiness checks
// @Summary Readiness check
// @Description Reports the stats store and the browser-login service. An unreachable login service only degrades readiness: direct-API agencies keep working.
// @Tags Health
// @Produce json
// @Success 200 {object} models.ReadinessResponse
// @Failure 503 {object} models.ReadinessResponse
// @Router /health/ready [get]
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	servicesHealth := h.services.Health(c.Request.Context())

	status := "ready"
	code := http.StatusOK
	if login, ok := servicesHealth["login_service"].(map[string]interface{}); ok && login["status"] != "healthy" {
		status = "degraded"
	}
	if agencies, _ := servicesHealth["agencies"].([]string); len(agencies) == 0 {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	if status != "ready" {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"status":     status,
		}).Warn("Readiness check not fully healthy")
	}

	c.JSON(code, models.ReadinessResponse{
		Status:    status,
		Service:   h.serviceName,
		Timestamp: time.Now(),
		Services:  servicesHealth,
	})
}
