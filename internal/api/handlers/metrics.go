package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/nexconsult/mtr-api/internal/services"
	"github.com/sirupsen/logrus"
)

// RateStatsProvider reports the state of the client rate limiter
type RateStatsProvider interface {
	GetStats() map[string]interface{}
}

// MetricsHandler handles metrics requests
type MetricsHandler struct {
	stats       services.StatsServiceInterface
	rate        RateStatsProvider
	serviceName string
	logger      *logrus.Logger
}

// NewMetricsHandler creates a new metrics handler. rate may be nil.
func NewMetricsHandler(stats services.StatsServiceInterface, rate RateStatsProvider, serviceName string, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		stats:       stats,
		rate:        rate,
		serviceName: serviceName,
		logger:      logger,
	}
}

// GetMetrics returns the per-agency outcome counters
// @Summary Contadores por órgão
// @Description Chaves no formato "acao:resultado", onde resultado é success ou o código do erro; rate_limit traz o estado do limitador
// @Tags Metrics
// @Produce json
// @Success 200 {object} models.StatsResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /metrics [get]
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	snapshot, err := h.stats.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Failed to read stats")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Stats unavailable",
			Message:   err.Error(),
			Code:      "STATS_UNAVAILABLE",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	resp := models.StatsResponse{
		Service:   h.serviceName,
		Timestamp: time.Now(),
		Agencies:  snapshot,
	}
	if h.rate != nil {
		resp.RateLimit = h.rate.GetStats()
	}
	c.JSON(http.StatusOK, resp)
}
