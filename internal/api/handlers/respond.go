package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

var errorTitles = map[upstream.Kind]string{
	upstream.KindUpstreamUnavailable:    "Upstream unavailable",
	upstream.KindAuthenticationRejected: "Authentication rejected",
	upstream.KindSessionInvalid:         "Session invalid",
	upstream.KindUpstreamTimeout:        "Upstream timeout",
	upstream.KindInvalidRequest:         "Invalid request",
}

// writeError renders err as a models.ErrorResponse. upstream errors keep
// their stable code and status; anything else is a 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Unexpected gateway error")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "An unexpected error occurred while processing your request",
			Code:      "INTERNAL_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(ue.Kind.HTTPStatus(), models.ErrorResponse{
		Error:        errorTitles[ue.Kind],
		Message:      ue.Error(),
		Code:         ue.Kind.Code(),
		Detail:       ue.Detail,
		Agency:       strings.ToUpper(ue.Agency),
		UpstreamBody: ue.Body,
		Timestamp:    time.Now(),
		Path:         c.Request.URL.Path,
	})
}

// writeBindError reports a malformed inbound body
func writeBindError(c *gin.Context, logger *logrus.Logger, err error) {
	logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"error":      err.Error(),
	}).Warn("Invalid request format")

	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:     "Invalid request format",
		Message:   err.Error(),
		Code:      upstream.KindInvalidRequest.Code(),
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// writeResult renders an adapter envelope. Degraded partner-search results
// are still a 200: the diagnostic is the payload.
func writeResult(c *gin.Context, result *upstream.Result) {
	c.JSON(http.StatusOK, models.FromResult(result))
}
