package services

import (
	"context"
	"net/http"
	"time"

	"github.com/nexconsult/mtr-api/internal/upstream"
)

const loginServiceCheckTimeout = 3 * time.Second

// LoginServiceChecker checks the delegated browser-login service
type LoginServiceChecker struct {
	baseURL   string
	transport *upstream.Transport
}

// NewLoginServiceChecker creates a checker for the service at baseURL
func NewLoginServiceChecker(baseURL string, transport *upstream.Transport) LoginServiceInterface {
	return &LoginServiceChecker{baseURL: baseURL, transport: transport}
}

// Health returns the login service reachability
func (l *LoginServiceChecker) Health(ctx context.Context) map[string]interface{} {
	resp, err := l.transport.Do(ctx, &upstream.Request{
		Agency:  "loginhelper",
		Op:      "health",
		Method:  http.MethodGet,
		URL:     l.baseURL + "/healthz",
		Timeout: loginServiceCheckTimeout,
		NoRetry: true,
	})
	if err != nil {
		return map[string]interface{}{
			"status": "unhealthy",
			"url":    l.baseURL,
			"error":  err.Error(),
		}
	}
	if resp.Status != http.StatusOK {
		return map[string]interface{}{
			"status":      "unhealthy",
			"url":         l.baseURL,
			"status_code": resp.Status,
		}
	}
	return map[string]interface{}{
		"status": "healthy",
		"url":    l.baseURL,
	}
}
