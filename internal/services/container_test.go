package services

import (
	"context"
	"testing"
	"time"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_WithoutRedis(t *testing.T) {
	cfg := &config.Config{
		Upstream:   config.DefaultUpstreamConfig(),
		Automation: config.AutomationConfig{LoginServiceURL: "http://127.0.0.1:1"},
		Agencies:   map[string]config.AgencyConfig{},
	}
	cfg.Upstream.DirectTimeout = 200 * time.Millisecond

	container, err := NewContainer(cfg, logger.Discard())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.MTRService)
	assert.Same(t, cfg, container.GetConfig())

	health := container.Health(context.Background())
	assert.Equal(t, "disabled", health["stats"].(map[string]interface{})["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "unhealthy", health["login_service"].(map[string]interface{})["status"])
	assert.Len(t, health["agencies"], 7)
}
