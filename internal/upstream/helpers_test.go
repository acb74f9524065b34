package upstream

import (
	"testing"
	"time"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/logger"
)

func testUpstreamConfig() config.UpstreamConfig {
	return config.UpstreamConfig{
		DirectTimeout:        2 * time.Second,
		BrowserLoginTimeout:  5 * time.Second,
		RetryMaxAttempts:     3,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		UserAgent:            "mtr-gateway-test",
	}
}

func testTransport(t *testing.T) *Transport {
	t.Helper()
	return NewTransport(testUpstreamConfig(), logger.Discard())
}

// testConfig points every agency in baseURLs at a test server
func testConfig(baseURLs map[string]string, loginService string) *config.Config {
	cfg := &config.Config{
		Upstream:   testUpstreamConfig(),
		Automation: config.AutomationConfig{LoginServiceURL: loginService},
		Agencies:   map[string]config.AgencyConfig{},
	}
	for agency, u := range baseURLs {
		cfg.Agencies[agency] = config.AgencyConfig{BaseURL: u}
	}
	return cfg
}

func testRegistry(t *testing.T, cfg *config.Config) *Registry {
	t.Helper()
	return NewRegistry(cfg, testTransport(t), logger.Discard())
}

func testAdapter(t *testing.T, cfg *config.Config, agency string) *Adapter {
	t.Helper()
	a, ok := testRegistry(t, cfg).Get(agency)
	if !ok {
		t.Fatalf("agency %s not registered", agency)
	}
	return a
}
