package config

import (
	"fmt"
	"time"
)

// UpstreamConfig contém os timeouts e a política de retry das chamadas aos órgãos
type UpstreamConfig struct {
	// Chamadas diretas às APIs dos órgãos (token, manifesto, parceiro)
	DirectTimeout time.Duration `json:"direct_timeout"`

	// Login delegado ao serviço de automação (navegador real)
	BrowserLoginTimeout time.Duration `json:"browser_login_timeout"`

	// Retry de GETs idempotentes
	RetryMaxAttempts     int           `json:"retry_max_attempts"`
	RetryInitialInterval time.Duration `json:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `json:"retry_max_interval"`

	UserAgent string `json:"user_agent"`
}

// DefaultUpstreamConfig retorna a configuração padrão de timeouts
func DefaultUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		DirectTimeout:        30 * time.Second,
		BrowserLoginTimeout:  90 * time.Second,
		RetryMaxAttempts:     5,
		RetryInitialInterval: 600 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		UserAgent:            "api-mtr-gateway/1.0",
	}
}

func loadUpstream() UpstreamConfig {
	d := DefaultUpstreamConfig()
	return UpstreamConfig{
		DirectTimeout:        time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT", int(d.DirectTimeout/time.Second))) * time.Second,
		BrowserLoginTimeout:  time.Duration(getEnvAsInt("UPSTREAM_BROWSER_LOGIN_TIMEOUT", int(d.BrowserLoginTimeout/time.Second))) * time.Second,
		RetryMaxAttempts:     getEnvAsInt("UPSTREAM_RETRY_MAX_ATTEMPTS", d.RetryMaxAttempts),
		RetryInitialInterval: time.Duration(getEnvAsInt("UPSTREAM_RETRY_INITIAL_MS", int(d.RetryInitialInterval/time.Millisecond))) * time.Millisecond,
		RetryMaxInterval:     time.Duration(getEnvAsInt("UPSTREAM_RETRY_MAX_MS", int(d.RetryMaxInterval/time.Millisecond))) * time.Millisecond,
		UserAgent:            getEnv("UPSTREAM_USER_AGENT", d.UserAgent),
	}
}

// Validate rejeita valores que travariam ou desabilitariam as chamadas
func (u UpstreamConfig) Validate() error {
	if u.DirectTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if u.BrowserLoginTimeout < u.DirectTimeout {
		return fmt.Errorf("UPSTREAM_BROWSER_LOGIN_TIMEOUT (%s) must not be shorter than UPSTREAM_TIMEOUT (%s)",
			u.BrowserLoginTimeout, u.DirectTimeout)
	}
	if u.RetryMaxAttempts < 1 {
		return fmt.Errorf("UPSTREAM_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if u.RetryInitialInterval <= 0 {
		return fmt.Errorf("UPSTREAM_RETRY_INITIAL_MS must be positive")
	}
	return nil
}
