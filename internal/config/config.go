package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Agency identifiers as they appear in env var prefixes and routes.
const (
	AgencyFEAM  = "FEAM"
	AgencyFEPAM = "FEPAM"
	AgencyIMA   = "IMA"
	AgencyINEA  = "INEA"
	AgencySINIR = "SINIR"
	AgencySIGOR = "SIGOR"
	AgencySEMAD = "SEMAD"
	AgencyMTR   = "MTR"
)

// Agencies lists every agency the gateway knows how to configure.
var Agencies = []string{
	AgencyFEAM, AgencyFEPAM, AgencyIMA, AgencyINEA,
	AgencySINIR, AgencySIGOR, AgencySEMAD, AgencyMTR,
}

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig            `json:"server"`
	Redis      RedisConfig             `json:"redis"`
	Log        LogConfig               `json:"log"`
	Security   SecurityConfig          `json:"security"`
	Upstream   UpstreamConfig          `json:"upstream"`
	Automation AutomationConfig        `json:"automation"`
	Agencies   map[string]AgencyConfig `json:"agencies"`
	Browser    BrowserConfig           `json:"browser"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ServiceName  string `json:"service_name"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// RedisConfig holds Redis configuration. Redis only backs the outcome
// counters; the gateway runs without it.
type RedisConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	KeyPrefix    string        `json:"key_prefix"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig holds inbound rate limiting configuration.
// RequestsPerMinute <= 0 disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// AutomationConfig points at the delegated browser-login service.
type AutomationConfig struct {
	LoginServiceURL string `json:"login_service_url"`
	// HelperPort is where cmd/loginhelper listens.
	HelperPort int `json:"helper_port"`
}

// PartnerAccount is the service account an agency adapter uses for partner
// searches when the caller does not supply credentials.
type PartnerAccount struct {
	CNPJ     string `json:"cnpj"`
	CPF      string `json:"cpf"`
	Password string `json:"-"`
	UnitCode string `json:"unit_code"`
}

// Configured reports whether the account has enough data to log in.
func (p PartnerAccount) Configured() bool {
	return p.CNPJ != "" && p.Password != ""
}

// AgencyConfig holds per-agency overrides
type AgencyConfig struct {
	BaseURL      string         `json:"base_url"`
	PortalURL    string         `json:"portal_url"`
	RequesterCPF string         `json:"requester_cpf"`
	Partner      PartnerAccount `json:"partner"`
}

// BrowserConfig holds browser automation configuration for the login helper
type BrowserConfig struct {
	Headless      bool          `json:"headless"`
	ExecPath      string        `json:"exec_path"`
	StepDelay     time.Duration `json:"step_delay"`
	WaitTimeout   time.Duration `json:"wait_timeout"`
	LoginTimeout  time.Duration `json:"login_timeout"`
	MaxConcurrent int           `json:"max_concurrent"`
	UserAgent     string        `json:"user_agent"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  getEnv("SERVICE_NAME", "api-mtr-gateway"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 150),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "mtr:stats"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 120),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 20),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
		Upstream: loadUpstream(),
		Automation: AutomationConfig{
			LoginServiceURL: strings.TrimRight(getEnv("LOGIN_SERVICE_URL", "http://localhost:8090"), "/"),
			HelperPort:      getEnvAsInt("LOGIN_HELPER_PORT", 8090),
		},
		Agencies: make(map[string]AgencyConfig, len(Agencies)),
		Browser: BrowserConfig{
			Headless:      getEnvAsBool("BROWSER_HEADLESS", true),
			ExecPath:      getEnv("BROWSER_EXEC_PATH", ""),
			StepDelay:     time.Duration(getEnvAsInt("BROWSER_STEP_DELAY_MS", 500)) * time.Millisecond,
			WaitTimeout:   time.Duration(getEnvAsInt("BROWSER_WAIT_TIMEOUT", 20)) * time.Second,
			LoginTimeout:  time.Duration(getEnvAsInt("BROWSER_LOGIN_TIMEOUT", 90)) * time.Second,
			MaxConcurrent: getEnvAsInt("BROWSER_MAX_CONCURRENT", 2),
			UserAgent:     getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"),
		},
	}

	for _, agency := range Agencies {
		cfg.Agencies[agency] = loadAgency(agency)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the gateway misbehave at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Server.Port)
	}
	if err := c.Upstream.Validate(); err != nil {
		return err
	}
	if c.Automation.LoginServiceURL == "" {
		return fmt.Errorf("LOGIN_SERVICE_URL must not be empty")
	}
	return nil
}

// Agency returns the configuration for the named agency (zero value if unknown)
func (c *Config) Agency(name string) AgencyConfig {
	return c.Agencies[strings.ToUpper(name)]
}

func loadAgency(agency string) AgencyConfig {
	return AgencyConfig{
		BaseURL:      strings.TrimRight(getEnv(agency+"_BASE_URL", ""), "/"),
		PortalURL:    strings.TrimRight(getEnv(agency+"_PORTAL_URL", ""), "/"),
		RequesterCPF: getEnv(agency+"_REQUESTER_CPF", ""),
		Partner: PartnerAccount{
			CNPJ:     getEnv(agency+"_PARTNER_CNPJ", ""),
			CPF:      getEnv(agency+"_PARTNER_CPF", ""),
			Password: getEnv(agency+"_PARTNER_SENHA", ""),
			UnitCode: getEnv(agency+"_PARTNER_UNIDADE", ""),
		},
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
