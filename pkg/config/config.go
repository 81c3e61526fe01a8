package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Identity provider configuration
	Keycloak keycloak.Config

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// SecureCookies marks auth cookies Secure; disable only for local dev.
	SecureCookies bool
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int

	// Redis enables the distributed fixed-window limiter. Empty means
	// the in-process token bucket is used instead.
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// AuditLogDir enables the file audit trail when non-empty.
	AuditLogDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Keycloak:      loadKeycloakConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("RBAC_HOST", "0.0.0.0"),
		Port:            getEnv("RBAC_PORT", "8080"),
		ReadTimeout:     getEnvDuration("RBAC_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("RBAC_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("RBAC_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("RBAC_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("RBAC_HEALTH_PORT", "9090"),
		SecureCookies:   getEnvBool("RBAC_SECURE_COOKIES", true),
	}
}

// loadKeycloakConfig loads identity provider configuration from environment
func loadKeycloakConfig() keycloak.Config {
	return keycloak.Config{
		BaseURL:      getEnv("RBAC_KEYCLOAK_URL", "http://localhost:8081"),
		Realm:        getEnv("RBAC_KEYCLOAK_REALM", "master"),
		ClientID:     getEnv("RBAC_KEYCLOAK_CLIENT_ID", ""),
		ClientSecret: getEnv("RBAC_KEYCLOAK_CLIENT_SECRET", ""),
		Timeout:      getEnvDuration("RBAC_KEYCLOAK_TIMEOUT", 10*time.Second),
	}
}

// loadRateLimitConfig loads rate limiting configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("RBAC_RATE_LIMIT_ENABLED", true),
		RequestsPerMinute: getEnvInt("RBAC_RATE_LIMIT_RPM", 300),
		RedisURL:          getEnv("RBAC_REDIS_URL", ""),
		RedisPassword:     getEnv("RBAC_REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("RBAC_REDIS_DB", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("RBAC_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("RBAC_METRICS_ENABLED", true),
		AuditLogDir:    getEnv("RBAC_AUDIT_LOG_DIR", ""),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Keycloak.BaseURL == "" {
		return fmt.Errorf("keycloak URL is required")
	}
	if c.Keycloak.Realm == "" {
		return fmt.Errorf("keycloak realm is required")
	}
	if c.Keycloak.ClientID == "" || c.Keycloak.ClientSecret == "" {
		return fmt.Errorf("keycloak client credentials are required")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable value or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable value or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
