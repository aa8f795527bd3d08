// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package config loads and validates application configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file, then environment variables. Environment variables always win,
// so a containerized deployment can run without any config file at all.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Sentry   SentryConfig   `koanf:"sentry"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds transport and HTTP server settings
type ServerConfig struct {
	Transport        string        `koanf:"transport"`         // "stdio" or "http"
	Host             string        `koanf:"host"`              // HTTP listen address
	Port             int           `koanf:"port"`              // HTTP listen port
	Timeout          time.Duration `koanf:"timeout"`           // per-request read/write timeout
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`  // graceful shutdown deadline
	WebSocketEnabled bool          `koanf:"websocket_enabled"` // expose /mcp/ws alongside POST /mcp
}

// SentryConfig holds upstream Sentry API settings
type SentryConfig struct {
	BaseURL      string `koanf:"base_url"` // API root, no trailing slash
	AuthToken    string `koanf:"auth_token"`
	Organization string `koanf:"organization"` // org slug
	Project      string `koanf:"project"`      // project slug
}

// SecurityConfig holds inbound request hardening settings
type SecurityConfig struct {
	CORSOrigins      []string      `koanf:"cors_origins"`       // allowed origins, empty disables CORS
	RateLimitReqs    int           `koanf:"rate_limit_requests"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window"`
	DisableRateLimit bool          `koanf:"disable_rate_limit"` // for trusted internal deployments
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // "json" or "console"
	Caller bool   `koanf:"caller"` // include file:line in log output
}

// MetricsConfig holds Prometheus metrics settings
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"` // expose GET /metrics on the HTTP transport
}

// ConfigError indicates missing or invalid deployment configuration.
// The request router reports it with a distinct error type so callers
// can tell a misconfigured server from a bad request.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError creates a ConfigError with the given message
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// Load reads configuration from defaults, an optional config file,
// and environment variables, then validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateSentry(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateSentry checks the upstream credentials. All three are
// required for every tool, so a missing value is fatal at startup
// rather than a per-request surprise.
func (c *Config) validateSentry() error {
	if c.Sentry.AuthToken == "" || c.Sentry.Organization == "" || c.Sentry.Project == "" {
		return &ConfigError{Message: "Missing required environment variables. " +
			"Please set SENTRY_AUTH_TOKEN, SENTRY_ORG, and SENTRY_PROJECT."}
	}
	if c.Sentry.BaseURL == "" {
		return NewConfigError("sentry.base_url must not be empty")
	}
	if !strings.HasPrefix(c.Sentry.BaseURL, "http://") && !strings.HasPrefix(c.Sentry.BaseURL, "https://") {
		return NewConfigError("sentry.base_url must start with http:// or https://, got %q", c.Sentry.BaseURL)
	}
	return nil
}

// validateServer validates the transport selection and HTTP settings
func (c *Config) validateServer() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return NewConfigError("server.transport must be \"stdio\" or \"http\", got %q", c.Server.Transport)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigError("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return NewConfigError("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return NewConfigError("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

// validateSecurity validates rate limiting settings
func (c *Config) validateSecurity() error {
	if c.Security.DisableRateLimit {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return NewConfigError("security.rate_limit_requests must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return NewConfigError("security.rate_limit_window must be positive, got %s", c.Security.RateLimitWindow)
	}
	return nil
}

// validateLogging validates the log level and format
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return NewConfigError("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return NewConfigError("logging.format must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}

// Addr returns the HTTP listen address in host:port form
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
