// Package config loads DataSweeper settings from environment variables.
// Every field has a default; Validate reports all bad values at once so a
// misconfigured server fails on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Preview  PreviewConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining uploads.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the per-request middleware timeout.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	// MaxFileSize caps each uploaded file, in bytes (default 50MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxFiles caps the number of files in one batch.
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long an idle session keeps its files.
	TTL             time.Duration `env:"SESSION_TTL" default:"1h"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" default:"5m"`

	CookieName   string `env:"SESSION_COOKIE_NAME" default:"datasweeper_session"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE" default:"false"`

	// MaxSessions caps live sessions; the least recently used is evicted.
	MaxSessions int `env:"SESSION_MAX_SESSIONS" default:"1000"`
}

// PreviewConfig controls what the page shows of each table.
type PreviewConfig struct {
	Rows           int `env:"PREVIEW_ROWS" default:"5"`
	ChartMaxPoints int `env:"CHART_MAX_POINTS" default:"500"`
}

// RateLimitConfig holds per-IP rate limits, in requests per minute.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins lists CORS origins for the JSON API.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
