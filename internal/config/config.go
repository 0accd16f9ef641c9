// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Reconcile ReconcileConfig
	Mail      MailConfig
	Notify    NotifyConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 3000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"3000"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight uploads (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-upload requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds store selection and connection settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres, mysql or memory (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the connection string; required unless Driver is memory.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate creates the orders table on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel pipeline runs (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single run (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`

	// FieldName is the multipart form field carrying the file (default: deliveryFile)
	FieldName string `env:"UPLOAD_FIELD_NAME" default:"deliveryFile"`
}

// ReconcileConfig tunes extraction of the delivery export.
type ReconcileConfig struct {
	HeaderRows int `env:"RECONCILE_HEADER_ROWS" default:"6"`
	FooterRows int `env:"RECONCILE_FOOTER_ROWS" default:"2"`

	// MissingCodePolicy is report, skip or fail (default: report)
	MissingCodePolicy string `env:"RECONCILE_MISSING_CODE_POLICY" default:"report"`
}

// MailConfig holds SMTP settings for the mail channel.
type MailConfig struct {
	Host     string `env:"MAIL_HOST" envAlt:"SMTP_HOST"`
	Port     int    `env:"MAIL_PORT" default:"465"`
	Username string `env:"MAIL_USERNAME" envAlt:"MAIL_USER"`
	Password string `env:"MAIL_PASSWORD" envAlt:"MAIL_PASS"`
	From     string `env:"MAIL_FROM"`

	// TLSPolicy is mandatory, opportunistic or none (default: mandatory)
	TLSPolicy string `env:"MAIL_TLS_POLICY" default:"mandatory"`

	// SSL uses implicit TLS, as on port 465 (default: true)
	SSL bool `env:"MAIL_SSL" default:"true"`

	// TemplateDir overrides the embedded templates when set.
	TemplateDir string `env:"MAIL_TEMPLATE_DIR"`

	Timeout time.Duration `env:"MAIL_TIMEOUT" default:"15s"`
}

// NotifyConfig controls notification dispatch.
type NotifyConfig struct {
	// Enabled turns dispatch on (default: true)
	Enabled bool `env:"NOTIFY_ENABLED" default:"true"`

	// Channel is smtp or log (default: log)
	Channel string `env:"NOTIFY_CHANNEL" default:"log"`

	// BaseURL prefixes the {link} placeholder.
	BaseURL string `env:"NOTIFY_BASE_URL" envAlt:"BASE_URL" default:"http://localhost:3000/orders"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds proxy, CORS and API key settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins is a comma-separated CORS origin list (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	// RequireAPIKey protects /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
