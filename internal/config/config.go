package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// Server
	Server ServerConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Claude AI
	Claude ClaudeConfig

	// Page capture
	Capture CaptureConfig

	// Performance collection
	PageSpeed PageSpeedConfig

	// Object storage
	Storage StorageConfig

	// Alerting
	Alerting AlertingConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Rate Limits
	RateLimits RateLimitConfig

	// Security
	Security SecurityConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"sitepulse"`
	Version  string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `envconfig:"SERVER_MAX_REQUEST_SIZE" default:"1048576"` // 1MB
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"sitepulse"`
	Password        string        `envconfig:"DB_PASSWORD" required:"true"`
	Database        string        `envconfig:"DB_NAME" default:"sitepulse"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClaudeConfig holds Claude AI settings
type ClaudeConfig struct {
	APIKey       string        `envconfig:"ANTHROPIC_API_KEY" required:"true"`
	Model        string        `envconfig:"CLAUDE_MODEL" default:"claude-sonnet-4-20250514"`
	MaxTokens    int           `envconfig:"CLAUDE_MAX_TOKENS" default:"8192"`
	Timeout      time.Duration `envconfig:"CLAUDE_TIMEOUT" default:"120s"`
	RateLimitRPM int           `envconfig:"CLAUDE_RATE_LIMIT_RPM" default:"50"`
	CacheTTL     time.Duration `envconfig:"CLAUDE_CACHE_TTL" default:"24h"`
	MaxRetries   int           `envconfig:"CLAUDE_MAX_RETRIES" default:"2"`
}

// CaptureConfig holds browser capture settings
type CaptureConfig struct {
	Headless       bool          `envconfig:"CAPTURE_HEADLESS" default:"true"`
	ViewportWidth  int           `envconfig:"CAPTURE_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int           `envconfig:"CAPTURE_VIEWPORT_HEIGHT" default:"1080"`
	NavTimeout     time.Duration `envconfig:"CAPTURE_NAV_TIMEOUT" default:"30s"`
}

// PageSpeedConfig holds PageSpeed Insights settings
type PageSpeedConfig struct {
	APIKey string `envconfig:"PAGESPEED_API_KEY" default:""`
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"sitepulse"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// AlertingConfig holds score-drop alert settings
type AlertingConfig struct {
	SlackWebhookURL string        `envconfig:"ALERT_SLACK_WEBHOOK_URL" default:""`
	WebhookURL      string        `envconfig:"ALERT_WEBHOOK_URL" default:""`
	WebhookSecret   string        `envconfig:"ALERT_WEBHOOK_SECRET" default:""`
	Timeout         time.Duration `envconfig:"ALERT_TIMEOUT" default:"10s"`
}

// SchedulerConfig holds scheduled audit settings
type SchedulerConfig struct {
	Enabled       bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	CronSpec      string `envconfig:"SCHEDULER_CRON" default:"0 6 * * *"`
	RetainPerURL  int    `envconfig:"SCHEDULER_RETAIN_PER_URL" default:"30"`
	MaxConcurrent int    `envconfig:"SCHEDULER_MAX_CONCURRENT" default:"3"`
}

// RateLimitConfig holds API rate limiting settings
type RateLimitConfig struct {
	Enabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMin int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MIN" default:"60"`
	BurstSize      int  `envconfig:"RATE_LIMIT_BURST_SIZE" default:"10"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	APIKeyHeader string `envconfig:"SECURITY_API_KEY_HEADER" default:"X-API-Key"`

	// APIKeys is the set of accepted keys. Empty disables authentication,
	// which is only sensible in development.
	APIKeys []string `envconfig:"SECURITY_API_KEYS"`

	CORSEnabled        bool     `envconfig:"CORS_ENABLED" default:"true"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with defaults for missing required fields (for CLI tools)
func LoadWithDefaults() (*Config, error) {
	var cfg Config

	// Try to load from env, but don't fail on missing required fields
	envconfig.Process("", &cfg)

	if cfg.Database.Password == "" {
		cfg.Database.Password = "sitepulse"
	}
	if cfg.Claude.APIKey == "" {
		cfg.Claude.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Claude.APIKey == "" {
		errors = append(errors, "ANTHROPIC_API_KEY is required")
	}

	if c.Env != EnvDevelopment {
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD is required in non-development mode")
		}
	}

	if c.Alerting.WebhookURL != "" && c.Alerting.WebhookSecret == "" {
		errors = append(errors, "ALERT_WEBHOOK_SECRET is required when ALERT_WEBHOOK_URL is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
