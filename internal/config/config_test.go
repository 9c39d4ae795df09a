package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("DB_PASSWORD", "test-password")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 120s", cfg.Server.WriteTimeout)
	}
	if cfg.Claude.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Claude.Model = %q", cfg.Claude.Model)
	}
	if cfg.Claude.CacheTTL != 24*time.Hour {
		t.Errorf("Claude.CacheTTL = %v, want 24h", cfg.Claude.CacheTTL)
	}
	if cfg.Scheduler.CronSpec != "0 6 * * *" {
		t.Errorf("Scheduler.CronSpec = %q", cfg.Scheduler.CronSpec)
	}
	if cfg.Scheduler.RetainPerURL != 30 {
		t.Errorf("Scheduler.RetainPerURL = %d, want 30", cfg.Scheduler.RetainPerURL)
	}
	if !cfg.RateLimits.Enabled || cfg.RateLimits.RequestsPerMin != 60 {
		t.Errorf("RateLimits = %+v", cfg.RateLimits)
	}
	if cfg.Security.APIKeyHeader != "X-API-Key" {
		t.Errorf("Security.APIKeyHeader = %q", cfg.Security.APIKeyHeader)
	}
	if len(cfg.Security.APIKeys) != 0 {
		t.Errorf("Security.APIKeys = %v, want empty", cfg.Security.APIKeys)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CAPTURE_VIEWPORT_WIDTH", "1366")
	t.Setenv("SECURITY_API_KEYS", "key-one,key-two")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Capture.ViewportWidth != 1366 {
		t.Errorf("Capture.ViewportWidth = %d, want 1366", cfg.Capture.ViewportWidth)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "key-one" {
		t.Errorf("Security.APIKeys = %v", cfg.Security.APIKeys)
	}
}

func TestLoadRequiresClaudeKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DB_PASSWORD", "test-password")

	if _, err := Load(); err == nil {
		t.Fatal("Load without ANTHROPIC_API_KEY succeeded, want error")
	}
}

func TestValidateWebhookSecretPairing(t *testing.T) {
	cfg := &Config{}
	cfg.Env = EnvDevelopment
	cfg.Claude.APIKey = "key"
	cfg.Alerting.WebhookURL = "https://hooks.example.com/audit"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted a webhook URL without a secret")
	}
	if !strings.Contains(err.Error(), "ALERT_WEBHOOK_SECRET") {
		t.Errorf("error = %v, want mention of ALERT_WEBHOOK_SECRET", err)
	}

	cfg.Alerting.WebhookSecret = "shh"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with secret = %v, want nil", err)
	}
}

func TestValidateDatabasePassword(t *testing.T) {
	cfg := &Config{}
	cfg.Claude.APIKey = "key"

	cfg.Env = EnvProduction
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty DB password in production")
	}

	cfg.Env = EnvDevelopment
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate in development = %v, want nil", err)
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db.internal", Port: 5433,
		User: "svc", Password: "pw", Database: "audits", SSLMode: "require",
	}
	want := "host=db.internal port=5433 user=svc password=pw dbname=audits sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache.internal", Port: 6380}
	if got := c.Addr(); got != "cache.internal:6380" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestGetLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	if got := cfg.GetLogLevel(); got != "warn" {
		t.Errorf("GetLogLevel = %q, want warn", got)
	}
	cfg.Debug = true
	if got := cfg.GetLogLevel(); got != "debug" {
		t.Errorf("GetLogLevel with Debug = %q, want debug", got)
	}
}
