package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendSQLite   = "sqlite"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	StorageBackend      string
	DatabaseURL         string
	SQLitePath          string
	JWTSecret           string
	LLMModel            string
	LLMAPIKey           string
	LLMBaseURL          string
	VoiceVendorURL      string
	VoiceVendorAPIKey   string
	ProgressAPIURL      string
	ProgressAPIToken    string
	DefaultDurationMin  int
	MaxDurationMin      int
	AutosaveIntervalSec int
	RetryMaxAttempts    int
	RetryBaseDelayMS    int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StorageBackend {
	case StorageBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=%s", StorageBackendPostgres)
		}
	case StorageBackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_BACKEND=%s", StorageBackendSQLite)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageBackendPostgres, StorageBackendSQLite, c.StorageBackend)
	}
	if c.DefaultDurationMin <= 0 {
		return fmt.Errorf("DEFAULT_DURATION_MIN must be positive, got %d", c.DefaultDurationMin)
	}
	if c.MaxDurationMin < c.DefaultDurationMin {
		return fmt.Errorf("MAX_DURATION_MIN must be >= DEFAULT_DURATION_MIN, got %d < %d", c.MaxDurationMin, c.DefaultDurationMin)
	}
	if c.AutosaveIntervalSec <= 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL_SEC must be positive, got %d", c.AutosaveIntervalSec)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
	}
	if c.RetryBaseDelayMS < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY_MS must not be negative, got %d", c.RetryBaseDelayMS)
	}
	if parts := strings.SplitN(c.LLMModel, "/", 2); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("LLM_MODEL must look like provider/model, got %q", c.LLMModel)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "JWT_SECRET", value: c.JWTSecret},
		{name: "LLM_MODEL", value: c.LLMModel},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveIntervalSec) * time.Second
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}
