package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/mensetsu/internal/config"
)

type envConfig struct {
	Env                 string `env:"ENV" envDefault:"production"`
	HTTPAddr            string `env:"HTTP_ADDR" envDefault:":8080"`
	StorageBackend      string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL         string `env:"DATABASE_URL"`
	SQLitePath          string `env:"SQLITE_PATH" envDefault:"data/mensetsu.db"`
	JWTSecret           string `env:"JWT_SECRET,required"`
	LLMModel            string `env:"LLM_MODEL" envDefault:"gemini/gemini-2.5-flash"`
	LLMAPIKey           string `env:"LLM_API_KEY"`
	LLMBaseURL          string `env:"LLM_BASE_URL"`
	VoiceVendorURL      string `env:"VOICE_VENDOR_URL"`
	VoiceVendorAPIKey   string `env:"VOICE_VENDOR_API_KEY"`
	ProgressAPIURL      string `env:"PROGRESS_API_URL" envDefault:"http://localhost:8080"`
	ProgressAPIToken    string `env:"PROGRESS_API_TOKEN"`
	DefaultDurationMin  int    `env:"DEFAULT_DURATION_MIN" envDefault:"30"`
	MaxDurationMin      int    `env:"MAX_DURATION_MIN" envDefault:"240"`
	AutosaveIntervalSec int    `env:"AUTOSAVE_INTERVAL_SEC" envDefault:"30"`
	RetryMaxAttempts    int    `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelayMS    int    `env:"RETRY_BASE_DELAY_MS" envDefault:"1000"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		HTTPAddr:            raw.HTTPAddr,
		StorageBackend:      raw.StorageBackend,
		DatabaseURL:         raw.DatabaseURL,
		SQLitePath:          raw.SQLitePath,
		JWTSecret:           raw.JWTSecret,
		LLMModel:            raw.LLMModel,
		LLMAPIKey:           raw.LLMAPIKey,
		LLMBaseURL:          raw.LLMBaseURL,
		VoiceVendorURL:      raw.VoiceVendorURL,
		VoiceVendorAPIKey:   raw.VoiceVendorAPIKey,
		ProgressAPIURL:      raw.ProgressAPIURL,
		ProgressAPIToken:    raw.ProgressAPIToken,
		DefaultDurationMin:  raw.DefaultDurationMin,
		MaxDurationMin:      raw.MaxDurationMin,
		AutosaveIntervalSec: raw.AutosaveIntervalSec,
		RetryMaxAttempts:    raw.RetryMaxAttempts,
		RetryBaseDelayMS:    raw.RetryBaseDelayMS,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
