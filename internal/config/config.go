package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/healthsync/internal/platform/fhirclient"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	FHIRBaseURL       string `mapstructure:"FHIR_BASE_URL"`
	FHIRTimeoutMS     int    `mapstructure:"FHIR_TIMEOUT_MS"`
	FHIRRetry         int    `mapstructure:"FHIR_RETRY"`
	FHIRRetryDelayMS  int    `mapstructure:"FHIR_RETRY_DELAY_MS"`
	FHIRPageSize      int    `mapstructure:"FHIR_PAGE_SIZE"`
	FHIRMaxPages      int    `mapstructure:"FHIR_MAX_PAGES"`
	FHIRSyncFreq      int    `mapstructure:"FHIR_SYNC_FREQ"`
	FHIROutcomeStrict bool   `mapstructure:"FHIR_OUTCOME_STRICT"`
	FHIRBearerToken   string `mapstructure:"FHIR_BEARER_TOKEN"`
	SyncLockTTLSec    int    `mapstructure:"SYNC_LOCK_TTL_S"`

	PatientFHIRID string `mapstructure:"PATIENT_FHIR_ID"`
	PatientUserID string `mapstructure:"PATIENT_USER_ID"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR", "REDIS_URL",
	"FHIR_BASE_URL", "FHIR_TIMEOUT_MS", "FHIR_RETRY", "FHIR_RETRY_DELAY_MS",
	"FHIR_PAGE_SIZE", "FHIR_MAX_PAGES", "FHIR_SYNC_FREQ", "FHIR_OUTCOME_STRICT",
	"FHIR_BEARER_TOKEN", "SYNC_LOCK_TTL_S",
	"PATIENT_FHIR_ID", "PATIENT_USER_ID",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4")
	v.SetDefault("FHIR_TIMEOUT_MS", 10000)
	v.SetDefault("FHIR_RETRY", 3)
	v.SetDefault("FHIR_RETRY_DELAY_MS", 1000)
	v.SetDefault("FHIR_PAGE_SIZE", 100)
	v.SetDefault("FHIR_MAX_PAGES", 50)
	v.SetDefault("FHIR_SYNC_FREQ", 0)
	v.SetDefault("FHIR_OUTCOME_STRICT", false)
	v.SetDefault("SYNC_LOCK_TTL_S", 600)

	for _, k := range keys {
		v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.FHIRBaseURL = strings.TrimRight(cfg.FHIRBaseURL, "/")

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SyncInterval is the scheduler delay. Zero means manual sync only.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.FHIRSyncFreq) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.SyncLockTTLSec) * time.Second
}

func (c *Config) RetryPolicy() fhirclient.RetryPolicy {
	return fhirclient.RetryPolicy{
		Retries: c.FHIRRetry,
		Delay:   time.Duration(c.FHIRRetryDelayMS) * time.Millisecond,
	}
}

func (c *Config) Classifier() fhirclient.Classifier {
	if c.FHIROutcomeStrict {
		return fhirclient.StrictClassifier()
	}
	return fhirclient.DefaultClassifier()
}

func (c *Config) ClientConfig() fhirclient.Config {
	return fhirclient.Config{
		BaseURL:     c.FHIRBaseURL,
		Timeout:     time.Duration(c.FHIRTimeoutMS) * time.Millisecond,
		BearerToken: c.FHIRBearerToken,
	}
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so that API requests are authenticated.
func (c *Config) Validate() error {
	if c.FHIRBaseURL == "" {
		return fmt.Errorf("FHIR_BASE_URL is required")
	}
	if !strings.HasPrefix(c.FHIRBaseURL, "http://") && !strings.HasPrefix(c.FHIRBaseURL, "https://") {
		return fmt.Errorf("FHIR_BASE_URL must be an http(s) URL, got %q", c.FHIRBaseURL)
	}
	if c.FHIRSyncFreq < 0 {
		return fmt.Errorf("FHIR_SYNC_FREQ must not be negative, got %d", c.FHIRSyncFreq)
	}
	if c.FHIRRetry < 1 {
		return fmt.Errorf("FHIR_RETRY must be at least 1, got %d", c.FHIRRetry)
	}
	if c.FHIRRetryDelayMS < 0 || c.FHIRTimeoutMS < 0 {
		return fmt.Errorf("FHIR_RETRY_DELAY_MS and FHIR_TIMEOUT_MS must not be negative")
	}
	if c.FHIRPageSize < 1 || c.FHIRMaxPages < 1 {
		return fmt.Errorf("FHIR_PAGE_SIZE and FHIR_MAX_PAGES must be positive")
	}
	if c.SyncLockTTLSec < 1 {
		return fmt.Errorf("SYNC_LOCK_TTL_S must be positive, got %d", c.SyncLockTTLSec)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	return nil
}
