// Package config loads Hermes's environment-variable configuration (spec
// §6.1), with production-ready defaults and validation applied the same
// way throughout: read the string, fall back to a default, then validate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// WorkerConfig configures the ingestion worker binary: the Chat Stream
// Ingestor (C2), Stats Poller (C3) and Supervisor (C4).
type WorkerConfig struct {
	DatabaseURL   string
	YouTubeAPIKey string
	YouTubeURL    string // initial URL; DB setting wins thereafter, see SPEC_FULL.md
	BackupDir     string

	PollInterval              time.Duration
	EnableBackfill            bool
	RetryMaxAttempts          int
	RetryBackoffSeconds       int
	URLCheckInterval          time.Duration
	ChatWatchdogTimeout       time.Duration
	ChatWatchdogCheckInterval time.Duration

	LogLevel string
}

// LoadWorkerConfig reads WorkerConfig from the environment and validates it.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		YouTubeURL:    os.Getenv("YOUTUBE_URL"),
		BackupDir:     getEnvOrDefault("BACKUP_DIR", "/data/backup"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	var err error
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.EnableBackfill, err = getEnvBool("ENABLE_BACKFILL", false); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBackoffSeconds, err = getEnvInt("RETRY_BACKOFF_SECONDS", 5); err != nil {
		return nil, err
	}
	if cfg.URLCheckInterval, err = getEnvDuration("URL_CHECK_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChatWatchdogTimeout, err = getEnvDuration("CHAT_WATCHDOG_TIMEOUT", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChatWatchdogCheckInterval, err = getEnvDuration("CHAT_WATCHDOG_CHECK_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
// Missing env vars are fatal at startup (spec §7).
func (c *WorkerConfig) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.YouTubeAPIKey == "" {
		missing = append(missing, "YOUTUBE_API_KEY")
	}
	if c.YouTubeURL == "" {
		missing = append(missing, "YOUTUBE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingRequired, missing)
	}
	if c.RetryMaxAttempts < 1 {
		return NewValidationError("RETRY_MAX_ATTEMPTS", fmt.Errorf("must be at least 1"))
	}
	if c.PollInterval <= 0 {
		return NewValidationError("POLL_INTERVAL", fmt.Errorf("must be positive"))
	}
	return nil
}

// ETLConfig configures the ETL core binary: normalization, word discovery
// reconciliation and dictionary import (C5).
type ETLConfig struct {
	DatabaseURL string

	AIEndpointURL    string
	AIEndpointAPIKey string

	NormalizeInterval  time.Duration
	NormalizeBatchSize int

	DiscoveryInterval time.Duration
	DiscoveryWindow   time.Duration
	DiscoveryMinCount int

	DictImportDir string

	LogLevel string
}

// LoadETLConfig reads ETLConfig from the environment and validates it.
func LoadETLConfig() (*ETLConfig, error) {
	cfg := &ETLConfig{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AIEndpointURL:    os.Getenv("AI_ENDPOINT_URL"),
		AIEndpointAPIKey: os.Getenv("AI_ENDPOINT_API_KEY"),
		DictImportDir:    getEnvOrDefault("DICT_IMPORT_DIR", "/data/dicts"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	var err error
	if cfg.NormalizeInterval, err = getEnvDuration("ETL_NORMALIZE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.NormalizeBatchSize, err = getEnvInt("ETL_NORMALIZE_BATCH_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.DiscoveryInterval, err = getEnvDuration("ETL_DISCOVERY_INTERVAL", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DiscoveryWindow, err = getEnvDuration("ETL_DISCOVERY_WINDOW", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DiscoveryMinCount, err = getEnvInt("ETL_DISCOVERY_MIN_COUNT", 20); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that ETLConfig's required fields are present.
func (c *ETLConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: [DATABASE_URL]", ErrMissingRequired)
	}
	if c.NormalizeBatchSize < 1 {
		return NewValidationError("ETL_NORMALIZE_BATCH_SIZE", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return v, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return v, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultVal, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return time.Duration(secs) * time.Second, nil
}
