package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"`
	Telegram    TelegramConfig   `toml:"telegram"`
	Auth        AuthConfig       `toml:"auth"`
	Collect     CollectConfig    `toml:"collect"`
	Supervisor  SupervisorConfig `toml:"supervisor"`
	Storage     StorageConfig    `toml:"storage"`
	Export      ExportConfig     `toml:"export"`
	Logging     LoggingConfig    `toml:"logging"`
}

// TelegramConfig holds the API credentials and session identity
type TelegramConfig struct {
	APIID       int    `toml:"api_id" validate:"required,gt=0"`
	APIHash     string `toml:"api_hash" validate:"required"`
	SessionName string `toml:"session_name" validate:"required"`
}

// AuthConfig controls the interactive login flow
type AuthConfig struct {
	// MaxCodeRetries caps rate-limited retries of the code request step.
	// 0 means retry indefinitely, matching the upstream behavior.
	MaxCodeRetries int `toml:"max_code_retries" validate:"gte=0"`
}

// CollectConfig controls collection jobs
type CollectConfig struct {
	DefaultLimit      int     `toml:"default_limit" validate:"gte=0"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gt=0"`
}

// SupervisorConfig controls the bounded waits around job start and stop.
// Values are duration strings ("3s", "500ms") parsed with
// time.ParseDuration.
type SupervisorConfig struct {
	PreemptWait string `toml:"preempt_wait"` // Wait for old job before starting a new one (non-enforcing)
	StopWait    string `toml:"stop_wait"`    // Wait on explicit stop before forced termination
}

// PreemptWaitDuration returns the parsed preempt wait, falling back to
// the default when unset
func (c SupervisorConfig) PreemptWaitDuration() time.Duration {
	return parseDuration(c.PreemptWait, 3*time.Second)
}

// StopWaitDuration returns the parsed stop wait, falling back to the
// default when unset
func (c SupervisorConfig) StopWaitDuration() time.Duration {
	return parseDuration(c.StopWait, 5*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for job history
type BadgerConfig struct {
	Path           string `toml:"path"` // Database directory path
	HistoryEnabled bool   `toml:"history_enabled"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type ExportConfig struct {
	Dir string `toml:"dir"` // Directory for saved CSV files
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Telegram: TelegramConfig{
			SessionName: "colligo_session",
		},
		Auth: AuthConfig{
			MaxCodeRetries: 0,
		},
		Collect: CollectConfig{
			DefaultLimit:      1000,
			RequestsPerSecond: 5,
		},
		Supervisor: SupervisorConfig{
			PreemptWait: "3s",
			StopWait:    "5s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/colligo",
				HistoryEnabled: true,
			},
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env file -> env vars
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// A local .env file can carry the API credentials so they stay out of
	// the checked-in toml. Missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks the configuration for a runnable job setup
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for key, value := range map[string]string{
		"supervisor.preempt_wait": c.Supervisor.PreemptWait,
		"supervisor.stop_wait":    c.Supervisor.StopWait,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", key, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Telegram credentials
	if apiID := os.Getenv("COLLIGO_API_ID"); apiID != "" {
		if id, err := strconv.Atoi(apiID); err == nil {
			config.Telegram.APIID = id
		}
	}
	if apiHash := os.Getenv("COLLIGO_API_HASH"); apiHash != "" {
		config.Telegram.APIHash = apiHash
	}
	if session := os.Getenv("COLLIGO_SESSION_NAME"); session != "" {
		config.Telegram.SessionName = session
	}

	// Collection
	if limit := os.Getenv("COLLIGO_DEFAULT_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Collect.DefaultLimit = l
		}
	}

	// Storage
	if badgerPath := os.Getenv("COLLIGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging
	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("COLLIGO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}
