// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for frontdesk.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - FRONTDESK_CONFIG environment variable
//   - ~/.frontdesk/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"

	"github.com/jeranaias/frontdesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete frontdesk configuration.
type Config struct {
	// Version is the config schema version.
	Version string `toml:"version" env:"-"`

	// Webhook configuration
	Webhook WebhookConfig `toml:"webhook"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// WebhookConfig contains the external conversational endpoint configuration.
type WebhookConfig struct {
	// URL is the endpoint all chat requests are posted to.
	URL string `toml:"url" env:"FRONTDESK_WEBHOOK_URL"`
	// TimeoutSecs bounds a single request including retries.
	TimeoutSecs int `toml:"timeout_secs" env:"FRONTDESK_WEBHOOK_TIMEOUT_SECS"`
	// MaxRetries is the number of attempts for transient errors.
	MaxRetries int `toml:"max_retries" env:"FRONTDESK_WEBHOOK_MAX_RETRIES"`
	// RateLimit paces outbound requests per second (0 = unlimited).
	RateLimit float64 `toml:"rate_limit" env:"FRONTDESK_WEBHOOK_RATE_LIMIT"`
}

// StorageConfig contains session persistence configuration.
type StorageConfig struct {
	// DataFile is the path to the session JSON file
	// (empty = default ~/.frontdesk/sessions.json).
	DataFile string `toml:"data_file" env:"FRONTDESK_DATA_FILE"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" env:"FRONTDESK_LOG_LEVEL"`
	// File is the JSON log file path (empty = default ~/.frontdesk/frontdesk.log).
	File string `toml:"file" env:"FRONTDESK_LOG_FILE"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Color enables ANSI styling in command output.
	Color bool `toml:"color" env:"FRONTDESK_COLOR"`
	// Timestamps shows message times in transcripts.
	Timestamps bool `toml:"timestamps" env:"FRONTDESK_TIMESTAMPS"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Webhook: WebhookConfig{
			URL:         "",
			TimeoutSecs: 60,
			MaxRetries:  3,
			RateLimit:   0, // unlimited
		},

		Storage: StorageConfig{
			DataFile: "",
		},

		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},

		UI: UIConfig{
			Color:      true,
			Timestamps: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the frontdesk configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".frontdesk"), nil
}

// Path returns the path to the TOML config file, honoring the
// FRONTDESK_CONFIG override.
func Path() (string, error) {
	if p := os.Getenv("FRONTDESK_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataFilePath resolves the session data file path, falling back to the
// default under the config directory.
func (c *Config) DataFilePath() (string, error) {
	if c.Storage.DataFile != "" {
		return c.Storage.DataFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.json"), nil
}

// LogFilePath resolves the log file path, falling back to the default under
// the config directory.
func (c *Config) LogFilePath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "frontdesk.log"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD & SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when it does not exist. Environment overrides are applied last, then the
// result is validated.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path. A missing
// file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays FRONTDESK_* environment variables onto the
// loaded values.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// Save writes the configuration to the default config file atomically.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// SECURITY: 0600 because the file may carry a private endpoint URL.
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors. An empty
// webhook URL is allowed; sending is rejected at request time instead so
// the rest of the CLI stays usable.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "webhook.url",
				Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Webhook.URL),
			})
		}
	}

	if c.Webhook.TimeoutSecs < 1 || c.Webhook.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "webhook.timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.Webhook.TimeoutSecs),
		})
	}

	if c.Webhook.MaxRetries < 1 || c.Webhook.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "webhook.max_retries",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Webhook.MaxRetries),
		})
	}

	if c.Webhook.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "webhook.rate_limit",
			Message: "cannot be negative",
		})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be debug, info, warn, or error, got %q", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
