// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// parley.
//
// Configuration comes from ~/.parley/config.toml, with defaults for
// everything and PARLEY_* environment variables taking precedence over
// the file. A .env file in the working directory is honored for
// development setups.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/avelinek/parley/internal/util"
)

// Config is the complete parley configuration.
type Config struct {
	Version string `toml:"version"`

	API   APIConfig   `toml:"api"`
	Chat  ChatConfig  `toml:"chat"`
	Store StoreConfig `toml:"store"`
	Log   LogConfig   `toml:"log"`
	UI    UIConfig    `toml:"ui"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	// BaseURL is the backend root, without a trailing slash.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerSec paces outbound requests (0 disables pacing).
	RequestsPerSec float64 `toml:"requests_per_sec"`
}

// ChatConfig configures the conversation controller.
type ChatConfig struct {
	// DefaultModel is "gpt" or "claude".
	DefaultModel string `toml:"default_model"`
	// MaxMessages is the local conversation cap before the cooldown
	// starts.
	MaxMessages int `toml:"max_messages"`
	// CooldownMinutes is the local cooldown window.
	CooldownMinutes int `toml:"cooldown_minutes"`
}

// StoreConfig configures the credential store.
type StoreConfig struct {
	// Encrypt enables at-rest encryption of the credential file.
	Encrypt bool `toml:"encrypt"`
}

// LogConfig configures file logging.
type LogConfig struct {
	// Level is one of: trace, debug, info, warn, error, off.
	Level string `toml:"level"`
	// Path is the log file location (empty = ~/.parley/parley.log).
	Path string `toml:"path"`
}

// UIConfig configures the terminal front-end.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// Markdown renders assistant replies as markdown.
	Markdown bool `toml:"markdown"`
	// CompactMode tightens the chat layout.
	CompactMode bool `toml:"compact_mode"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		API: APIConfig{
			BaseURL:        "https://api.parley.dev",
			TimeoutSecs:    30,
			RequestsPerSec: 5,
		},
		Chat: ChatConfig{
			DefaultModel:    "gpt",
			MaxMessages:     10,
			CooldownMinutes: 240,
		},
		Store: StoreConfig{
			Encrypt: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// Timeout returns the API request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// Cooldown returns the local cooldown window as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Chat.CooldownMinutes) * time.Minute
}

// LogPath returns the configured log file path, or the default under
// the config directory.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "parley.log"), nil
}

// Dir returns the parley configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// ensureSecurePermissions tightens the config file to 0600. The file
// has no secrets today, but log paths and base URLs are still private.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// Load loads configuration from ~/.parley/config.toml, falling back to
// defaults when the file is absent. A .env file is loaded first so its
// variables participate in the env overrides, which are applied last.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := decodeFile(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeFile(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to a TOML file atomically with 0600
// permissions.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# parley configuration file\n")
	buf.WriteString("# Edit with care; unknown keys are ignored.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidationError represents a configuration validation error.
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
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL == "" {
		errs = append(errs, ValidationError{"api.base_url", "must not be empty"})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", fmt.Sprintf("invalid URL '%s'", c.API.BaseURL)})
	}

	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.RequestsPerSec < 0 {
		errs = append(errs, ValidationError{"api.requests_per_sec", "cannot be negative"})
	}

	validModels := map[string]bool{"gpt": true, "claude": true}
	if !validModels[strings.ToLower(c.Chat.DefaultModel)] {
		errs = append(errs, ValidationError{
			Field:   "chat.default_model",
			Message: fmt.Sprintf("invalid model '%s', must be one of: gpt, claude", c.Chat.DefaultModel),
		})
	}

	// The local cap counts both sides of an exchange, so anything
	// below one full exchange makes chat unusable.
	if c.Chat.MaxMessages < 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_messages",
			Message: fmt.Sprintf("must be at least 2, got %d", c.Chat.MaxMessages),
		})
	}
	if c.Chat.CooldownMinutes < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.cooldown_minutes",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Chat.CooldownMinutes),
		})
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "off": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, off", c.Log.Level),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in defaults for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = defaults.Chat.DefaultModel
	}
	if c.Chat.MaxMessages == 0 {
		c.Chat.MaxMessages = defaults.Chat.MaxMessages
	}
	if c.Chat.CooldownMinutes == 0 {
		c.Chat.CooldownMinutes = defaults.Chat.CooldownMinutes
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - PARLEY_API_URL: overrides api.base_url
//   - PARLEY_TIMEOUT_SECS: overrides api.timeout_secs
//   - PARLEY_MODEL: overrides chat.default_model
//   - PARLEY_MAX_MESSAGES: overrides chat.max_messages
//   - PARLEY_COOLDOWN_MINUTES: overrides chat.cooldown_minutes
//   - PARLEY_LOG_LEVEL: overrides log.level
//   - PARLEY_ENCRYPT_STORE: "1"/"true" or "0"/"false"
//   - PARLEY_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PARLEY_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("PARLEY_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("PARLEY_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
	if v := os.Getenv("PARLEY_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.MaxMessages = n
		}
	}
	if v := os.Getenv("PARLEY_COOLDOWN_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.CooldownMinutes = n
		}
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PARLEY_ENCRYPT_STORE"); v != "" {
		c.Store.Encrypt = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PARLEY_THEME"); v != "" {
		c.UI.Theme = v
	}
}
