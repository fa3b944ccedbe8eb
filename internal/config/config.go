// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles snailgpt configuration loading and saving.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/snailgpt-tui/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the root configuration for snailgpt.
type Config struct {
	Version string `toml:"version" json:"version"`

	API        APIConfig        `toml:"api" json:"api"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Account    AccountConfig    `toml:"account" json:"account"`
	UI         UIConfig         `toml:"ui" json:"ui"`
	Debug      DebugConfig      `toml:"debug" json:"debug"`
}

// APIConfig holds the inference endpoint settings.
type APIConfig struct {
	// BaseURL is the root of the OpenAI-compatible API.
	BaseURL string `toml:"base_url" json:"base_url"`

	// Key is the bearer token. Resolution order: this value, then the
	// SNAILGPT_API_KEY environment variable. Absence is a hard
	// precondition failure at send time, never retried.
	Key string `toml:"key" json:"key"`

	// Model is the model identifier sent with each request.
	Model string `toml:"model" json:"model"`

	// StreamFormat selects the transport shape: "events" for SSE
	// data-line framing, "raw" for plain byte chunks.
	StreamFormat string `toml:"stream_format" json:"stream_format"`
}

// GenerationConfig controls the response token budget.
type GenerationConfig struct {
	// Mode is one of "normal", "high", "extreme".
	Mode string `toml:"mode" json:"mode"`

	// Persona overrides the built-in system preamble when non-empty.
	Persona string `toml:"persona,omitempty" json:"persona,omitempty"`
}

// AccountConfig holds account store settings.
type AccountConfig struct {
	// DatabasePath overrides the default sqlite location.
	DatabasePath string `toml:"database_path,omitempty" json:"database_path,omitempty"`

	// RecoveryExemptRoles lists roles allowed to change their password
	// without presenting a recovery code. Configured here rather than
	// wired to any identity in source.
	RecoveryExemptRoles []string `toml:"recovery_exempt_roles" json:"recovery_exempt_roles"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"`
	AnimationLevel string `toml:"animation_level" json:"animation_level"`

	// ExtremeOptimization forces the "extreme" generation mode and the
	// short context window regardless of Generation.Mode.
	ExtremeOptimization bool `toml:"extreme_optimization" json:"extreme_optimization"`

	ShowStats bool `toml:"show_stats" json:"show_stats"`
}

// DebugConfig controls the optional debug log. Stdout belongs to the
// TUI renderer, so diagnostics go to a file.
type DebugConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	LogFile string `toml:"log_file,omitempty" json:"log_file,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:      "https://router.huggingface.co/v1",
			Key:          "",
			Model:        "mistralai/Mistral-7B-Instruct-v0.3",
			StreamFormat: "events",
		},

		Generation: GenerationConfig{
			Mode: "normal",
		},

		Account: AccountConfig{
			RecoveryExemptRoles: []string{},
		},

		UI: UIConfig{
			Theme:          "shell",
			AnimationLevel: "full",
			ShowStats:      true,
		},

		Debug: DebugConfig{
			Enabled: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the snailgpt configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".snailgpt"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on files that may hold the
// API token. Anything other than 0600 gets tightened.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when no file exists. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the TOML config file with 0600
// permissions, via atomic rename.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to a specific TOML file.
func SaveToPath(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# snailgpt configuration file\n")
	sb.WriteString("# Generated by snailgpt - edit with care\n\n")

	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalJSON-compatible export used by diagnostics; the API key is
// masked so a pasted dump never leaks the token.
func (c *Config) Redacted() string {
	clone := *c
	if clone.API.Key != "" {
		clone.API.Key = "********"
	}
	data, err := json.MarshalIndent(&clone, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// =============================================================================
// OVERRIDES, DEFAULTS, VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SNAILGPT_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("SNAILGPT_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SNAILGPT_MODEL"); v != "" {
		c.API.Model = v
	}
}

// fillDefaults fills zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	def := Default()

	if c.Version == "" {
		c.Version = def.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.Model == "" {
		c.API.Model = def.API.Model
	}
	if c.API.StreamFormat == "" {
		c.API.StreamFormat = def.API.StreamFormat
	}
	if c.Generation.Mode == "" {
		c.Generation.Mode = def.Generation.Mode
	}
	if c.Account.RecoveryExemptRoles == nil {
		c.Account.RecoveryExemptRoles = []string{}
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.AnimationLevel == "" {
		c.UI.AnimationLevel = def.UI.AnimationLevel
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.API.StreamFormat {
	case "events", "raw":
	default:
		return ValidationError{Field: "api.stream_format", Message: "must be \"events\" or \"raw\""}
	}

	switch c.Generation.Mode {
	case "normal", "high", "extreme":
	default:
		return ValidationError{Field: "generation.mode", Message: "must be \"normal\", \"high\" or \"extreme\""}
	}

	switch c.UI.AnimationLevel {
	case "full", "reduced", "off":
	default:
		return ValidationError{Field: "ui.animation_level", Message: "must be \"full\", \"reduced\" or \"off\""}
	}

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return ValidationError{Field: "api.base_url", Message: "must be an http(s) URL"}
	}

	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// EffectiveMode returns the generation mode after the extreme
// optimization toggle is applied.
func (c *Config) EffectiveMode() string {
	if c.UI.ExtremeOptimization {
		return "extreme"
	}
	return c.Generation.Mode
}

// HasAPIKey reports whether an API credential is resolvable.
func (c *Config) HasAPIKey() bool {
	return c.API.Key != ""
}

// IsRecoveryExempt reports whether the given role may change its
// password without a recovery code.
func (c *Config) IsRecoveryExempt(role string) bool {
	for _, r := range c.Account.RecoveryExemptRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DatabasePath returns the sqlite path for the account store.
func (c *Config) DatabasePath() (string, error) {
	if c.Account.DatabasePath != "" {
		return c.Account.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "accounts.db"), nil
}

// SessionsDir returns the root directory for per-account session files.
func (c *Config) SessionsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// DebugLogPath returns the debug log location.
func (c *Config) DebugLogPath() (string, error) {
	if c.Debug.LogFile != "" {
		return c.Debug.LogFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}
