// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/dockchat/internal/kv"
	"github.com/jeranaias/dockchat/internal/util"
)

// SettingsKey is the fixed key the API settings blob is stored under in the
// host key-value store.
const SettingsKey = "settings"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Settings holds the completion API settings. The JSON field names match the
// settings blob the host persists, so a blob written by the settings dialog
// round-trips unchanged.
type Settings struct {
	// APIURL is the full chat-completions endpoint URL.
	APIURL string `toml:"api_url" json:"apiUrl"`
	// APIKey is the bearer token for the endpoint.
	APIKey string `toml:"api_key" json:"apiKey"`
	// Model is the model identifier sent with every request.
	Model string `toml:"model" json:"model"`
	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps the completion length (default 2000).
	MaxTokens int `toml:"max_tokens" json:"maxTokens"`
}

// ChatConfig contains session controller tunables.
type ChatConfig struct {
	// HistoryWindow is how many recent user/assistant turns are sent with
	// each request (default 20).
	HistoryWindow int `toml:"history_window" json:"history_window"`
	// Greeting seeds every fresh session as the first assistant message.
	Greeting string `toml:"greeting" json:"greeting"`
	// SystemPrompt is the static instruction prepended to every request.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// TitlePrefix prefixes auto-saved conversation titles.
	TitlePrefix string `toml:"title_prefix" json:"title_prefix"`
}

// HostConfig contains the note-host integration settings.
type HostConfig struct {
	// BaseURL is the host kernel URL serving the document export API.
	BaseURL string `toml:"base_url" json:"base_url"`
	// Token is the kernel API token, empty when the kernel runs without
	// auth.
	Token string `toml:"token" json:"token"`
}

// PanelConfig contains panel UI settings.
type PanelConfig struct {
	// Theme is the panel theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
}

// Config represents the complete dockchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API   Settings    `toml:"api" json:"api"`
	Chat  ChatConfig  `toml:"chat" json:"chat"`
	Host  HostConfig  `toml:"host" json:"host"`
	Panel PanelConfig `toml:"panel" json:"panel"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: Settings{
			APIURL:      "",
			APIKey:      "",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   2000,
		},

		Chat: ChatConfig{
			HistoryWindow: 20,
			Greeting:      "有什么可以帮您？",
			SystemPrompt:  "You are a helpful AI assistant integrated into Siyuan Note.",
			TitlePrefix:   "对话 ",
		},

		Host: HostConfig{
			BaseURL: "http://127.0.0.1:6806",
		},

		Panel: PanelConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the dockchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dockchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens permissions on files holding API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. TOML is assumed unless the path ends in .json.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config: %w", err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config: %w", err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults. Credentials are
// deliberately left empty: absent apiUrl/apiKey must surface as a
// configuration error at request time, not be silently invented.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.Model == "" {
		c.API.Model = defaults.API.Model
	}
	if c.API.Temperature == 0 {
		c.API.Temperature = defaults.API.Temperature
	}
	if c.API.MaxTokens == 0 {
		c.API.MaxTokens = defaults.API.MaxTokens
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = defaults.Chat.HistoryWindow
	}
	if c.Chat.Greeting == "" {
		c.Chat.Greeting = defaults.Chat.Greeting
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = defaults.Chat.SystemPrompt
	}
	if c.Chat.TitlePrefix == "" {
		c.Chat.TitlePrefix = defaults.Chat.TitlePrefix
	}
	if c.Host.BaseURL == "" {
		c.Host.BaseURL = defaults.Host.BaseURL
	}
	if c.Panel.Theme == "" {
		c.Panel.Theme = defaults.Panel.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions
// (the file holds the API key).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# dockchat configuration file")
	fmt.Fprintln(file, "# Generated by dockchat - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// KEY-VALUE STORE ROUND-TRIP
// =============================================================================

// LoadSettings reads the API settings blob from the host key-value store.
// A missing blob returns the given fallback unchanged.
func LoadSettings(store kv.Store, fallback Settings) (Settings, error) {
	data, ok, err := store.Get(SettingsKey)
	if err != nil {
		return fallback, fmt.Errorf("failed to load settings: %w", err)
	}
	if !ok {
		return fallback, nil
	}

	settings := fallback
	if err := json.Unmarshal(data, &settings); err != nil {
		return fallback, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the API settings blob to the host key-value store.
func SaveSettings(store kv.Store, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := store.Set(SettingsKey, data); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.APIURL != "" {
		if u, err := url.Parse(c.API.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.api_url",
				Message: fmt.Sprintf("invalid URL %q", c.API.APIURL),
			})
		}
	}
	if c.API.Temperature < 0 || c.API.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "api.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %v", c.API.Temperature),
		})
	}
	if c.API.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "api.max_tokens",
			Message: fmt.Sprintf("must be positive, got %d", c.API.MaxTokens),
		})
	}
	if c.Chat.HistoryWindow < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_window",
			Message: fmt.Sprintf("must be positive, got %d", c.Chat.HistoryWindow),
		})
	}
	if c.Host.BaseURL != "" {
		if u, err := url.Parse(c.Host.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "host.base_url",
				Message: fmt.Sprintf("invalid URL %q", c.Host.BaseURL),
			})
		}
	}
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.Panel.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "panel.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.Panel.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DOCKCHAT_API_URL: overrides api.api_url
//   - DOCKCHAT_API_KEY: overrides api.api_key
//   - DOCKCHAT_MODEL: overrides api.model
//   - DOCKCHAT_HOST_URL: overrides host.base_url
//   - DOCKCHAT_HOST_TOKEN: overrides host.token
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCKCHAT_API_URL"); v != "" {
		c.API.APIURL = v
	}
	if v := os.Getenv("DOCKCHAT_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("DOCKCHAT_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("DOCKCHAT_HOST_URL"); v != "" {
		c.Host.BaseURL = v
	}
	if v := os.Getenv("DOCKCHAT_HOST_TOKEN"); v != "" {
		c.Host.Token = v
	}
}

// =============================================================================
// STRING REPRESENTATION
// =============================================================================

// String returns a string representation of the config for debugging,
// with the API key redacted.
func (c *Config) String() string {
	safe := *c
	if safe.API.APIKey != "" {
		safe.API.APIKey = "[REDACTED, length=" + util.IntToString(len(c.API.APIKey)) + "]"
	}
	data, _ := json.MarshalIndent(&safe, "", "  ")
	return string(data)
}
