// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/dockchat/internal/kv"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.Model != "deepseek-chat" {
		t.Errorf("Model = %q, want %q", cfg.API.Model, "deepseek-chat")
	}
	if cfg.API.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.API.Temperature)
	}
	if cfg.API.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", cfg.API.MaxTokens)
	}
	if cfg.Chat.HistoryWindow != 20 {
		t.Errorf("HistoryWindow = %d, want 20", cfg.Chat.HistoryWindow)
	}
	if cfg.API.APIKey != "" || cfg.API.APIURL != "" {
		t.Error("Defaults must not invent credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
api_url = "https://api.example.com/v1/chat/completions"
api_key = "sk-test"
model = "deepseek-chat"

[chat]
history_window = 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.API.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", cfg.API.APIKey, "sk-test")
	}
	if cfg.Chat.HistoryWindow != 10 {
		t.Errorf("HistoryWindow = %d, want 10", cfg.Chat.HistoryWindow)
	}
	// Missing fields get defaults
	if cfg.API.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default 0.7", cfg.API.Temperature)
	}
	if cfg.Chat.Greeting == "" {
		t.Error("Greeting should default to non-empty")
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"api":{"apiUrl":"https://api.example.com/v1","apiKey":"sk-json","maxTokens":512}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.APIKey != "sk-json" {
		t.Errorf("APIKey = %q, want %q", cfg.API.APIKey, "sk-json")
	}
	if cfg.API.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", cfg.API.MaxTokens)
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Permissions = %o, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.API.Temperature = 3.0
	cfg.Chat.HistoryWindow = -1
	cfg.Panel.Theme = "neon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	msg := err.Error()
	for _, field := range []string{"api.temperature", "chat.history_window", "panel.theme"} {
		if !strings.Contains(msg, field) {
			t.Errorf("Validation error should mention %q, got %q", field, msg)
		}
	}
}

func TestValidate_BadURL(t *testing.T) {
	cfg := Default()
	cfg.API.APIURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for malformed api_url")
	}
}

// =============================================================================
// ENV OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DOCKCHAT_API_KEY", "sk-env")
	t.Setenv("DOCKCHAT_MODEL", "deepseek-reasoner")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want %q", cfg.API.APIKey, "sk-env")
	}
	if cfg.API.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q, want %q", cfg.API.Model, "deepseek-reasoner")
	}
}

// =============================================================================
// KEY-VALUE ROUND-TRIP TESTS
// =============================================================================

func TestSettings_KVRoundTrip(t *testing.T) {
	store := kv.NewMemStore()
	in := Settings{
		APIURL:      "https://api.deepseek.com/chat/completions",
		APIKey:      "sk-abc",
		Model:       "deepseek-chat",
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	if err := SaveSettings(store, in); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	out, err := LoadSettings(store, Default().API)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if out != in {
		t.Errorf("Round-trip mismatch: got %+v, want %+v", out, in)
	}

	// Blob uses the host's field names
	data, _, _ := store.Get(SettingsKey)
	for _, field := range []string{`"apiUrl"`, `"apiKey"`, `"maxTokens"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Settings blob missing field %s: %s", field, data)
		}
	}
}

func TestLoadSettings_MissingReturnsFallback(t *testing.T) {
	fallback := Default().API
	out, err := LoadSettings(kv.NewMemStore(), fallback)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if out != fallback {
		t.Errorf("Missing blob should return fallback, got %+v", out)
	}
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.APIURL = "https://api.example.com/v1/chat/completions"
	cfg.API.APIKey = "sk-save"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.APIKey != "sk-save" {
		t.Errorf("APIKey = %q, want %q", loaded.API.APIKey, "sk-save")
	}
}

// =============================================================================
// REDACTION TESTS
// =============================================================================

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.API.APIKey = "sk-secret-value"

	s := cfg.String()
	if strings.Contains(s, "sk-secret-value") {
		t.Error("String() must not expose the API key")
	}
	if !strings.Contains(s, "REDACTED") {
		t.Error("String() should mark the key as redacted")
	}
}
