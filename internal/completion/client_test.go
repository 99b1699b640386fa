// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/dockchat/internal/config"
)

func staticSettings(s config.Settings) SettingsSource {
	return SettingsFunc(func() config.Settings { return s })
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(staticSettings(config.Settings{
		APIURL:      server.URL,
		APIKey:      "test-key",
		Model:       "deepseek-chat",
		Temperature: 0.7,
		MaxTokens:   2000,
	}))

	got, err := client.Complete(context.Background(), []Turn{UserTurn("hi")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello there" {
		t.Errorf("Complete() = %q, want %q", got, "hello there")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotReq.Model != "deepseek-chat" {
		t.Errorf("request model = %q, want %q", gotReq.Model, "deepseek-chat")
	}
	if gotReq.MaxTokens != 2000 {
		t.Errorf("request max_tokens = %d, want 2000", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hi" {
		t.Errorf("request messages = %+v, want single user turn", gotReq.Messages)
	}
}

func TestCompleteAppliesDefaults(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if _, err := w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(staticSettings(config.Settings{
		APIURL: server.URL,
		APIKey: "k",
	}))

	if _, err := client.Complete(context.Background(), []Turn{UserTurn("hi")}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotReq.Model != DefaultModel {
		t.Errorf("default model = %q, want %q", gotReq.Model, DefaultModel)
	}
	if gotReq.Temperature != DefaultTemperature {
		t.Errorf("default temperature = %v, want %v", gotReq.Temperature, DefaultTemperature)
	}
	if gotReq.MaxTokens != DefaultMaxTokens {
		t.Errorf("default max_tokens = %d, want %d", gotReq.MaxTokens, DefaultMaxTokens)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		if _, err := w.Write([]byte(`{"error":"invalid key"}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(staticSettings(config.Settings{APIURL: server.URL, APIKey: "bad"}))

	_, err := client.Complete(context.Background(), []Turn{UserTurn("hi")})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Complete() error = %v, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusUnauthorized {
		t.Errorf("HTTPError.Status = %d, want %d", httpErr.Status, http.StatusUnauthorized)
	}
	if httpErr.Body != `{"error":"invalid key"}` {
		t.Errorf("HTTPError.Body = %q, want raw error body", httpErr.Body)
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty_choices", `{"choices":[]}`},
		{"missing_choices", `{"id":"x"}`},
		{"invalid_json", `not json at all`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient(staticSettings(config.Settings{APIURL: server.URL, APIKey: "k"}))
			_, err := client.Complete(context.Background(), []Turn{UserTurn("hi")})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Complete() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	tests := []struct {
		name     string
		settings config.Settings
	}{
		{"missing_key", config.Settings{APIURL: server.URL}},
		{"missing_url", config.Settings{APIKey: "k"}},
		{"whitespace_key", config.Settings{APIURL: server.URL, APIKey: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(staticSettings(tt.settings))
			_, err := client.Complete(context.Background(), []Turn{UserTurn("hi")})
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Complete() error = %v, want ErrNotConfigured", err)
			}
		})
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestCompleteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(staticSettings(config.Settings{APIURL: url, APIKey: "k"}))
	_, err := client.Complete(context.Background(), []Turn{UserTurn("hi")})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Complete() error = %v, want *RequestError", err)
	}
	if reqErr.Unwrap() == nil {
		t.Error("RequestError.Unwrap() = nil, want transport error")
	}
}

func TestIsConfigured(t *testing.T) {
	configured := NewClient(staticSettings(config.Settings{APIURL: "https://api.example.com/v1/chat", APIKey: "k"}))
	if !configured.IsConfigured() {
		t.Error("IsConfigured() = false with url and key set")
	}

	missing := NewClient(staticSettings(config.Settings{APIURL: "https://api.example.com/v1/chat"}))
	if missing.IsConfigured() {
		t.Error("IsConfigured() = true with empty key")
	}
}

func TestSettingsResolvedPerCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	current := config.Settings{}
	client := NewClient(SettingsFunc(func() config.Settings { return current }))

	if _, err := client.Complete(context.Background(), []Turn{UserTurn("hi")}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Complete() before configuration: error = %v, want ErrNotConfigured", err)
	}

	current = config.Settings{APIURL: server.URL, APIKey: "k"}
	if _, err := client.Complete(context.Background(), []Turn{UserTurn("hi")}); err != nil {
		t.Fatalf("Complete() after configuration: error = %v", err)
	}
}
