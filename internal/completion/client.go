// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/dockchat/internal/config"
)

// Configuration constants for the chat-completion API.
const (
	// DefaultModel is used when settings carry no model name.
	DefaultModel = "deepseek-chat"

	// DefaultTemperature is used when settings carry no temperature.
	DefaultTemperature = 0.7

	// DefaultMaxTokens is used when settings carry no token cap.
	DefaultMaxTokens = 2000

	// MaxResponseSize caps the response body to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// sharedHTTPClient pools connections across requests. It deliberately has
// no Timeout: request lifetime is controlled by the caller's context, and
// the upstream contract accepts that a never-resolving transport leaves the
// call pending.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates apiUrl or apiKey is empty. It is returned
	// before any network I/O is attempted.
	ErrNotConfigured = errors.New("api url and api key must be configured")

	// ErrMalformedResponse indicates a 2xx response whose body is missing a
	// non-empty choices array.
	ErrMalformedResponse = errors.New("response is missing choices")
)

// HTTPError is a non-2xx response. The status code and raw body are
// retained so the controller can surface them verbatim.
type HTTPError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// RequestError wraps a transport failure: the request never completed.
type RequestError struct {
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request could not be completed: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Turn is one element of the request payload. Field names are fixed by the
// external API contract.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserTurn creates a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: "user", Content: content}
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: "assistant", Content: content}
}

// SystemTurn creates a system turn.
func SystemTurn(content string) Turn {
	return Turn{Role: "system", Content: content}
}

// chatRequest is the request body. Field names are fixed by the external
// API contract and must not be renamed.
type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// chatResponse is the response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// =============================================================================
// CLIENT
// =============================================================================

// SettingsSource supplies the API settings for each request. Settings are
// resolved per call so edits in the host's settings dialog apply to the
// next turn without rebuilding the client.
type SettingsSource interface {
	ChatSettings() config.Settings
}

// SettingsFunc adapts a function to the SettingsSource interface.
type SettingsFunc func() config.Settings

// ChatSettings implements SettingsSource.
func (f SettingsFunc) ChatSettings() config.Settings {
	return f()
}

// Client sends chat-completion requests. One request per Complete call;
// failures are surfaced as distinct error kinds, never retried.
type Client struct {
	source     SettingsSource
	httpClient *http.Client
}

// NewClient creates a chat-completion client reading settings from source.
func NewClient(source SettingsSource) *Client {
	return &Client{
		source:     source,
		httpClient: sharedHTTPClient,
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// IsConfigured reports whether the current settings can produce a request.
func (c *Client) IsConfigured() bool {
	s := c.source.ChatSettings()
	return strings.TrimSpace(s.APIURL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// Complete sends one chat-completion request and returns the assistant
// content of the first choice.
//
// The precondition check happens before any network call: with missing
// credentials no request is issued at all.
func (c *Client) Complete(ctx context.Context, turns []Turn) (string, error) {
	settings := c.source.ChatSettings()
	apiURL := strings.TrimSpace(settings.APIURL)
	apiKey := strings.TrimSpace(settings.APIKey)
	if apiURL == "" || apiKey == "" {
		return "", ErrNotConfigured
	}

	reqBody := chatRequest{
		Model:       settings.Model,
		Messages:    turns,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	if reqBody.Model == "" {
		reqBody.Model = DefaultModel
	}
	if reqBody.Temperature == 0 {
		reqBody.Temperature = DefaultTemperature
	}
	if reqBody.MaxTokens == 0 {
		reqBody.MaxTokens = DefaultMaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrMalformedResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}
