// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the host API.
const (
	// ExportPath is the kernel endpoint returning a document as Markdown.
	ExportPath = "/api/export/exportMdContent"

	// DefaultBaseURL is the kernel address when none is configured.
	DefaultBaseURL = "http://127.0.0.1:6806"

	// maxExportSize caps the export response body.
	maxExportSize = 16 * 1024 * 1024 // 16MB

	// exportTimeout bounds a single export call. Unlike completion
	// requests, a slow export should not stall the whole turn.
	exportTimeout = 10 * time.Second
)

// ContextFetchError is any failure while fetching document context. The
// controller treats it as non-fatal: the turn proceeds without context.
type ContextFetchError struct {
	DocID string
	Err   error
}

// Error implements the error interface.
func (e *ContextFetchError) Error() string {
	return fmt.Sprintf("failed to fetch context for document %s: %v", e.DocID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ContextFetchError) Unwrap() error {
	return e.Err
}

// envelope is the kernel's standard response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// exportData is the payload of a successful export response.
type exportData struct {
	HPath   string `json:"hPath"`
	Content string `json:"content"`
}

// ExportClient fetches document Markdown from the host kernel.
//
// Calls are rate limited: rapid document switching in the host produces a
// burst of export requests and only the latest matters.
type ExportClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewExportClient creates a client for the kernel at baseURL. The token
// is optional; when set it is sent as the kernel API token.
func NewExportClient(baseURL, token string) *ExportClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ExportClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: exportTimeout},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func (c *ExportClient) WithHTTPClient(httpClient *http.Client) *ExportClient {
	c.httpClient = httpClient
	return c
}

// ExportMarkdown returns the Markdown content of the document docID.
// All failures are reported as *ContextFetchError.
func (c *ExportClient) ExportMarkdown(ctx context.Context, docID string) (string, error) {
	if docID == "" {
		return "", &ContextFetchError{DocID: docID, Err: fmt.Errorf("empty document id")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &ContextFetchError{DocID: docID, Err: err}
	}

	payload, err := json.Marshal(map[string]string{"id": docID})
	if err != nil {
		return "", &ContextFetchError{DocID: docID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExportPath, bytes.NewReader(payload))
	if err != nil {
		return "", &ContextFetchError{DocID: docID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ContextFetchError{DocID: docID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
	if err != nil {
		return "", &ContextFetchError{DocID: docID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ContextFetchError{DocID: docID, Err: fmt.Errorf("export returned status %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", &ContextFetchError{DocID: docID, Err: fmt.Errorf("invalid export response: %w", err)}
	}
	if env.Code != 0 {
		return "", &ContextFetchError{DocID: docID, Err: fmt.Errorf("export failed with code %d: %s", env.Code, env.Msg)}
	}

	var data exportData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", &ContextFetchError{DocID: docID, Err: fmt.Errorf("invalid export payload: %w", err)}
	}
	return data.Content, nil
}
