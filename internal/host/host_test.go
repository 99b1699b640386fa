// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExportMarkdown(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if _, err := w.Write([]byte(`{"code":0,"msg":"","data":{"hPath":"/notes/today","content":"# Today\n\nsome notes"}}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewExportClient(server.URL, "")
	got, err := client.ExportMarkdown(context.Background(), "20240115103000-abcdefg")
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}
	if got != "# Today\n\nsome notes" {
		t.Errorf("ExportMarkdown() = %q, want document content", got)
	}
	if gotPath != ExportPath {
		t.Errorf("request path = %q, want %q", gotPath, ExportPath)
	}
	if gotBody["id"] != "20240115103000-abcdefg" {
		t.Errorf("request id = %q, want document id", gotBody["id"])
	}
}

func TestExportMarkdownSendsToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if _, err := w.Write([]byte(`{"code":0,"msg":"","data":{"content":"x"}}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewExportClient(server.URL, "secret")
	if _, err := client.ExportMarkdown(context.Background(), "doc"); err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}
	if gotAuth != "Token secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Token secret")
	}
}

func TestExportMarkdownFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
	}{
		{"http_error", http.StatusInternalServerError, "boom"},
		{"nonzero_code", http.StatusOK, `{"code":-1,"msg":"document not found","data":null}`},
		{"invalid_json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewExportClient(server.URL, "")
			_, err := client.ExportMarkdown(context.Background(), "doc")
			var fetchErr *ContextFetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("ExportMarkdown() error = %v, want *ContextFetchError", err)
			}
			if fetchErr.DocID != "doc" {
				t.Errorf("ContextFetchError.DocID = %q, want %q", fetchErr.DocID, "doc")
			}
		})
	}
}

func TestExportMarkdownEmptyID(t *testing.T) {
	client := NewExportClient("http://127.0.0.1:1", "")
	_, err := client.ExportMarkdown(context.Background(), "")
	var fetchErr *ContextFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("ExportMarkdown() error = %v, want *ContextFetchError", err)
	}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantOK  bool
	}{
		{
			name:    "full_nesting",
			payload: `{"detail":{"protyle":{"block":{"rootID":"20240101120000-aaaaaaa"}}}}`,
			want:    "20240101120000-aaaaaaa",
			wantOK:  true,
		},
		{
			name:    "protyle_level",
			payload: `{"protyle":{"block":{"rootID":"20240101120000-bbbbbbb"}}}`,
			want:    "20240101120000-bbbbbbb",
			wantOK:  true,
		},
		{
			name:    "block_level",
			payload: `{"block":{"rootID":"20240101120000-ccccccc"}}`,
			want:    "20240101120000-ccccccc",
			wantOK:  true,
		},
		{
			name:    "top_level",
			payload: `{"rootID":"20240101120000-ddddddd"}`,
			want:    "20240101120000-ddddddd",
			wantOK:  true,
		},
		{
			name:    "prefers_most_nested",
			payload: `{"rootID":"outer","detail":{"protyle":{"block":{"rootID":"inner"}}}}`,
			want:    "inner",
			wantOK:  true,
		},
		{
			name:    "missing",
			payload: `{"detail":{"protyle":{}}}`,
			wantOK:  false,
		},
		{
			name:    "empty_string",
			payload: `{"rootID":""}`,
			wantOK:  false,
		},
		{
			name:    "wrong_type",
			payload: `{"rootID":42}`,
			wantOK:  false,
		},
		{
			name:    "not_json",
			payload: `garbage`,
			wantOK:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDocumentID([]byte(tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("ExtractDocumentID() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractDocumentID() = %q, want %q", got, tt.want)
			}
		})
	}
}
