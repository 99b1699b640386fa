// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import "encoding/json"

// ExtractDocumentID pulls the open document's ID out of a switch-protyle
// event payload. The host has shipped the ID at several nesting depths
// across versions, so each known path is probed from most to least
// nested. Returns false when no path yields a non-empty string.
func ExtractDocumentID(payload []byte) (string, bool) {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return "", false
	}
	return extractDocumentID(root)
}

// ExtractDocumentIDFromMap is ExtractDocumentID for already-decoded
// payloads.
func ExtractDocumentIDFromMap(root map[string]any) (string, bool) {
	return extractDocumentID(root)
}

func extractDocumentID(root map[string]any) (string, bool) {
	paths := [][]string{
		{"detail", "protyle", "block", "rootID"},
		{"protyle", "block", "rootID"},
		{"block", "rootID"},
		{"rootID"},
	}
	for _, path := range paths {
		if id, ok := dig(root, path); ok {
			return id, true
		}
	}
	return "", false
}

// dig walks nested maps along path and returns the terminal value when it
// is a non-empty string.
func dig(node map[string]any, path []string) (string, bool) {
	current := any(node)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[key]
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
