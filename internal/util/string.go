// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strconv"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// STRING TRUNCATION
// =============================================================================

// TruncateRunes truncates a string to maxRunes, appending "..." when content
// was cut. Rune-based so multi-byte text (CJK, emoji) is never split.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateWidth truncates a string to a display-cell width, appending an
// ellipsis. Wide runes (CJK) count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// StringWidth returns the display-cell width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// =============================================================================
// NUMBER FORMATTING
// =============================================================================

// IntToString converts an int to its decimal representation.
func IntToString(i int) string {
	return strconv.Itoa(i)
}

// Int64ToString converts an int64 to its decimal representation.
func Int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}
