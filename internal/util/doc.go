// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for dockchat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writes (temp file + fsync + rename)
//   - TruncateRunes / TruncateWidth: Unicode-safe string truncation
//   - IntToString / Int64ToString: allocation-light number formatting
package util
