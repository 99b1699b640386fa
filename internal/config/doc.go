// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for dockchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. The completion API
// settings can additionally round-trip through the host's key-value store,
// matching how the host persists plugin settings.
//
// Configuration file locations (in order of precedence):
//   - ~/.dockchat/config.toml
//   - ~/.dockchat/config.json
//   - Built-in defaults
package config
