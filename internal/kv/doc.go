// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv models the host's generic key-value persistence primitive.
//
// The session archive and settings treat persistence as an opaque get/set
// API; this package provides the interface and three backends.
//
// # Key Types
//
//   - Store: the opaque get/set contract
//   - FileStore: one JSON blob per key, written atomically
//   - SQLiteStore: single-table store backed by modernc.org/sqlite
//   - MemStore: map-backed store for tests and ephemeral panels
//
// # Usage
//
//	store, err := kv.OpenSQLite(filepath.Join(dir, "dockchat.db"))
//	err = store.Set("conversations", blob)
//	blob, ok, err := store.Get("conversations")
package kv
