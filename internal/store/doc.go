// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds conversation state: the live message list of the
// active session and the persistent archive of past conversations.
//
// # Key Types
//
//   - Session: in-memory message list with change subscriptions and an
//     archived marker that controls auto-save eligibility
//   - Archive: persistent conversation list over a kv.Store, newest
//     first, with idempotent upsert and delete
//
// The archive persists before it mutates memory. Subscribers of either
// type receive snapshots, never the internal slices, and callbacks fire
// outside the store locks so they may call back in.
//
// # Usage
//
//	session := store.NewSession(model.NewAssistantMessage(greeting))
//	session.Subscribe(func(msgs []model.Message) { redraw(msgs) })
//	session.Append(model.NewUserMessage("hello"))
//
//	archive := store.NewArchive(kvStore)
//	conversations, err := archive.List()
package store
