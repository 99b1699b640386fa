// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and
// archived conversations.
//
// # Key Types
//
//   - Message: a single chat turn with role, content, and rendered form
//   - Role: the sender of a message (system, user, assistant)
//   - Conversation: a titled, timestamped record of a past session
//
// # Usage
//
// Create messages and bundle them into a conversation for archiving:
//
//	msg := model.NewUserMessage("hello")
//	conv := model.NewConversation(id, title, model.PersistableMessages(msgs))
package model
