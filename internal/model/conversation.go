// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the archived unit: a titled, timestamped record of the
// user/assistant turns of a past session.
//
// Timestamp is creation time in Unix milliseconds; the archive presents
// conversations sorted by it, newest first. IDs are assigned at save time
// and never reused.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp int64     `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// NewConversation creates a conversation from already-filtered messages.
func NewConversation(id, title string, timestamp int64, messages []Message) Conversation {
	return Conversation{
		ID:        id,
		Title:     title,
		Timestamp: timestamp,
		Messages:  messages,
	}
}

// MessageCount returns the number of archived messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// Preview returns the first user message truncated for list display.
func (c Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			content := strings.ReplaceAll(msg.Content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			runes := []rune(content)
			if len(runes) > 50 {
				content = string(runes[:47]) + "..."
			}
			return content
		}
	}
	return ""
}

// =============================================================================
// MESSAGE FILTERING
// =============================================================================

// PersistableMessages returns the user/assistant turns of a session,
// dropping system-role scaffolding. The result preserves order.
func PersistableMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsPersistable() {
			out = append(out, msg)
		}
	}
	return out
}
