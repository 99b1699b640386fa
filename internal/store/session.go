// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/dockchat/internal/model"
)

// Session holds the message list of the active conversation. Mutations go
// through Append, ReplaceAll and Reset; every mutation notifies subscribers
// with a snapshot of the full list.
//
// A session is either live or archived. Live sessions started from a
// greeting seed are auto-saved when the user starts a new conversation;
// archived sessions were loaded from the archive and are never auto-saved
// again, so switching away from one cannot create a duplicate entry.
type Session struct {
	mu          sync.RWMutex
	messages    []model.Message
	archived    bool
	archivedID  string
	subscribers map[int]func([]model.Message)
	nextSubID   int
}

// NewSession creates a live session seeded with the given messages,
// typically a system prompt and an assistant greeting.
func NewSession(seed ...model.Message) *Session {
	s := &Session{
		subscribers: make(map[int]func([]model.Message)),
	}
	s.messages = append(s.messages, seed...)
	return s
}

// Current returns a snapshot of the message list. The returned slice is a
// copy; callers may hold it across later mutations.
func (s *Session) Current() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.messages)
}

// Len returns the number of messages currently held.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Append adds one message to the end of the list and notifies subscribers.
func (s *Session) Append(msg model.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snap := snapshot(s.messages)
	subs := s.subscriberList()
	s.mu.Unlock()

	notify(subs, snap)
}

// ReplaceAll swaps the whole message list and notifies subscribers. The
// input slice is copied.
func (s *Session) ReplaceAll(msgs []model.Message) {
	s.mu.Lock()
	s.messages = snapshot(msgs)
	snap := snapshot(s.messages)
	subs := s.subscriberList()
	s.mu.Unlock()

	notify(subs, snap)
}

// Reset discards the current messages, installs a fresh seed and marks the
// session live again.
func (s *Session) Reset(seed ...model.Message) {
	s.mu.Lock()
	s.messages = snapshot(seed)
	s.archived = false
	s.archivedID = ""
	snap := snapshot(s.messages)
	subs := s.subscriberList()
	s.mu.Unlock()

	notify(subs, snap)
}

// MarkArchived records that the current messages came from the archived
// conversation id. Archived sessions are excluded from auto-save.
func (s *Session) MarkArchived(id string) {
	s.mu.Lock()
	s.archived = true
	s.archivedID = id
	s.mu.Unlock()
}

// Archived reports whether the session was loaded from the archive, and if
// so which conversation it came from.
func (s *Session) Archived() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archivedID, s.archived
}

// Subscribe registers a callback invoked with a snapshot after every
// mutation. The returned function removes the subscription.
func (s *Session) Subscribe(fn func([]model.Message)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// subscriberList must be called with the lock held.
func (s *Session) subscriberList() []func([]model.Message) {
	subs := make([]func([]model.Message), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// notify runs callbacks outside the session lock so a subscriber may call
// back into the session without deadlocking.
func notify(subs []func([]model.Message), snap []model.Message) {
	for _, fn := range subs {
		fn(snap)
	}
}

func snapshot(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}
