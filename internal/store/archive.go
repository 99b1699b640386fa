// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jeranaias/dockchat/internal/kv"
	"github.com/jeranaias/dockchat/internal/model"
)

// ConversationsKey is the kv key holding the archived conversation list.
const ConversationsKey = "conversations"

// Archive is the persistent conversation history, a JSON array stored
// under one kv key. Mutations persist first and update memory only after
// the write succeeds, so a storage failure leaves the in-memory list and
// subscribers at the last durable state.
type Archive struct {
	mu            sync.Mutex
	store         kv.Store
	conversations []model.Conversation
	loaded        bool
	subscribers   map[int]func([]model.Conversation)
	nextSubID     int
}

// NewArchive creates an archive over the given kv store. The conversation
// list is loaded lazily on first access.
func NewArchive(store kv.Store) *Archive {
	return &Archive{
		store:       store,
		subscribers: make(map[int]func([]model.Conversation)),
	}
}

// List returns all archived conversations, newest first.
func (a *Archive) List() ([]model.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.loadLocked(); err != nil {
		return nil, err
	}
	return snapshotConversations(a.conversations), nil
}

// Get returns the archived conversation with the given id.
func (a *Archive) Get(id string) (model.Conversation, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.loadLocked(); err != nil {
		return model.Conversation{}, false, err
	}
	for _, conv := range a.conversations {
		if conv.ID == id {
			return conv, true, nil
		}
	}
	return model.Conversation{}, false, nil
}

// Save upserts a conversation: an entry with the same ID is replaced,
// otherwise the conversation is added. Saving the same conversation twice
// leaves one entry.
func (a *Archive) Save(conv model.Conversation) error {
	a.mu.Lock()
	if err := a.loadLocked(); err != nil {
		a.mu.Unlock()
		return err
	}

	next := snapshotConversations(a.conversations)
	replaced := false
	for i := range next {
		if next[i].ID == conv.ID {
			next[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, conv)
	}
	sortNewestFirst(next)

	subs, snap, err := a.commitLocked(next)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// DeleteByID removes the conversation with the given id. Deleting an
// absent id is a no-op.
func (a *Archive) DeleteByID(id string) error {
	a.mu.Lock()
	if err := a.loadLocked(); err != nil {
		a.mu.Unlock()
		return err
	}

	next := make([]model.Conversation, 0, len(a.conversations))
	found := false
	for _, conv := range a.conversations {
		if conv.ID == id {
			found = true
			continue
		}
		next = append(next, conv)
	}
	if !found {
		a.mu.Unlock()
		return nil
	}

	subs, snap, err := a.commitLocked(next)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// Subscribe registers a callback invoked with a snapshot after every
// successful mutation. The returned function removes the subscription.
func (a *Archive) Subscribe(fn func([]model.Conversation)) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

// loadLocked populates the cache from the kv store on first use. Must be
// called with the lock held.
func (a *Archive) loadLocked() error {
	if a.loaded {
		return nil
	}

	data, found, err := a.store.Get(ConversationsKey)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	if found {
		var conversations []model.Conversation
		if err := json.Unmarshal(data, &conversations); err != nil {
			return fmt.Errorf("failed to parse conversations: %w", err)
		}
		sortNewestFirst(conversations)
		a.conversations = conversations
	}
	a.loaded = true
	return nil
}

// commitLocked persists next and, only on success, installs it as the
// in-memory list. Must be called with the lock held; the returned
// callbacks run after the caller releases the lock, each with the
// returned snapshot.
func (a *Archive) commitLocked(next []model.Conversation) ([]func([]model.Conversation), []model.Conversation, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode conversations: %w", err)
	}
	if err := a.store.Set(ConversationsKey, data); err != nil {
		return nil, nil, fmt.Errorf("failed to persist conversations: %w", err)
	}

	a.conversations = next
	snap := snapshotConversations(next)
	subs := make([]func([]model.Conversation), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	return subs, snap, nil
}

func sortNewestFirst(conversations []model.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].Timestamp > conversations[j].Timestamp
	})
}

func snapshotConversations(conversations []model.Conversation) []model.Conversation {
	out := make([]model.Conversation, len(conversations))
	copy(out, conversations)
	return out
}
