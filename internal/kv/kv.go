// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv models the host's generic key-value persistence primitive.
package kv

import (
	"errors"
	"sync"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the opaque get/set API the host exposes for plugin state.
//
// Get returns the stored blob and whether the key exists; a missing key is
// not an error. Set and Delete are synchronous: when they return nil the
// data is durable as far as the backend can guarantee.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("kv: empty key")

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemStore is an in-memory Store for tests and ephemeral panel instances.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSet, when set, is returned by every Set call. Tests use it to
	// exercise persist-failure paths.
	FailSet error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Get returns the blob stored under key.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

// Set stores a copy of value under key.
func (s *MemStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSet != nil {
		return s.FailSet
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

// Delete removes key; deleting a missing key is a no-op.
func (s *MemStore) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
