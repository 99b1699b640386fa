// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/dockchat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one JSON blob per key under a base directory, mirroring
// how the host lays out plugin data on disk. Writes go through
// util.AtomicWriteFile so a crash never leaves a half-written blob.
type FileStore struct {
	// BaseDir is the directory holding one <key>.json file per key.
	BaseDir string
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// Get reads the blob stored under key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes the blob for key atomically.
func (s *FileStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.filePath(key), value, 0600); err != nil {
		return fmt.Errorf("failed to persist %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob for key; a missing key is a no-op.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

// validateKey rejects keys that would escape the base directory.
func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}
