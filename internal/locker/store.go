// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"context"
	"sync"
)

// ContentID identifies a gated resource. It is opaque to the workflow and
// must be stable for the lifetime of the resource.
type ContentID string

// StorageKey returns the durable key under which an unlock record is kept.
func StorageKey(id ContentID) string {
	return "unlocked_" + string(id)
}

// UnlockStore persists unlock decisions. Only the unlocked state is ever
// written; absence of a record means "not unlocked". Implementations must
// make MarkUnlocked idempotent. Callers treat a read failure as "not
// unlocked" and a write failure as non-fatal.
type UnlockStore interface {
	// IsUnlocked reports whether the content id has been unlocked.
	IsUnlocked(ctx context.Context, id ContentID) (bool, error)

	// MarkUnlocked records that the content id's gate has been passed.
	// Calling it again for the same id is a no-op.
	MarkUnlocked(ctx context.Context, id ContentID) error
}

// MemoryUnlockStore is an in-memory UnlockStore for testing and for hosts
// that opt out of durability.
type MemoryUnlockStore struct {
	mu       sync.RWMutex
	unlocked map[ContentID]bool
}

// NewMemoryUnlockStore creates a new in-memory unlock store.
func NewMemoryUnlockStore() *MemoryUnlockStore {
	return &MemoryUnlockStore{
		unlocked: make(map[ContentID]bool),
	}
}

// IsUnlocked reports whether the content id has been unlocked.
func (s *MemoryUnlockStore) IsUnlocked(_ context.Context, id ContentID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked[id], nil
}

// MarkUnlocked records the unlock. Repeated calls leave the store unchanged.
func (s *MemoryUnlockStore) MarkUnlocked(_ context.Context, id ContentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[id] = true
	return nil
}
