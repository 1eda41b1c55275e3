// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatelock/gatelock/internal/locker"
)

// glitchStore fails its first failures calls to each method, then succeeds.
type glitchStore struct {
	mu       sync.Mutex
	failures int
	reads    int
	writes   int
	unlocked map[locker.ContentID]bool
}

func newGlitchStore(failures int) *glitchStore {
	return &glitchStore{failures: failures, unlocked: map[locker.ContentID]bool{}}
}

func (s *glitchStore) IsUnlocked(_ context.Context, id locker.ContentID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.reads <= s.failures {
		return false, errors.New("transient read failure")
	}
	return s.unlocked[id], nil
}

func (s *glitchStore) MarkUnlocked(_ context.Context, id locker.ContentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writes <= s.failures {
		return errors.New("transient write failure")
	}
	s.unlocked[id] = true
	return nil
}

func TestRetryingStore_RecoversFromTransientFailures(t *testing.T) {
	ctx := context.Background()
	inner := newGlitchStore(2)
	s := NewRetryingStore(inner)

	require.NoError(t, s.MarkUnlocked(ctx, "game-1"))
	assert.Equal(t, 3, inner.writes)

	unlocked, err := s.IsUnlocked(ctx, "game-1")
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.Equal(t, 3, inner.reads)
}

func TestRetryingStore_SurfacesPersistentFailures(t *testing.T) {
	ctx := context.Background()
	inner := newGlitchStore(100)
	s := NewRetryingStore(inner)

	_, err := s.IsUnlocked(ctx, "game-1")
	require.Error(t, err)
	assert.Equal(t, 3, inner.reads, "backoff allows 2 extra attempts")

	err = s.MarkUnlocked(ctx, "game-1")
	require.Error(t, err)
}

func TestRetryingStore_NoRetryOnSuccess(t *testing.T) {
	ctx := context.Background()
	inner := newGlitchStore(0)
	s := NewRetryingStore(inner)

	unlocked, err := s.IsUnlocked(ctx, "game-1")
	require.NoError(t, err)
	assert.False(t, unlocked)
	assert.Equal(t, 1, inner.reads)
}
