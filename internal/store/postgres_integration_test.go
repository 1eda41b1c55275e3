// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatelock/gatelock/internal/locker"
)

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	id := locker.ContentID("itest-" + ulid.Make().String())

	unlocked, err := s.IsUnlocked(ctx, id)
	require.NoError(t, err)
	assert.False(t, unlocked)

	require.NoError(t, s.MarkUnlocked(ctx, id))
	require.NoError(t, s.MarkUnlocked(ctx, id), "repeat insert must be a no-op")

	unlocked, err = s.IsUnlocked(ctx, id)
	require.NoError(t, err)
	assert.True(t, unlocked)

	records, err := s.Records(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, records)

	require.NoError(t, s.Delete(ctx, id))
	unlocked, err = s.IsUnlocked(ctx, id)
	require.NoError(t, err)
	assert.False(t, unlocked)
}
