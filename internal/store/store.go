// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package store

import (
	"context"

	"github.com/gatelock/gatelock/internal/locker"
)

// Inspector lists and deletes unlock records. This is operator tooling; the
// unlock workflow itself only ever reads a key or writes the unlocked flag
// and never deletes.
type Inspector interface {
	Records(ctx context.Context) ([]UnlockRecord, error)
	Delete(ctx context.Context, id locker.ContentID) error
}

var (
	_ locker.UnlockStore = (*SQLiteStore)(nil)
	_ locker.UnlockStore = (*RedisStore)(nil)
	_ locker.UnlockStore = (*PostgresStore)(nil)
	_ locker.UnlockStore = (*RetryingStore)(nil)
	_ Inspector          = (*SQLiteStore)(nil)
	_ Inspector          = (*RedisStore)(nil)
	_ Inspector          = (*PostgresStore)(nil)
)
