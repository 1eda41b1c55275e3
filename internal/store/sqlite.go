// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

// Package store provides durable UnlockStore backends.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/gatelock/gatelock/internal/locker"
)

// unlockSchema creates the unlock table. The workflow only ever reads the
// presence of a key; unlocked_at exists for operators inspecting the store
// and is not part of the core contract.
const unlockSchema = `
CREATE TABLE IF NOT EXISTS unlocks (
	key         TEXT PRIMARY KEY,
	unlocked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// UnlockRecord is one persisted unlock, as reported by Records.
type UnlockRecord struct {
	Key        string
	UnlockedAt time.Time
}

// SQLiteStore is an UnlockStore backed by a local sqlite database, the
// durable client-side storage for unlock decisions.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the unlock database at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	if _, err := db.ExecContext(ctx, unlockSchema); err != nil {
		db.Close()
		return nil, oops.Code("STORE_MIGRATE_FAILED").With("path", path).Wrap(err)
	}

	return &SQLiteStore{db: db}, nil
}

// IsUnlocked reports whether an unlock record exists for the content id.
func (s *SQLiteStore) IsUnlocked(ctx context.Context, id locker.ContentID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM unlocks WHERE key = ?`, locker.StorageKey(id),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("STORE_READ_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return true, nil
}

// MarkUnlocked inserts the unlock record. Inserting an existing key is a
// no-op, which makes repeated completion signals harmless.
func (s *SQLiteStore) MarkUnlocked(ctx context.Context, id locker.ContentID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO unlocks (key) VALUES (?)`, locker.StorageKey(id),
	)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Records returns every persisted unlock, oldest first. Operator tooling
// only; the workflow itself never lists or deletes records.
func (s *SQLiteStore) Records(ctx context.Context) ([]UnlockRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, unlocked_at FROM unlocks ORDER BY unlocked_at, key`)
	if err != nil {
		return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
	}
	defer rows.Close()

	var records []UnlockRecord
	for rows.Next() {
		var r UnlockRecord
		if err := rows.Scan(&r.Key, &r.UnlockedAt); err != nil {
			return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
	}
	return records, nil
}

// Delete removes an unlock record. Operator tooling only.
func (s *SQLiteStore) Delete(ctx context.Context, id locker.ContentID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM unlocks WHERE key = ?`, locker.StorageKey(id))
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	//nolint:wrapcheck // direct passthrough on shutdown
	return s.db.Close()
}
