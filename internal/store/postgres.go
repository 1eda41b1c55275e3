// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/gatelock/gatelock/internal/locker"
)

// postgresSchema creates the unlock table, mirroring the sqlite layout.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS unlocks (
	key         TEXT PRIMARY KEY,
	unlocked_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is an UnlockStore backed by PostgreSQL, for deployments
// where unlock records are shared across hosts instead of kept per device.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at dsn and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").Wrap(err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, oops.Code("STORE_MIGRATE_FAILED").Wrap(err)
	}

	return &PostgresStore{pool: pool}, nil
}

// IsUnlocked reports whether an unlock record exists for the content id.
func (s *PostgresStore) IsUnlocked(ctx context.Context, id locker.ContentID) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM unlocks WHERE key = $1`, locker.StorageKey(id),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("STORE_READ_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return true, nil
}

// MarkUnlocked inserts the unlock record. Conflicting inserts are no-ops, so
// repeated completion signals stay harmless.
func (s *PostgresStore) MarkUnlocked(ctx context.Context, id locker.ContentID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO unlocks (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`,
		locker.StorageKey(id),
	)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Records returns every persisted unlock, oldest first.
func (s *PostgresStore) Records(ctx context.Context) ([]UnlockRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, unlocked_at FROM unlocks ORDER BY unlocked_at, key`)
	if err != nil {
		return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
	}
	defer rows.Close()

	var records []UnlockRecord
	for rows.Next() {
		var key string
		var unlockedAt time.Time
		if err := rows.Scan(&key, &unlockedAt); err != nil {
			return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
		}
		records = append(records, UnlockRecord{Key: key, UnlockedAt: unlockedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
	}
	return records, nil
}

// Delete removes an unlock record.
func (s *PostgresStore) Delete(ctx context.Context, id locker.ContentID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM unlocks WHERE key = $1`, locker.StorageKey(id))
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
