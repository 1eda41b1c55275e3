// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatelock/gatelock/internal/locker"
)

// RedisStore is an UnlockStore backed by Redis, for deployments where many
// kiosk profiles share one unlock namespace.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. If prefix is empty,
// "gatelock:" is used.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gatelock:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL creates a Redis store from a connection URL such as
// "redis://localhost:6379/0".
func NewRedisStoreFromURL(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("url", url).Wrap(err)
	}
	return NewRedisStore(redis.NewClient(opts), prefix), nil
}

// IsUnlocked reports whether an unlock record exists for the content id.
func (s *RedisStore) IsUnlocked(ctx context.Context, id locker.ContentID) (bool, error) {
	val, err := s.client.Get(ctx, s.prefix+locker.StorageKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("STORE_READ_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return val == "true", nil
}

// MarkUnlocked records the unlock without expiry. Overwriting an existing
// record writes the same value, so repeated calls are harmless.
func (s *RedisStore) MarkUnlocked(ctx context.Context, id locker.ContentID) error {
	if err := s.client.Set(ctx, s.prefix+locker.StorageKey(id), "true", 0).Err(); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Records returns every persisted unlock key in the store's namespace.
// Redis keeps no unlock timestamp, so UnlockedAt is zero.
func (s *RedisStore) Records(ctx context.Context) ([]UnlockRecord, error) {
	var records []UnlockRecord
	iter := s.client.Scan(ctx, 0, s.prefix+"unlocked_*", 0).Iterator()
	for iter.Next(ctx) {
		records = append(records, UnlockRecord{
			Key: iter.Val()[len(s.prefix):],
		})
	}
	if err := iter.Err(); err != nil {
		return nil, oops.Code("STORE_READ_FAILED").Wrap(err)
	}
	return records, nil
}

// Delete removes an unlock record. Operator tooling only.
func (s *RedisStore) Delete(ctx context.Context, id locker.ContentID) error {
	if err := s.client.Del(ctx, s.prefix+locker.StorageKey(id)).Err(); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("content_id", string(id)).Wrap(err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	//nolint:wrapcheck // direct passthrough on shutdown
	return s.client.Close()
}
