// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package store

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/gatelock/gatelock/internal/locker"
)

// RetryingStore decorates an UnlockStore with a short backoff for transient
// storage failures. It changes nothing about the fail-safe contract: once
// the backoff is exhausted the error still surfaces and the session treats
// a failed read as "not unlocked" and a failed write as non-fatal.
type RetryingStore struct {
	inner   locker.UnlockStore
	retries uint64
	base    time.Duration
}

// NewRetryingStore wraps inner with up to 2 extra attempts on a fibonacci
// backoff starting at 50ms.
func NewRetryingStore(inner locker.UnlockStore) *RetryingStore {
	return &RetryingStore{inner: inner, retries: 2, base: 50 * time.Millisecond}
}

func (s *RetryingStore) backoff() retry.Backoff {
	return retry.WithMaxRetries(s.retries, retry.NewFibonacci(s.base))
}

// IsUnlocked retries the read on any error.
func (s *RetryingStore) IsUnlocked(ctx context.Context, id locker.ContentID) (bool, error) {
	var unlocked bool
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		unlocked, err = s.inner.IsUnlocked(ctx, id)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return unlocked, nil
}

// MarkUnlocked retries the write on any error. Safe because the underlying
// write is idempotent.
func (s *RetryingStore) MarkUnlocked(ctx context.Context, id locker.ContentID) error {
	//nolint:wrapcheck // the inner store already attaches error context
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		if err := s.inner.MarkUnlocked(ctx, id); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
