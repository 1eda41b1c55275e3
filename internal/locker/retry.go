// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

// MaxRetries is the default embed reload budget per session.
const MaxRetries = 3

// RetryState tracks how many embed load attempts a session has burned.
// It is constructed fresh at session open and passed by value through
// transitions; exhausting it is irreversible for that session.
type RetryState struct {
	Attempt int
	Max     int
}

// NewRetryState returns a zeroed retry budget with the given maximum.
// A max of zero or less falls back to MaxRetries.
func NewRetryState(max int) RetryState {
	if max <= 0 {
		max = MaxRetries
	}
	return RetryState{Max: max}
}

// NextAttempt returns the state with one more attempt consumed.
func NextAttempt(s RetryState) RetryState {
	s.Attempt++
	return s
}

// CanRetry reports whether the budget allows another embed load.
func CanRetry(s RetryState) bool {
	return s.Attempt < s.Max
}

// Remaining returns how many attempts are left, never negative.
func (s RetryState) Remaining() int {
	if s.Attempt >= s.Max {
		return 0
	}
	return s.Max - s.Attempt
}
