// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the unlock workflow.
var (
	// sessionsOpened counts unlock sessions opened, by outcome of the
	// initial store lookup.
	sessionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelock_sessions_opened_total",
		Help: "Total number of unlock sessions opened",
	}, []string{"already_unlocked"})

	// unlocksPersisted counts completion messages that wrote an unlock record.
	unlocksPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_unlocks_persisted_total",
		Help: "Total number of unlock records persisted",
	})

	// redirects counts final navigations out of the gated page.
	redirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_redirects_total",
		Help: "Total number of redirect navigations performed",
	})

	// retriesStarted counts user-initiated embed reloads after a failure.
	retriesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_retries_total",
		Help: "Total number of user-initiated embed retries",
	})

	// interferenceDetections counts probe runs that found a content blocker.
	interferenceDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_interference_detections_total",
		Help: "Total number of interference probe runs that detected blocking",
	})

	// staleSignals counts load/error/timeout signals rejected because they
	// arrived for a handle that is no longer live.
	staleSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_stale_signals_total",
		Help: "Total number of signals dropped for an already-disposed embed",
	})

	// droppedPayloads counts inbound payloads that matched no protocol shape
	// or arrived with no active session.
	droppedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatelock_dropped_payloads_total",
		Help: "Total number of inbound message payloads dropped",
	})

	// stateTransitions counts session transitions by target state.
	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatelock_state_transitions_total",
		Help: "Total number of session state transitions by target state",
	}, []string{"state"})

	// embedLoadDuration tracks time from embed creation to the ready signal.
	embedLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatelock_embed_load_duration_seconds",
		Help:    "Histogram of embed load latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
