// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"log/slog"
	"sync"
)

// SessionSink receives classified protocol traffic for the active session.
// Resize hints go straight to the live rendering surface; completed and
// error messages feed the session's transition function.
type SessionSink interface {
	HandleProtocol(msg ProtocolMessage)
	HandleResize(height int)
}

// MessageBridge owns the page-global inbound message channel. The channel is
// shared by every session in the document, so the bridge routes strictly by
// "who is the currently active session": each Subscribe replaces the previous
// registration instead of stacking on top of it.
type MessageBridge struct {
	mu     sync.Mutex
	active SessionSink
}

// NewMessageBridge creates a bridge with no active subscriber.
func NewMessageBridge() *MessageBridge {
	return &MessageBridge{}
}

// Subscribe registers sink as the active session and returns an unsubscribe
// func. Unsubscribing after another sink has replaced this one is a no-op,
// so a slow teardown can never knock out its successor's registration.
func (b *MessageBridge) Subscribe(sink SessionSink) func() {
	b.mu.Lock()
	b.active = sink
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if b.active == sink {
			b.active = nil
		}
		b.mu.Unlock()
	}
}

// Deliver feeds one raw payload from the page's message channel through
// classification and dispatch. Unrecognized or malformed payloads are
// dropped silently; payloads with no active session are dropped too.
func (b *MessageBridge) Deliver(payload []byte) {
	msg, ok := ParseMessage(payload)
	if !ok {
		droppedPayloads.Inc()
		return
	}

	b.mu.Lock()
	sink := b.active
	b.mu.Unlock()

	if sink == nil {
		slog.Debug("protocol message with no active session", "kind", string(msg.Kind))
		droppedPayloads.Inc()
		return
	}

	if msg.Kind == MessageResize {
		sink.HandleResize(msg.Height)
		return
	}
	sink.HandleProtocol(msg)
}
