// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

// Package locker implements the gated-content unlock workflow: the session
// state machine, the embed message protocol, embed lifecycle supervision,
// interference detection, and the bounded retry policy.
package locker

import "encoding/json"

// MessageKind identifies the kind of protocol message received from the embed.
type MessageKind string

const (
	MessageCompleted MessageKind = "completed"
	MessageError     MessageKind = "error"
	MessageResize    MessageKind = "resize"
)

// ProtocolMessage is a classified payload from the embedded offer frame.
type ProtocolMessage struct {
	Kind    MessageKind
	Message string // error text, only for MessageError
	Height  int    // pixels, only for MessageResize
}

// wireMessage covers every payload shape the offer wall is known to send.
// Fields are pointers so absence is distinguishable from zero values.
type wireMessage struct {
	Status *string  `json:"status"`
	Error  *string  `json:"error"`
	Height *float64 `json:"height"`
}

// ParseMessage classifies a raw payload from the page's message channel.
// It is total: any payload that does not match a known shape returns ok=false
// and must be dropped silently rather than treated as an error.
func ParseMessage(payload []byte) (ProtocolMessage, bool) {
	var wire wireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return ProtocolMessage{}, false
	}

	switch {
	case wire.Status != nil && *wire.Status == "completed":
		return ProtocolMessage{Kind: MessageCompleted}, true
	case wire.Error != nil:
		return ProtocolMessage{Kind: MessageError, Message: *wire.Error}, true
	case wire.Height != nil && *wire.Height > 0:
		return ProtocolMessage{Kind: MessageResize, Height: int(*wire.Height)}, true
	default:
		return ProtocolMessage{}, false
	}
}
