// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
)

// LoadState tracks the outcome of one embed load attempt.
type LoadState string

const (
	LoadPending LoadState = "pending"
	LoadLoaded  LoadState = "loaded"
	LoadErrored LoadState = "errored"
)

// FrameConfig describes how an embed frame must be materialized. Frames are
// always isolated: sandboxed, with clipboard-write as the only permission.
type FrameConfig struct {
	URL       string
	Sandboxed bool
	Allow     string
	MinWidth  int
	MinHeight int
}

// Frame is one rendering surface materialized by the host page.
//
// Implementations deliver the load and error callbacks from the host page's
// event loop, never synchronously from within FrameFactory.CreateFrame.
// Detach unregisters both callbacks and removes the surface from the page.
type Frame interface {
	OnLoad(fn func())
	OnError(fn func(err error))
	SetHeight(px int)
	Detach()
}

// FrameFactory materializes frames on the host page. The supervisor owns all
// lifecycle logic; the factory only builds surfaces.
type FrameFactory interface {
	CreateFrame(cfg FrameConfig) (Frame, error)
}

// EmbedURL builds the offer wall URL for a campaign.
func EmbedURL(host, campaignID string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     "/locker.js",
		RawQuery: url.Values{"campaignId": {campaignID}}.Encode(),
	}
	return u.String()
}

// EmbedHandle owns the resources of exactly one embed load attempt. A new
// attempt always produces a new handle; the old one is disposed first and
// never reused.
type EmbedHandle struct {
	frame Frame
	url   string
	gen   uint64

	mu       sync.Mutex
	state    LoadState
	disposed bool
}

// URL returns the offer wall URL this handle points at.
func (h *EmbedHandle) URL() string { return h.url }

// Generation returns the monotonically increasing attempt number. Late
// signals are matched against the live handle's generation before acting.
func (h *EmbedHandle) Generation() uint64 { return h.gen }

// LoadState returns the current load outcome.
func (h *EmbedHandle) LoadState() LoadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetHeight forwards a resize hint to the underlying surface. Hints for a
// disposed handle are dropped.
func (h *EmbedHandle) SetHeight(px int) {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	frame := h.frame
	h.mu.Unlock()
	frame.SetHeight(px)
}

// Dispose unregisters the handle's callbacks and detaches the surface from
// the page. The second and later calls are no-ops.
func (h *EmbedHandle) Dispose() {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	frame := h.frame
	h.mu.Unlock()
	frame.Detach()
}

// markLoaded transitions pending -> loaded. Returns false for a signal that
// arrives after disposal or after an outcome was already recorded.
func (h *EmbedHandle) markLoaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed || h.state != LoadPending {
		return false
	}
	h.state = LoadLoaded
	return true
}

// markErrored transitions pending -> errored under the same rules.
func (h *EmbedHandle) markErrored() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed || h.state != LoadPending {
		return false
	}
	h.state = LoadErrored
	return true
}

// EmbedSupervisor creates disposable, sandboxed embeds pointed at the
// configured offer wall and wires exactly one ready and one error callback
// per attempt. It owns no timers; the load timeout belongs to the session.
type EmbedSupervisor struct {
	factory FrameFactory
	host    string
	gen     atomic.Uint64
}

// NewEmbedSupervisor creates a supervisor building embeds for offerHost.
func NewEmbedSupervisor(factory FrameFactory, offerHost string) *EmbedSupervisor {
	return &EmbedSupervisor{factory: factory, host: offerHost}
}

// Create materializes a new embed for the campaign. Each callback fires at
// most once, and never after the handle is disposed.
func (s *EmbedSupervisor) Create(campaignID string, onReady func(*EmbedHandle), onError func(*EmbedHandle, error)) (*EmbedHandle, error) {
	embedURL := EmbedURL(s.host, campaignID)

	frame, err := s.factory.CreateFrame(FrameConfig{
		URL:       embedURL,
		Sandboxed: true,
		Allow:     "clipboard-write",
		MinWidth:  320,
		MinHeight: 400,
	})
	if err != nil {
		return nil, oops.Code("EMBED_CREATE_FAILED").
			With("campaign_id", campaignID).
			Wrap(err)
	}

	h := &EmbedHandle{
		frame: frame,
		url:   embedURL,
		gen:   s.gen.Add(1),
		state: LoadPending,
	}

	frame.OnLoad(func() {
		if h.markLoaded() {
			onReady(h)
		}
	})
	frame.OnError(func(loadErr error) {
		if h.markErrored() {
			onError(h, loadErr)
		}
	})

	return h, nil
}
