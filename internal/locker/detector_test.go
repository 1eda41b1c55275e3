// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

import (
	"errors"
	"testing"
)

// fakeProbe records whether it was removed.
type fakeProbe struct {
	height  int
	removed bool
}

func (p *fakeProbe) Height() int { return p.height }
func (p *fakeProbe) Remove()     { p.removed = true }

// fakeProbeHost hands out a preconfigured probe, or refuses.
type fakeProbeHost struct {
	probe    *fakeProbe
	err      error
	lastSpec ProbeSpec
}

func (h *fakeProbeHost) InsertProbe(spec ProbeSpec) (Probe, error) {
	h.lastSpec = spec
	if h.err != nil {
		return nil, h.err
	}
	return h.probe, nil
}

func TestProbeDetector_CollapsedProbeMeansBlocked(t *testing.T) {
	host := &fakeProbeHost{probe: &fakeProbe{height: 0}}
	d := NewProbeDetector(host)

	if !d.Detect() {
		t.Error("zero-height probe must report interference")
	}
	if !host.probe.removed {
		t.Error("probe must be removed after measuring")
	}
}

func TestProbeDetector_VisibleProbeMeansClear(t *testing.T) {
	host := &fakeProbeHost{probe: &fakeProbe{height: 12}}
	d := NewProbeDetector(host)

	if d.Detect() {
		t.Error("visible probe must report no interference")
	}
	if !host.probe.removed {
		t.Error("probe must be removed after measuring")
	}
}

func TestProbeDetector_InsertFailureMeansClear(t *testing.T) {
	host := &fakeProbeHost{err: errors.New("document not ready")}
	d := NewProbeDetector(host)

	// An unmeasurable page must not lock the user out.
	if d.Detect() {
		t.Error("probe insertion failure must report no interference")
	}
}

func TestProbeDetector_UsesBaitSpec(t *testing.T) {
	host := &fakeProbeHost{probe: &fakeProbe{height: 12}}
	NewProbeDetector(host).Detect()

	if host.lastSpec.ClassName != "adsbox" {
		t.Errorf("probe class = %q, want adsbox", host.lastSpec.ClassName)
	}
	if host.lastSpec.OffsetX >= 0 || host.lastSpec.OffsetY >= 0 {
		t.Error("probe must be positioned off-screen")
	}
}

func TestDetectorFunc(t *testing.T) {
	d := DetectorFunc(func() bool { return true })
	if !d.Detect() {
		t.Error("DetectorFunc must forward to the wrapped func")
	}
}
