// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatelock Contributors

package locker

// InterferenceDetector is a one-shot synchronous probe reporting whether
// content-blocking software is suppressing the page's rendering.
type InterferenceDetector interface {
	Detect() bool
}

// DetectorFunc adapts a plain function to the InterferenceDetector interface.
type DetectorFunc func() bool

// Detect calls f.
func (f DetectorFunc) Detect() bool { return f() }

// ProbeSpec describes the bait element inserted by the probe detector. The
// element is styled to resemble third-party advertising content so that
// blocking extensions suppress it.
type ProbeSpec struct {
	ClassName string
	Content   string
	OffsetX   int
	OffsetY   int
}

// Probe is a short-lived bait element attached to the host page.
type Probe interface {
	// Height returns the rendered height in pixels. Blockers collapse the
	// element to zero.
	Height() int

	// Remove detaches the probe from the page. Safe to call once.
	Remove()
}

// ProbeHost is the host-page surface the detector renders probes into.
type ProbeHost interface {
	InsertProbe(spec ProbeSpec) (Probe, error)
}

// adProbeSpec mimics a common ad container placed offscreen.
var adProbeSpec = ProbeSpec{
	ClassName: "adsbox",
	Content:   " ",
	OffsetX:   -10000,
	OffsetY:   -10000,
}

// ProbeDetector detects interference by inserting a bait element and
// measuring whether it was visually suppressed. The probe never stays
// attached, whatever the outcome.
type ProbeDetector struct {
	host ProbeHost
}

// NewProbeDetector creates a detector rendering into the given host.
func NewProbeDetector(host ProbeHost) *ProbeDetector {
	return &ProbeDetector{host: host}
}

// Detect runs the probe once, synchronously. If the probe cannot be inserted
// at all the detector reports no interference rather than blocking the user.
func (d *ProbeDetector) Detect() bool {
	probe, err := d.host.InsertProbe(adProbeSpec)
	if err != nil {
		return false
	}
	defer probe.Remove()
	return probe.Height() == 0
}
