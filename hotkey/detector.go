// Package hotkey recognizes the double-press gesture that toggles dictation.
package hotkey

import (
	"context"
	"slices"
	"time"
)

// DefaultWindow is the maximum time between two presses of a double press.
const DefaultWindow = 500 * time.Millisecond

// KeyEvent is a raw keyboard event from the OS input layer.
type KeyEvent struct {
	Code    uint16
	Pressed bool // false for a release
	Time    time.Time
}

// Detector turns raw key events into Toggle signals.
//
// Matching rules:
//   - A press of the designated key while it is still held is an auto-repeat
//     and never counts as a second press.
//   - Releasing the designated key does not reset the memory.
//   - Pressing any other key disarms the detector.
//   - Two presses less than Window apart produce one Toggle; a gap of exactly
//     Window does not. After a Toggle the memory is cleared, so a third rapid
//     press starts a new gesture.
//
// A Detector is not safe for concurrent use.
type Detector struct {
	Codes  []uint16
	Window time.Duration

	lastPress time.Time
	armed     bool
	held      map[uint16]bool
}

// NewDetector creates a detector for the given key codes. A zero window uses
// DefaultWindow.
func NewDetector(codes []uint16, window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{Codes: codes, Window: window, held: make(map[uint16]bool)}
}

// Feed processes one event and reports whether it completes a double press.
func (d *Detector) Feed(ev KeyEvent) bool {
	if !slices.Contains(d.Codes, ev.Code) {
		if ev.Pressed {
			d.Reset()
		}
		return false
	}

	if d.held == nil {
		d.held = make(map[uint16]bool)
	}
	if !ev.Pressed {
		delete(d.held, ev.Code)
		return false
	}
	if d.held[ev.Code] {
		return false
	}
	d.held[ev.Code] = true

	if d.armed {
		elapsed := ev.Time.Sub(d.lastPress)
		if elapsed >= 0 && elapsed < d.Window {
			d.armed = false
			d.lastPress = time.Time{}
			return true
		}
	}
	d.armed = true
	d.lastPress = ev.Time
	return false
}

// Reset forgets any pending first press.
func (d *Detector) Reset() {
	d.armed = false
	d.lastPress = time.Time{}
}

// Run feeds events to the detector until ctx is done or events is closed,
// calling onToggle for every recognized gesture.
func (d *Detector) Run(ctx context.Context, events <-chan KeyEvent, onToggle func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if d.Feed(ev) {
				onToggle()
			}
		}
	}
}
