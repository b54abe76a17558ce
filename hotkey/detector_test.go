package hotkey

import (
	"context"
	"testing"
	"time"
)

const (
	altL  uint16 = 56
	altR  uint16 = 3640
	keyA  uint16 = 30
	start        = 1_000_000
)

var epoch = time.Unix(0, 0)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(start+ms) * time.Millisecond)
}

func press(code uint16, ms int) KeyEvent   { return KeyEvent{Code: code, Pressed: true, Time: at(ms)} }
func release(code uint16, ms int) KeyEvent { return KeyEvent{Code: code, Pressed: false, Time: at(ms)} }

// tap is a short press and release.
func tap(code uint16, ms int) []KeyEvent {
	return []KeyEvent{press(code, ms), release(code, ms+50)}
}

func seq(parts ...[]KeyEvent) []KeyEvent {
	var out []KeyEvent
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func countToggles(d *Detector, events []KeyEvent) int {
	n := 0
	for _, ev := range events {
		if d.Feed(ev) {
			n++
		}
	}
	return n
}

func TestDetector_Feed(t *testing.T) {
	tests := []struct {
		name   string
		events []KeyEvent
		want   int
	}{
		{"single press", tap(altL, 0), 0},
		{"double press 200ms", seq(tap(altL, 0), tap(altL, 200)), 1},
		{"double press 800ms", seq(tap(altL, 0), tap(altL, 800)), 0},
		{"just below window", seq(tap(altL, 0), tap(altL, 499)), 1},
		{"exactly window", seq(tap(altL, 0), tap(altL, 500)), 0},
		{"left then right alt", seq(tap(altL, 0), tap(altR, 150)), 1},
		{"triple press", seq(tap(altL, 0), tap(altL, 150), tap(altL, 300)), 1},
		{"quadruple press", seq(tap(altL, 0), tap(altL, 150), tap(altL, 300), tap(altL, 450)), 2},
		{"other key between", seq(tap(altL, 0), tap(keyA, 100), tap(altL, 200)), 0},
		{"other key released only", seq(tap(altL, 0), []KeyEvent{release(keyA, 100)}, tap(altL, 200)), 1},
		{"other key alone", seq(tap(keyA, 0), tap(keyA, 100)), 0},
		{
			name: "held key auto-repeat",
			events: []KeyEvent{
				press(altL, 0), press(altL, 30), press(altL, 60), press(altL, 90), release(altL, 2000),
			},
			want: 0,
		},
		{
			name: "long hold then quick press",
			events: []KeyEvent{
				press(altL, 0), release(altL, 1000), press(altL, 1200), release(altL, 1250),
			},
			want: 0,
		},
		{
			name: "second press before first release",
			events: []KeyEvent{
				press(altL, 0), press(altR, 100), release(altL, 150), release(altR, 160),
			},
			want: 1,
		},
		{
			name:   "slow pair then fast pair",
			events: seq(tap(altL, 0), tap(altL, 900), tap(altL, 1100)),
			want:   1,
		},
		{
			name:   "timestamp going backwards",
			events: seq(tap(altL, 500), tap(altL, 100)),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector([]uint16{altL, altR}, 500*time.Millisecond)
			if got := countToggles(d, tt.events); got != tt.want {
				t.Errorf("toggles = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetector_DefaultWindow(t *testing.T) {
	d := NewDetector([]uint16{altL}, 0)
	if d.Window != DefaultWindow {
		t.Errorf("Window = %v, want %v", d.Window, DefaultWindow)
	}
}

func TestDetector_Run(t *testing.T) {
	events := make(chan KeyEvent, 16)
	for _, ev := range seq(tap(altL, 0), tap(altL, 100), tap(altL, 1000), tap(altL, 1200)) {
		events <- ev
	}
	close(events)

	d := NewDetector([]uint16{altL}, DefaultWindow)
	toggles := 0
	d.Run(context.Background(), events, func() { toggles++ })

	if toggles != 2 {
		t.Errorf("toggles = %d, want 2", toggles)
	}
}

func TestDetector_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan KeyEvent)
	done := make(chan struct{})

	go func() {
		NewDetector([]uint16{altL}, DefaultWindow).Run(ctx, events, func() {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		want    []uint16
		wantErr bool
	}{
		{"alt", []uint16{56, 3640}, false},
		{" Option ", []uint16{56, 3640}, false},
		{"ctrl", []uint16{29, 3613}, false},
		{"cmd", []uint16{3675, 3676}, false},
		{"58", []uint16{58}, false},
		{"0", nil, true},
		{"hyper", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseKey(%q) = %v, want %v", tt.name, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseKey(%q) = %v, want %v", tt.name, got, tt.want)
				}
			}
		})
	}
}
