package hotkey

import (
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// Source delivers raw key events. Events is a single, non-restartable stream
// that is closed after Close.
type Source interface {
	Events() <-chan KeyEvent
	Close()
}

// HookSource reads key events from the global OS input hook.
type HookSource struct {
	events chan KeyEvent
	once   sync.Once
	done   chan struct{}
}

// NewHookSource installs the global hook and starts forwarding key events.
func NewHookSource() *HookSource {
	s := &HookSource{
		events: make(chan KeyEvent, 64),
		done:   make(chan struct{}),
	}
	raw := hook.Start()
	go s.forward(raw)
	return s
}

func (s *HookSource) forward(raw chan hook.Event) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			ke, ok := convert(ev)
			if !ok {
				continue
			}
			select {
			case s.events <- ke:
			default:
				// Consumer is behind; dropping a key event only loses a gesture.
			}
		}
	}
}

// Events returns the key event stream.
func (s *HookSource) Events() <-chan KeyEvent {
	return s.events
}

// Close removes the global hook.
func (s *HookSource) Close() {
	s.once.Do(func() {
		close(s.done)
		hook.End()
	})
}

// convert maps hook events to key events. gohook reports a physical press as
// KeyHold; KeyDown is the character "typed" event, which carries no key code
// and is skipped so it cannot disarm the detector.
func convert(ev hook.Event) (KeyEvent, bool) {
	if ev.Keycode == 0 {
		return KeyEvent{}, false
	}
	when := ev.When
	if when.IsZero() {
		when = time.Now()
	}
	switch ev.Kind {
	case hook.KeyHold:
		return KeyEvent{Code: ev.Keycode, Pressed: true, Time: when}, true
	case hook.KeyUp:
		return KeyEvent{Code: ev.Keycode, Pressed: false, Time: when}, true
	default:
		return KeyEvent{}, false
	}
}
