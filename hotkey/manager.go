package hotkey

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Start when the manager is listening.
var ErrAlreadyRunning = errors.New("hotkey manager already running")

// Config selects the gesture key and timing.
type Config struct {
	Key    string
	Window time.Duration
}

// DefaultConfig returns a double press of Alt within 500ms.
func DefaultConfig() Config {
	return Config{Key: "alt", Window: DefaultWindow}
}

// HotkeyManager listens for the toggle gesture on a key event source.
type HotkeyManager struct {
	cfg       Config
	newSource func() Source
	onToggle  func()

	mu       sync.Mutex
	source   Source
	cancel   context.CancelFunc
	done     chan struct{}
	onStatus func(active bool)
}

// NewHotkeyManager creates a manager. newSource is called on every Start; nil
// uses the global OS hook.
func NewHotkeyManager(cfg Config, newSource func() Source, onToggle func()) *HotkeyManager {
	if newSource == nil {
		newSource = func() Source { return NewHookSource() }
	}
	return &HotkeyManager{cfg: cfg, newSource: newSource, onToggle: onToggle}
}

// SetStatusCallback registers a callback invoked when listening starts or stops.
func (m *HotkeyManager) SetStatusCallback(fn func(active bool)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

// Start begins listening for the gesture.
func (m *HotkeyManager) Start() error {
	codes, err := ParseKey(m.cfg.Key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.source != nil {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	src := m.newSource()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.source, m.cancel, m.done = src, cancel, done
	onStatus := m.onStatus
	m.mu.Unlock()

	det := NewDetector(codes, m.cfg.Window)
	go func() {
		defer close(done)
		det.Run(ctx, src.Events(), func() {
			slog.Debug("hotkey toggle", "key", m.cfg.Key)
			m.onToggle()
		})
	}()

	slog.Info("hotkey listening", "key", m.cfg.Key, "window", det.Window)
	if onStatus != nil {
		onStatus(true)
	}
	return nil
}

// Stop stops listening and waits for the event loop to exit.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	src, cancel, done := m.source, m.cancel, m.done
	m.source, m.cancel, m.done = nil, nil, nil
	onStatus := m.onStatus
	m.mu.Unlock()

	if src == nil {
		return
	}
	cancel()
	src.Close()
	<-done
	if onStatus != nil {
		onStatus(false)
	}
}
