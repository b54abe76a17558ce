// Package inject delivers text to the input field that has keyboard focus.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"

	"go.aimuz.me/dictate/clipboard"
)

// Injector types text at the current input focus.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Methods accepted by New.
const (
	MethodPaste = "paste"
	MethodType  = "type"
)

// New returns a serialized injector for the named method.
func New(method string) (*Serial, error) {
	switch method {
	case "", MethodPaste:
		return NewSerial(NewPaste(SystemClipboard{})), nil
	case MethodType:
		return NewSerial(&Typist{}), nil
	default:
		return nil, fmt.Errorf("unknown injection method %q", method)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Ordering
// ─────────────────────────────────────────────────────────────────────────────

// Serial delivers fragments one at a time in call order.
type Serial struct {
	mu   sync.Mutex
	next Injector
}

// NewSerial wraps next.
func NewSerial(next Injector) *Serial {
	return &Serial{next: next}
}

// Inject forwards text once every earlier call has finished.
func (s *Serial) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.next.Inject(ctx, text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Clipboard paste
// ─────────────────────────────────────────────────────────────────────────────

// Clipboard is the system clipboard plus the paste shortcut.
type Clipboard interface {
	GetText() (string, error)
	SetText(text string) error
	Paste() error
}

// SystemClipboard uses the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) GetText() (string, error)  { return clipboard.GetText() }
func (SystemClipboard) SetText(text string) error { return clipboard.SetText(text) }
func (SystemClipboard) Paste() error              { return clipboard.Paste() }

// Paste injects text by placing it on the clipboard and sending the paste
// shortcut, then restores what the clipboard held before.
type Paste struct {
	cb Clipboard

	// SettleDelay is the wait between setting the clipboard and pasting.
	SettleDelay time.Duration
	// RestoreDelay is the wait after pasting before the clipboard is restored,
	// so the target application has read it.
	RestoreDelay time.Duration
}

// NewPaste creates a paste injector with default delays.
func NewPaste(cb Clipboard) *Paste {
	return &Paste{
		cb:           cb,
		SettleDelay:  50 * time.Millisecond,
		RestoreDelay: 100 * time.Millisecond,
	}
}

// Inject pastes text.
func (p *Paste) Inject(ctx context.Context, text string) error {
	previous, readErr := p.cb.GetText()

	if err := p.cb.SetText(text); err != nil {
		return err
	}
	if err := sleep(ctx, p.SettleDelay); err != nil {
		p.restore(previous, readErr)
		return err
	}
	if err := p.cb.Paste(); err != nil {
		p.restore(previous, readErr)
		return err
	}
	// The paste was sent; wait for it to land even if ctx ends.
	time.Sleep(p.RestoreDelay)
	p.restore(previous, readErr)
	return nil
}

func (p *Paste) restore(previous string, readErr error) {
	if readErr != nil {
		return
	}
	if err := p.cb.SetText(previous); err != nil {
		slog.Warn("restore clipboard", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Keystrokes
// ─────────────────────────────────────────────────────────────────────────────

// Typist injects text as synthetic key presses. It leaves the clipboard
// untouched but is slower than pasting for long fragments.
type Typist struct {
	typeStr func(string)
}

// Inject types text.
func (t *Typist) Inject(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	typeStr := t.typeStr
	if typeStr == nil {
		typeStr = func(s string) { robotgo.TypeStr(s) }
	}
	typeStr(text)
	return nil
}
