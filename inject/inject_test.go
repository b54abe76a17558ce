package inject

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClipboard struct {
	mu       sync.Mutex
	content  string
	readErr  error
	pasteErr error
	pasted   []string
	calls    []string
}

func (c *fakeClipboard) GetText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "get")
	return c.content, c.readErr
}

func (c *fakeClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "set:"+text)
	c.content = text
	return nil
}

func (c *fakeClipboard) Paste() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "paste")
	if c.pasteErr != nil {
		return c.pasteErr
	}
	c.pasted = append(c.pasted, c.content)
	return nil
}

func newTestPaste(cb Clipboard) *Paste {
	p := NewPaste(cb)
	p.SettleDelay = 0
	p.RestoreDelay = 0
	return p
}

func TestPaste_RestoresClipboard(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	p := newTestPaste(cb)

	if err := p.Inject(context.Background(), "hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	want := "get|set:hello|paste|set:user data"
	if got := strings.Join(cb.calls, "|"); got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
	if cb.content != "user data" {
		t.Errorf("clipboard = %q, want restored %q", cb.content, "user data")
	}
}

func TestPaste_UnreadableClipboardNotRestored(t *testing.T) {
	cb := &fakeClipboard{readErr: errors.New("image on clipboard")}
	p := newTestPaste(cb)

	if err := p.Inject(context.Background(), "hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if cb.content != "hello" {
		t.Errorf("clipboard = %q, want %q", cb.content, "hello")
	}
}

func TestPaste_Error(t *testing.T) {
	pasteErr := errors.New("no focus")
	cb := &fakeClipboard{content: "keep", pasteErr: pasteErr}
	p := newTestPaste(cb)

	if err := p.Inject(context.Background(), "hello"); !errors.Is(err, pasteErr) {
		t.Errorf("Inject() error = %v, want %v", err, pasteErr)
	}
	if cb.content != "keep" {
		t.Errorf("clipboard = %q, want restored %q", cb.content, "keep")
	}
}

func TestPaste_CanceledBeforePaste(t *testing.T) {
	cb := &fakeClipboard{content: "keep"}
	p := NewPaste(cb)
	p.SettleDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Inject(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("Inject() error = %v, want %v", err, context.Canceled)
	}
	if len(cb.pasted) != 0 {
		t.Errorf("pasted = %v, want nothing", cb.pasted)
	}
	if cb.content != "keep" {
		t.Errorf("clipboard = %q, want %q", cb.content, "keep")
	}
}

type recordingInjector struct {
	mu     sync.Mutex
	active int
	got    []string
	delay  time.Duration
}

func (r *recordingInjector) Inject(_ context.Context, text string) error {
	r.mu.Lock()
	r.active++
	overlap := r.active > 1
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	if overlap {
		return errors.New("concurrent injection")
	}
	r.got = append(r.got, text)
	return nil
}

func TestSerial_OrderAndExclusion(t *testing.T) {
	rec := &recordingInjector{delay: time.Millisecond}
	s := NewSerial(rec)

	for _, f := range []string{"hello", " world", ", again"} {
		if err := s.Inject(context.Background(), f); err != nil {
			t.Fatalf("Inject(%q) error = %v", f, err)
		}
	}
	if got := strings.Join(rec.got, ""); got != "hello world, again" {
		t.Errorf("injected = %q, want %q", got, "hello world, again")
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Inject(context.Background(), "x")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Inject() error = %v", err)
		}
	}
}

func TestSerial_SkipsEmpty(t *testing.T) {
	rec := &recordingInjector{}
	if err := NewSerial(rec).Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject(\"\") error = %v", err)
	}
	if len(rec.got) != 0 {
		t.Errorf("injected %v, want nothing", rec.got)
	}
}

func TestTypist(t *testing.T) {
	var typed []string
	ty := &Typist{typeStr: func(s string) { typed = append(typed, s) }}

	if err := ty.Inject(context.Background(), "zażółć"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(typed) != 1 || typed[0] != "zażółć" {
		t.Errorf("typed = %q", typed)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("type"); err != nil {
		t.Errorf("New(type) error = %v", err)
	}
	if _, err := New("paste"); err != nil {
		t.Errorf("New(paste) error = %v", err)
	}
	if _, err := New("telepathy"); err == nil {
		t.Error("New(telepathy) error = nil")
	}
}
