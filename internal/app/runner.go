package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var errRunning = errors.New("dictation already running")

// loop is a blocking pipeline loop such as dictation.Service.Run.
type loop interface {
	Run(ctx context.Context) error
}

// Runner owns the goroutine running the dictation loop.
type Runner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs l in the background until Stop or ctx is done.
func (r *Runner) Start(ctx context.Context, l loop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return errRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("dictation loop", "error", err)
		}
	}()
	return nil
}

// Stop cancels the loop and waits for it to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
