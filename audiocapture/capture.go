// Package audiocapture records microphone audio into a growing buffer that
// can be read repeatedly while recording continues.
package audiocapture

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// TargetSampleRate is the rate speech models expect.
const TargetSampleRate = 16000

var (
	// ErrNotCapturing is returned when reading audio while not capturing.
	ErrNotCapturing = errors.New("not capturing audio")
	// ErrAlreadyCapturing is returned when starting capture twice.
	ErrAlreadyCapturing = errors.New("already capturing audio")
	// ErrNoDevice is returned when no input device is available.
	ErrNoDevice = errors.New("no audio input device")
)

// Device is a platform audio input. Open starts delivering mono samples to
// onSamples from the driver's own context and returns the device sample rate.
// onSamples must not block. After Close returns no more samples are delivered.
type Device interface {
	Open(onSamples func(samples []float32)) (sampleRate int, err error)
	Close() error
}

// Config holds configuration for audio capture.
type Config struct {
	SampleRate  int           // Output rate of snapshots, default 16000 Hz
	Preallocate time.Duration // Initial buffer capacity, default 30 seconds
}

// DefaultConfig returns the default capture configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:  TargetSampleRate,
		Preallocate: 30 * time.Second,
	}
}

// Capture records one session at a time from a Device.
//
// The buffer is append-only while recording. A snapshot is a view of the
// first n samples and shares the backing array, so taking one never copies
// or blocks the driver callback for longer than reading the length.
type Capture struct {
	cfg Config
	dev Device

	mu        sync.Mutex // guards capturing, startTime
	capturing bool
	startTime time.Time

	bufMu      sync.Mutex // guards buf, deviceRate
	buf        []float32
	deviceRate int
}

// New creates a capture reading from dev.
func New(cfg Config, dev Device) *Capture {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = TargetSampleRate
	}
	if cfg.Preallocate <= 0 {
		cfg.Preallocate = 30 * time.Second
	}
	return &Capture{cfg: cfg, dev: dev}
}

// Start opens the device and begins recording into a fresh buffer.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return ErrAlreadyCapturing
	}
	if c.dev == nil {
		return ErrNoDevice
	}

	c.bufMu.Lock()
	c.buf = make([]float32, 0, int(c.cfg.Preallocate.Seconds()*float64(c.cfg.SampleRate)))
	c.deviceRate = c.cfg.SampleRate
	c.bufMu.Unlock()

	rate, err := c.dev.Open(c.handleAudio)
	if err != nil {
		c.release()
		return fmt.Errorf("open input device: %w", err)
	}

	c.bufMu.Lock()
	if rate > 0 {
		c.deviceRate = rate
	}
	c.bufMu.Unlock()

	c.capturing = true
	c.startTime = time.Now()
	return nil
}

// Snapshot returns all audio recorded so far without interrupting capture.
// Successive snapshots of one session never get shorter.
func (c *Capture) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	capturing := c.capturing
	c.mu.Unlock()
	if !capturing {
		return Snapshot{}, ErrNotCapturing
	}
	return c.snapshot(), nil
}

// Stop closes the device, returns the final snapshot and releases the buffer.
func (c *Capture) Stop() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return Snapshot{}, ErrNotCapturing
	}
	c.capturing = false

	err := c.dev.Close()
	snap := c.snapshot()
	c.release()
	if err != nil {
		return snap, fmt.Errorf("close input device: %w", err)
	}
	return snap, nil
}

// IsCapturing returns true if currently capturing audio.
func (c *Capture) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// Duration returns how long capture has been running.
func (c *Capture) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capturing {
		return 0
	}
	return time.Since(c.startTime)
}

// handleAudio runs on the driver context.
func (c *Capture) handleAudio(samples []float32) {
	c.bufMu.Lock()
	if c.buf != nil {
		c.buf = append(c.buf, samples...)
	}
	c.bufMu.Unlock()
}

func (c *Capture) snapshot() Snapshot {
	c.bufMu.Lock()
	n := len(c.buf)
	view := c.buf[:n:n]
	rate := c.deviceRate
	c.bufMu.Unlock()

	if rate != c.cfg.SampleRate {
		view = Resample(view, rate, c.cfg.SampleRate)
	}
	return Snapshot{samples: view, sampleRate: c.cfg.SampleRate}
}

func (c *Capture) release() {
	c.bufMu.Lock()
	c.buf = nil
	c.bufMu.Unlock()
}

// Snapshot is an immutable view of recorded mono audio.
type Snapshot struct {
	samples    []float32
	sampleRate int
}

// NewSnapshot wraps samples. The caller must not modify them afterwards.
func NewSnapshot(samples []float32, sampleRate int) Snapshot {
	return Snapshot{samples: samples, sampleRate: sampleRate}
}

// Samples returns the audio in [-1, 1]. The slice is shared and must not be
// modified.
func (s Snapshot) Samples() []float32 { return s.samples }

// Len returns the number of samples.
func (s Snapshot) Len() int { return len(s.samples) }

// SampleRate returns the sample rate in Hz.
func (s Snapshot) SampleRate() int { return s.sampleRate }

// Duration returns the length of the recording.
func (s Snapshot) Duration() time.Duration {
	if s.sampleRate == 0 {
		return 0
	}
	return time.Duration(len(s.samples)) * time.Second / time.Duration(s.sampleRate)
}
