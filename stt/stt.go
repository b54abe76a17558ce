// Package stt provides speech-to-text provider interface and implementations.
package stt

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// SampleRate is the rate of the audio passed to Transcribe.
const SampleRate = 16000

var (
	// ErrNotReady is returned when the provider has no usable model or key.
	ErrNotReady = errors.New("speech model not ready")
	// ErrEmptyAudio is returned for zero-length audio.
	ErrEmptyAudio = errors.New("empty audio")
	// ErrProviderNotFound is returned for an unknown provider name.
	ErrProviderNotFound = errors.New("stt provider not found")
	// ErrNativeUnavailable is returned when the binary was built without the
	// whispercpp tag.
	ErrNativeUnavailable = errors.New("in-process whisper not compiled in (build with -tags whispercpp)")
)

// TranscribeResult represents the result of a transcription.
type TranscribeResult struct {
	Text     string    `json:"text"`     // Transcribed text
	Language string    `json:"language"` // Detected language code
	Segments []Segment `json:"segments"` // Time-stamped segments
}

// Segment represents a time-stamped audio segment.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Provider defines the interface for speech-to-text providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// IsLocal returns true if the provider runs locally without API calls.
	IsLocal() bool

	// IsReady returns true if the provider can transcribe.
	IsReady() bool

	// Transcribe converts audio samples to text. It blocks until the model
	// finishes; callers must not run it concurrently on the same session.
	// audio: mono PCM float32 samples at 16000 Hz
	// language: source language code ("" or "auto" to detect)
	Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error)

	// Close releases resources held by the provider.
	Close() error
}

// NormalizeLanguage maps the "auto" setting to the empty string that engines
// treat as detection.
func NormalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "auto" {
		return ""
	}
	return language
}

// joinSegments concatenates segment texts into a single trimmed string.
func joinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Registry holds registered STT providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry, replacing one with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// List returns all registered providers sorted by name.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b Provider) int { return strings.Compare(a.Name(), b.Name()) })
	return result
}

// Close releases all providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
