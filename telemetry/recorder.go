// Package telemetry counts pipeline activity. Totals are kept in memory for
// the UI and mirrored to OpenTelemetry instruments.
package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "go.aimuz.me/dictate"

// Recorder tracks dictation metrics. A nil Recorder is valid and records
// nothing.
type Recorder struct {
	log *slog.Logger

	sessions       atomic.Uint64
	transcriptions atomic.Uint64
	failures       atomic.Uint64
	skippedTicks   atomic.Uint64
	fragments      atomic.Uint64
	injectedRunes  atomic.Uint64
	injectFailures atomic.Uint64
	divergences    atomic.Uint64

	sessionCounter   metric.Int64Counter
	transcribeCount  metric.Int64Counter
	transcribeTime   metric.Float64Histogram
	skipCounter      metric.Int64Counter
	fragmentCounter  metric.Int64Counter
	divergeCounter   metric.Int64Counter
	sessionDurations metric.Float64Histogram
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	Sessions       uint64 `json:"sessions"`
	Transcriptions uint64 `json:"transcriptions"`
	Failures       uint64 `json:"failures"`
	SkippedTicks   uint64 `json:"skippedTicks"`
	Fragments      uint64 `json:"fragments"`
	InjectedRunes  uint64 `json:"injectedRunes"`
	InjectFailures uint64 `json:"injectFailures"`
	Divergences    uint64 `json:"divergences"`
}

// NewRecorder constructs a Recorder using the global meter provider.
func NewRecorder(logger *slog.Logger) *Recorder {
	return NewRecorderWithMeter(logger, otel.Meter(meterName))
}

// NewRecorderWithMeter constructs a Recorder reporting to meter.
func NewRecorderWithMeter(logger *slog.Logger, meter metric.Meter) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{log: logger.With("component", "telemetry")}

	var err error
	if r.sessionCounter, err = meter.Int64Counter("dictate.sessions",
		metric.WithDescription("Dictation sessions started")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.sessions", "error", err)
	}
	if r.transcribeCount, err = meter.Int64Counter("dictate.transcriptions",
		metric.WithDescription("Transcription calls")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.transcriptions", "error", err)
	}
	if r.transcribeTime, err = meter.Float64Histogram("dictate.transcription.duration",
		metric.WithDescription("Transcription latency"), metric.WithUnit("s")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.transcription.duration", "error", err)
	}
	if r.skipCounter, err = meter.Int64Counter("dictate.ticks.skipped",
		metric.WithDescription("Streaming ticks skipped")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.ticks.skipped", "error", err)
	}
	if r.fragmentCounter, err = meter.Int64Counter("dictate.fragments",
		metric.WithDescription("Text fragments injected")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.fragments", "error", err)
	}
	if r.divergeCounter, err = meter.Int64Counter("dictate.divergences",
		metric.WithDescription("Transcripts contradicting typed text")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.divergences", "error", err)
	}
	if r.sessionDurations, err = meter.Float64Histogram("dictate.session.duration",
		metric.WithDescription("Recording length"), metric.WithUnit("s")); err != nil {
		r.log.Warn("create instrument", "name", "dictate.session.duration", "error", err)
	}
	return r
}

// Snapshot returns the totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		Sessions:       r.sessions.Load(),
		Transcriptions: r.transcriptions.Load(),
		Failures:       r.failures.Load(),
		SkippedTicks:   r.skippedTicks.Load(),
		Fragments:      r.fragments.Load(),
		InjectedRunes:  r.injectedRunes.Load(),
		InjectFailures: r.injectFailures.Load(),
		Divergences:    r.divergences.Load(),
	}
}

// SessionStarted counts a new recording.
func (r *Recorder) SessionStarted(mode string) {
	if r == nil {
		return
	}
	r.sessions.Add(1)
	if r.sessionCounter != nil {
		r.sessionCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// SessionEnded records the length of a finished recording.
func (r *Recorder) SessionEnded(mode string, d time.Duration) {
	if r == nil {
		return
	}
	if r.sessionDurations != nil {
		r.sessionDurations.Record(context.Background(), d.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
	}
	r.log.Debug("session ended", "mode", mode, "duration", d)
}

// Transcribed records one transcription call.
func (r *Recorder) Transcribed(final bool, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.transcriptions.Add(1)
	if err != nil {
		r.failures.Add(1)
	}
	attrs := metric.WithAttributes(attribute.Bool("final", final), attribute.Bool("error", err != nil))
	if r.transcribeCount != nil {
		r.transcribeCount.Add(context.Background(), 1, attrs)
	}
	if r.transcribeTime != nil {
		r.transcribeTime.Record(context.Background(), d.Seconds(), attrs)
	}
}

// TickSkipped counts a streaming tick that did not start a transcription.
func (r *Recorder) TickSkipped(reason string) {
	if r == nil {
		return
	}
	r.skippedTicks.Add(1)
	if r.skipCounter != nil {
		r.skipCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// Injected records one fragment delivery.
func (r *Recorder) Injected(runes int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.injectFailures.Add(1)
		return
	}
	r.fragments.Add(1)
	r.injectedRunes.Add(uint64(runes))
	if r.fragmentCounter != nil {
		r.fragmentCounter.Add(context.Background(), 1)
	}
}

// Diverged counts a transcript that revised already typed words.
func (r *Recorder) Diverged() {
	if r == nil {
		return
	}
	r.divergences.Add(1)
	if r.divergeCounter != nil {
		r.divergeCounter.Add(context.Background(), 1)
	}
}
