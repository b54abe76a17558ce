// Package dictation runs the record, transcribe, reconcile and type pipeline.
//
// A single goroutine owns all pipeline state. Hotkey toggles, streaming ticks
// and transcription results arrive on channels and are handled one at a time,
// so state transitions do not depend on timing between those sources.
package dictation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"go.aimuz.me/dictate/audiocapture"
	"go.aimuz.me/dictate/internal/types"
	"go.aimuz.me/dictate/reconcile"
	"go.aimuz.me/dictate/stt"
	"go.aimuz.me/dictate/telemetry"
)

// Capturer records audio for one session at a time.
type Capturer interface {
	Start() error
	Snapshot() (audiocapture.Snapshot, error)
	Stop() (audiocapture.Snapshot, error)
}

// Engine turns audio into text.
type Engine interface {
	IsReady() bool
	Transcribe(ctx context.Context, audio []float32, language string) (*stt.TranscribeResult, error)
}

// Injector types text at the input focus, in call order.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Publisher receives pipeline events for the UI.
type Publisher interface {
	PublishStatus(status types.Status)
	PublishError(message string)
	PublishFragment(text string)
}

// LanguagePinner decides the language of a transcript when the user chose
// automatic detection.
type LanguagePinner interface {
	Pin(text string) (code string, ok bool)
}

// SpeechDetector decides whether audio is worth transcribing.
type SpeechDetector interface {
	HasSpeech(samples []float32, sampleRate int) bool
}

// HistoryRecorder stores finished sessions.
type HistoryRecorder interface {
	Put(sum types.SessionSummary) error
}

// Ticker delivers streaming ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Config tunes the pipeline.
type Config struct {
	Interval        time.Duration // streaming re-transcription period
	MinAudio        time.Duration // recordings shorter than this are not transcribed
	Stabilize       bool          // stream only words confirmed by two passes
	MaxTickFailures int           // consecutive streaming failures before giving up

	// NewTicker creates the streaming ticker. Nil uses time.NewTicker.
	NewTicker func(d time.Duration) Ticker
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Interval:        3 * time.Second,
		MinAudio:        time.Second,
		Stabilize:       true,
		MaxTickFailures: 3,
	}
}

// Deps are the collaborators of a Service. Language, Speech, History and
// Metrics are optional.
type Deps struct {
	Capture   Capturer
	Engine    Engine
	Injector  Injector
	Publisher Publisher
	Settings  func() types.Settings
	Language  LanguagePinner
	Speech    SpeechDetector
	History   HistoryRecorder
	Metrics   *telemetry.Recorder
}

// Service is the dictation state machine.
type Service struct {
	cfg  Config
	deps Deps

	toggles chan struct{}
	results chan jobResult

	mu     sync.Mutex // guards status, engine
	status types.Status
	engine Engine

	// Owned by the Run goroutine.
	sess     *session
	ticker   Ticker
	tickC    <-chan time.Time
	inflight bool
}

// session is one recording, from Toggle to the final flush.
type session struct {
	id        string
	settings  types.Settings
	language  string // pinned language, "" until known in auto mode
	engine    Engine
	started   time.Time
	recon     *reconcile.Reconciler
	fragments int
	seq       int
	heard     int // samples covered by the last streaming transcription

	stopping      bool // capture stopped, final pass pending
	finalLaunched bool
	final         audiocapture.Snapshot
	tickFailures  int
}

type job struct {
	sessionID string
	seq       int
	final     bool
	audio     []float32
	language  string
	engine    Engine
}

type jobResult struct {
	job
	text     string
	detected string // language reported by the engine
	err      error
	took     time.Duration
}

// New creates a Service. Call Run to start processing.
func New(cfg Config, deps Deps) *Service {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MinAudio < 0 {
		cfg.MinAudio = 0
	}
	if cfg.MaxTickFailures <= 0 {
		cfg.MaxTickFailures = def.MaxTickFailures
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = func(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Settings == nil {
		deps.Settings = func() types.Settings {
			return types.Settings{Mode: types.ModeStreaming, Language: types.LanguageAuto}
		}
	}
	return &Service{
		cfg:     cfg,
		deps:    deps,
		toggles: make(chan struct{}, 8),
		results: make(chan jobResult, 2),
		status:  types.StatusIdle,
		engine:  deps.Engine,
	}
}

// Toggle requests a start or stop. It never blocks.
func (s *Service) Toggle() {
	select {
	case s.toggles <- struct{}{}:
	default:
		slog.Warn("toggle dropped, pipeline busy")
	}
}

// Status returns the current status.
func (s *Service) Status() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetEngine replaces the engine. The running session keeps its engine.
func (s *Service) SetEngine(e Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// EngineReady reports whether the engine can transcribe.
func (s *Service) EngineReady() bool {
	s.mu.Lock()
	e := s.engine
	s.mu.Unlock()
	return e != nil && e.IsReady()
}

// Run processes events until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.deps.Publisher.PublishStatus(s.Status())
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-s.toggles:
			s.handleToggle(ctx)
		case <-s.tickC:
			s.handleTick(ctx)
		case res := <-s.results:
			s.handleResult(ctx, res)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Transitions
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) handleToggle(ctx context.Context) {
	switch {
	case s.sess == nil:
		s.startSession()
	case s.sess.stopping:
		slog.Debug("toggle ignored, finishing session", "session", s.sess.id)
	default:
		s.stopSession(ctx)
	}
}

func (s *Service) startSession() {
	settings := s.deps.Settings()

	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine == nil || !engine.IsReady() {
		s.report(fmt.Errorf("%w: %w", ErrEngine, stt.ErrNotReady))
		return
	}

	if err := s.deps.Capture.Start(); err != nil {
		s.report(fmt.Errorf("%w: %w", ErrDevice, err))
		return
	}

	sess := &session{
		id:       uuid.NewString(),
		settings: settings,
		engine:   engine,
		started:  time.Now(),
		recon:    reconcile.New(reconcile.Options{Stabilize: s.cfg.Stabilize}),
	}
	if !settings.IsAutoLanguage() {
		sess.language = settings.Language
	}
	s.sess = sess
	s.deps.Metrics.SessionStarted(string(settings.Mode))
	slog.Info("recording started", "session", sess.id, "mode", settings.Mode, "language", settings.Language)

	if settings.Mode == types.ModeStreaming {
		s.ticker = s.cfg.NewTicker(s.cfg.Interval)
		s.tickC = s.ticker.C()
	}
	s.setStatus(types.StatusRecording)
}

func (s *Service) stopSession(ctx context.Context) {
	sess := s.sess
	sess.stopping = true
	s.stopTicker()

	snap, err := s.deps.Capture.Stop()
	if err != nil {
		if snap.Len() == 0 {
			s.abort(fmt.Errorf("%w: %w", ErrDevice, err))
			return
		}
		slog.Warn("stop capture", "session", sess.id, "error", err)
	}
	sess.final = snap
	slog.Info("recording stopped", "session", sess.id, "duration", snap.Duration())

	if snap.Duration() < s.cfg.MinAudio {
		slog.Info("recording too short, nothing to transcribe", "session", sess.id, "duration", snap.Duration())
		s.endSession(nil)
		return
	}
	if s.deps.Speech != nil && sess.recon.Emitted() == "" &&
		!s.deps.Speech.HasSpeech(snap.Samples(), snap.SampleRate()) {
		slog.Info("no speech in recording", "session", sess.id)
		s.endSession(nil)
		return
	}

	s.setStatus(types.StatusTranscribing)
	s.maybeLaunchFinal(ctx)
}

func (s *Service) handleTick(ctx context.Context) {
	sess := s.sess
	if sess == nil || sess.stopping {
		return
	}
	if s.inflight {
		s.deps.Metrics.TickSkipped("busy")
		slog.Debug("tick skipped, transcription in flight", "session", sess.id)
		return
	}

	snap, err := s.deps.Capture.Snapshot()
	if err != nil {
		s.abort(fmt.Errorf("%w: %w", ErrDevice, err))
		return
	}
	if snap.Duration() < s.cfg.MinAudio {
		s.deps.Metrics.TickSkipped("short")
		return
	}
	if s.deps.Speech != nil && snap.Len() > sess.heard &&
		!s.deps.Speech.HasSpeech(snap.Samples()[sess.heard:], snap.SampleRate()) {
		s.deps.Metrics.TickSkipped("silent")
		return
	}
	sess.heard = snap.Len()
	s.launch(ctx, sess, snap, false)
}

func (s *Service) handleResult(ctx context.Context, res jobResult) {
	s.inflight = false
	s.deps.Metrics.Transcribed(res.final, res.took, res.err)

	sess := s.sess
	if sess == nil || res.sessionID != sess.id {
		slog.Debug("stale transcription discarded", "session", res.sessionID, "seq", res.seq)
		s.maybeLaunchFinal(ctx)
		return
	}

	if res.final {
		s.finish(ctx, sess, res)
		return
	}

	if res.err != nil {
		sess.tickFailures++
		slog.Warn("streaming transcription", "session", sess.id, "seq", res.seq, "error", res.err)
		err := fmt.Errorf("%w: %w", ErrEngine, res.err)
		if !sess.stopping && sess.tickFailures >= s.cfg.MaxTickFailures {
			s.abort(err)
			return
		}
		s.report(err)
	} else {
		sess.tickFailures = 0
		text := reconcile.Clean(res.text)
		s.pinLanguage(sess, text)
		r := sess.recon.Next(text)
		if r.Diverged {
			s.deps.Metrics.Diverged()
			slog.Debug("transcript revised typed text", "session", sess.id, "typed", sess.recon.Emitted(), "transcript", text)
		}
		s.inject(ctx, sess, r.Fragment)
	}

	s.maybeLaunchFinal(ctx)
}

// maybeLaunchFinal starts the final pass once capture has stopped and no
// transcription is outstanding, so no earlier result can land after it.
func (s *Service) maybeLaunchFinal(ctx context.Context) {
	sess := s.sess
	if sess == nil || !sess.stopping || sess.finalLaunched || s.inflight {
		return
	}
	sess.finalLaunched = true
	s.launch(ctx, sess, sess.final, true)
}

func (s *Service) finish(ctx context.Context, sess *session, res jobResult) {
	if res.err != nil {
		s.abort(fmt.Errorf("%w: %w", ErrEngine, res.err))
		return
	}

	text := reconcile.Clean(res.text)
	s.pinLanguage(sess, text)
	if sess.language == "" {
		sess.language = res.detected
	}
	wasDiverged := sess.recon.Diverged()
	r := sess.recon.Final(text)
	if r.Diverged && !wasDiverged {
		s.deps.Metrics.Diverged()
	}
	s.inject(ctx, sess, r.Fragment)
	s.endSession(nil)
}

// abort ends the session after a failure and reports it.
func (s *Service) abort(err error) {
	sess := s.sess
	if sess != nil && !sess.stopping {
		sess.stopping = true
		s.stopTicker()
		if _, stopErr := s.deps.Capture.Stop(); stopErr != nil {
			slog.Warn("stop capture", "session", sess.id, "error", stopErr)
		}
	}
	s.report(err)
	s.endSession(err)
}

func (s *Service) endSession(err error) {
	sess := s.sess
	if sess == nil {
		return
	}
	s.stopTicker()
	s.sess = nil

	ended := time.Now()
	s.deps.Metrics.SessionEnded(string(sess.settings.Mode), ended.Sub(sess.started))

	if s.deps.History != nil {
		sum := types.SessionSummary{
			ID:        sess.id,
			Mode:      sess.settings.Mode,
			Language:  sess.language,
			Text:      sess.recon.Emitted(),
			Fragments: sess.fragments,
			StartedAt: sess.started.UnixMilli(),
			EndedAt:   ended.UnixMilli(),
			Diverged:  sess.recon.Diverged(),
		}
		if err != nil {
			sum.Error = err.Error()
		}
		if herr := s.deps.History.Put(sum); herr != nil {
			slog.Warn("save history", "session", sess.id, "error", herr)
		}
	}

	slog.Info("session finished", "session", sess.id, "fragments", sess.fragments, "error", err)
	s.setStatus(types.StatusIdle)
}

func (s *Service) shutdown() {
	if s.sess == nil {
		return
	}
	if !s.sess.stopping {
		s.sess.stopping = true
		if _, err := s.deps.Capture.Stop(); err != nil {
			slog.Warn("stop capture", "error", err)
		}
	}
	s.endSession(context.Canceled)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) launch(ctx context.Context, sess *session, snap audiocapture.Snapshot, final bool) {
	sess.seq++
	lang := sess.language
	if lang == "" {
		lang = types.LanguageAuto
	}
	j := job{
		sessionID: sess.id,
		seq:       sess.seq,
		final:     final,
		audio:     snap.Samples(),
		language:  lang,
		engine:    sess.engine,
	}
	s.inflight = true
	go s.transcribe(ctx, j)
}

// transcribe runs outside the loop. The call is not interrupted when the
// session ends; the loop decides whether to use the result.
func (s *Service) transcribe(ctx context.Context, j job) {
	start := time.Now()
	res, err := j.engine.Transcribe(ctx, j.audio, j.language)
	out := jobResult{job: j, err: err, took: time.Since(start)}
	if res != nil {
		out.text = res.Text
		out.detected = res.Language
	}
	select {
	case s.results <- out:
	case <-ctx.Done():
	}
}

func (s *Service) inject(ctx context.Context, sess *session, fragment string) {
	if fragment == "" {
		return
	}
	err := s.deps.Injector.Inject(ctx, fragment)
	s.deps.Metrics.Injected(utf8.RuneCountInString(fragment), err)
	if err != nil {
		s.report(fmt.Errorf("%w: %w", ErrInjection, err))
		return
	}
	sess.fragments++
	s.deps.Publisher.PublishFragment(fragment)
}

func (s *Service) pinLanguage(sess *session, text string) {
	if sess.language != "" || s.deps.Language == nil || text == "" {
		return
	}
	if code, ok := s.deps.Language.Pin(text); ok {
		sess.language = code
		slog.Info("language detected", "session", sess.id, "language", code)
	}
}

func (s *Service) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker = nil
	s.tickC = nil
}

func (s *Service) setStatus(st types.Status) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed {
		s.deps.Publisher.PublishStatus(st)
	}
}

func (s *Service) report(err error) {
	slog.Error("dictation", "error", err)
	s.deps.Publisher.PublishError(err.Error())
}

type nopPublisher struct{}

func (nopPublisher) PublishStatus(types.Status) {}
func (nopPublisher) PublishError(string)        {}
func (nopPublisher) PublishFragment(string)     {}
