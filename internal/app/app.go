// Package app wires the dictation pipeline to the desktop: the global hotkey,
// the tray, notifications and the Wails bindings.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/dictate/audiocapture"
	"go.aimuz.me/dictate/config"
	"go.aimuz.me/dictate/dictation"
	"go.aimuz.me/dictate/history"
	"go.aimuz.me/dictate/hotkey"
	"go.aimuz.me/dictate/inject"
	"go.aimuz.me/dictate/internal/types"
	"go.aimuz.me/dictate/langdetect"
	"go.aimuz.me/dictate/stt"
	"go.aimuz.me/dictate/telemetry"
)

const notifyTitle = "Dictate"

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; the pipeline lives in dictation.
type Service struct {
	mu       sync.RWMutex // guards cfg, registry, retired, engine
	cfg      *config.Config
	registry *stt.Registry
	retired  []*stt.Registry // replaced engines, closed on shutdown
	engine   stt.Provider

	injector  switchInjector
	capture   *audiocapture.Capture
	dictation *dictation.Service
	runner    Runner
	hotkey    *hotkey.HotkeyManager
	history   *history.Store
	metrics   *telemetry.Recorder

	// UI references, nil when running headless
	app  *application.App
	tray *tray

	// Command line settings for this run, reapplied over every reload of
	// the config file until the user changes settings.
	overrides types.Settings

	notify   func(title, message string) error
	shutdown sync.Once
	version  string
}

// New creates a Service. Call Start to build the pipeline.
func New(cfg *config.Config, version string) *Service {
	return &Service{
		cfg:     cfg,
		version: version,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Start builds the pipeline, runs it until ctx is done and starts listening
// for the hotkey. A missing model or hotkey permission is reported but does
// not fail Start.
func (s *Service) Start(ctx context.Context) error {
	cfg := s.config()

	s.metrics = telemetry.NewRecorder(slog.Default())
	s.setupEngine(cfg.Engine)
	if err := s.setupInjector(cfg.Inject.Method); err != nil {
		return err
	}
	s.setupHistory(cfg)
	s.capture = audiocapture.New(audiocapture.DefaultConfig(), audiocapture.NewPortAudioDevice())

	deps := dictation.Deps{
		Capture:   s.capture,
		Engine:    s.currentEngine(),
		Injector:  &s.injector,
		Publisher: s,
		Settings:  s.settings,
		Language:  langdetect.NewDetector(),
		Speech:    audiocapture.NewActivityDetector(cfg.Streaming.SilenceThreshold),
		Metrics:   s.metrics,
	}
	if s.history != nil {
		deps.History = s.history
	}
	s.dictation = dictation.New(dictation.Config{
		Interval:  cfg.StreamInterval(),
		MinAudio:  cfg.MinAudio(),
		Stabilize: cfg.Streaming.Stabilize,
	}, deps)

	if err := s.runner.Start(ctx, s.dictation); err != nil {
		return err
	}

	s.setupHotkey(cfg)

	if st := s.CheckModel(); !st.Ready {
		slog.Warn("speech engine not ready", "provider", st.Provider, "message", st.Message)
		s.notifyUser("Speech model not ready", st.Message)
	}
	return nil
}

// Shutdown stops the pipeline and releases resources. It is safe to call
// more than once.
func (s *Service) Shutdown() {
	s.shutdown.Do(func() {
		if s.hotkey != nil {
			s.hotkey.Stop()
		}
		s.runner.Stop()

		s.mu.Lock()
		regs := append(s.retired, s.registry)
		s.registry, s.retired, s.engine = nil, nil, nil
		s.mu.Unlock()
		for _, reg := range regs {
			if reg == nil {
				continue
			}
			if err := reg.Close(); err != nil {
				slog.Error("close engine", "error", err)
			}
		}

		if s.history != nil {
			if err := s.history.Close(); err != nil {
				slog.Error("close history", "error", err)
			}
		}
	})
}

func (s *Service) setupEngine(cfg config.EngineConfig) {
	reg := buildRegistry(cfg)
	p, err := reg.Get(cfg.Provider)
	if err != nil {
		slog.Warn("select engine", "provider", cfg.Provider, "error", err)
	}

	s.mu.Lock()
	if s.registry != nil {
		s.retired = append(s.retired, s.registry)
	}
	s.registry = reg
	s.engine = p
	s.mu.Unlock()

	if s.dictation != nil {
		s.dictation.SetEngine(p)
	}
}

func (s *Service) setupInjector(method string) error {
	inj, err := inject.New(method)
	if err != nil {
		return fmt.Errorf("create injector: %w", err)
	}
	s.injector.set(inj)
	return nil
}

func (s *Service) setupHistory(cfg *config.Config) {
	if !cfg.History.Enabled {
		return
	}
	path, err := HistoryPath()
	if err != nil {
		slog.Error("get config dir for history", "error", err)
		return
	}

	store, err := history.Open(path, cfg.Retention())
	if err != nil {
		slog.Error("open history", "error", err)
		return
	}
	s.history = store
	slog.Info("history initialized", "path", path)
}

// HistoryPath returns the directory of the session history store.
func HistoryPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

func (s *Service) setupHotkey(cfg *config.Config) {
	s.hotkey = hotkey.NewHotkeyManager(
		hotkey.Config{Key: cfg.Hotkey.Key, Window: cfg.HotkeyWindow()},
		nil,
		s.ToggleRecording,
	)

	s.hotkey.SetStatusCallback(func(active bool) {
		s.emit(EventHotkey, active)
		if active {
			slog.Info("hotkey listening", "key", cfg.Hotkey.Key, "window", cfg.HotkeyWindow())
		} else {
			slog.Warn("hotkey listener stopped")
		}
	})

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
		s.notifyUser("Hotkey unavailable", err.Error())
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

func (s *Service) notifyUser(title, message string) {
	if s.notify == nil || message == "" {
		return
	}
	if err := s.notify(notifyTitle+": "+title, message); err != nil {
		slog.Debug("desktop notification", "error", err)
	}
}

func (s *Service) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetRunOverrides keeps mode and language given for this run in effect when
// other settings are saved. Empty fields are not overridden.
func (s *Service) SetRunOverrides(st types.Settings) {
	s.mu.Lock()
	s.overrides = st
	s.mu.Unlock()
}

func (s *Service) setConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides.Mode != "" {
		cfg.Mode = s.overrides.Mode
	}
	if s.overrides.Language != "" {
		cfg.Language = s.overrides.Language
	}
	s.cfg = cfg
}

func (s *Service) settings() types.Settings {
	return s.config().Settings()
}

func (s *Service) currentEngine() stt.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline events
// ─────────────────────────────────────────────────────────────────────────────

// PublishStatus forwards a status transition to the UI and the tray.
func (s *Service) PublishStatus(st types.Status) {
	s.emit(EventStatus, st)
	if s.tray != nil {
		s.tray.setStatus(st)
	}
}

// PublishError shows a pipeline failure to the user.
func (s *Service) PublishError(message string) {
	s.emit(EventError, ErrorEvent{Message: message, Timestamp: time.Now().UnixMilli()})
	s.notifyUser("Error", message)
}

// PublishFragment reports text that was typed.
func (s *Service) PublishFragment(text string) {
	s.emit(EventFragment, FragmentEvent{Text: text, Timestamp: time.Now().UnixMilli()})
}

// ─────────────────────────────────────────────────────────────────────────────
// Dictation
// ─────────────────────────────────────────────────────────────────────────────

// ToggleRecording starts or stops a dictation session, like the hotkey.
func (s *Service) ToggleRecording() {
	if s.dictation == nil {
		return
	}
	s.dictation.Toggle()
}

// GetStatus returns the pipeline status.
func (s *Service) GetStatus() types.Status {
	if s.dictation == nil {
		return types.StatusIdle
	}
	return s.dictation.Status()
}

// CheckModel reports whether the selected engine can transcribe.
func (s *Service) CheckModel() types.ModelStatus {
	s.mu.RLock()
	p, cfg := s.engine, s.cfg.Engine
	s.mu.RUnlock()
	return modelStatus(p, cfg)
}

// GetSTTProviders returns the engines that could be selected.
func (s *Service) GetSTTProviders() []types.STTProviderInfo {
	s.mu.RLock()
	reg := s.registry
	s.mu.RUnlock()
	if reg == nil {
		return nil
	}

	providers := reg.List()
	result := make([]types.STTProviderInfo, len(providers))
	for i, p := range providers {
		result[i] = types.STTProviderInfo{
			Name:        p.Name(),
			DisplayName: p.DisplayName(),
			IsLocal:     p.IsLocal(),
			IsReady:     p.IsReady(),
		}
	}
	return result
}

// GetHistory returns up to limit recent sessions, newest first.
func (s *Service) GetHistory(limit int) ([]types.SessionSummary, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(limit)
}

// GetStats returns pipeline counters since start.
func (s *Service) GetStats() telemetry.Snapshot {
	return s.metrics.Snapshot()
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// GetSettings returns the settings the next session will use.
func (s *Service) GetSettings() types.Settings {
	return s.settings()
}

// UpdateSettings stores new session settings. A running session keeps the
// settings it started with. Command line overrides are dropped.
func (s *Service) UpdateSettings(st types.Settings) error {
	mode, err := types.ParseMode(string(st.Mode))
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	lang := strings.ToLower(strings.TrimSpace(st.Language))
	if lang == "" {
		lang = types.LanguageAuto
	}

	cfg, err := config.Update(func(c *config.Config) {
		c.Mode = mode
		c.Language = lang
	})
	if err != nil {
		return err
	}
	s.SetRunOverrides(types.Settings{})
	s.setConfig(cfg)
	if s.tray != nil {
		s.tray.setMode(cfg.Mode)
	}
	slog.Info("settings updated", "mode", cfg.Mode, "language", cfg.Language)
	return nil
}

// SetEngine selects the speech engine for the next session.
func (s *Service) SetEngine(provider string) error {
	cfg, err := config.Update(func(c *config.Config) {
		c.Engine.Provider = provider
	})
	if err != nil {
		return err
	}
	s.setConfig(cfg)
	s.setupEngine(cfg.Engine)
	if st := s.CheckModel(); !st.Ready {
		s.notifyUser("Speech model not ready", st.Message)
	}
	return nil
}

// SetInjectMethod selects how text reaches the focused field.
func (s *Service) SetInjectMethod(method string) error {
	cfg, err := config.Update(func(c *config.Config) {
		c.Inject.Method = method
	})
	if err != nil {
		return err
	}
	s.setConfig(cfg)
	return s.setupInjector(cfg.Inject.Method)
}
