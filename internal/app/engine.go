package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.aimuz.me/dictate/config"
	"go.aimuz.me/dictate/inject"
	"go.aimuz.me/dictate/internal/types"
	"go.aimuz.me/dictate/stt"
)

// engineConfig maps the settings file onto an stt.Config for provider.
func engineConfig(cfg config.EngineConfig, provider string) stt.Config {
	return stt.Config{
		Provider:   provider,
		ModelPath:  cfg.ModelPath,
		BinaryPath: cfg.BinaryPath,
		ExtraArgs:  cfg.ExtraArgs,
		Threads:    cfg.Threads,
		APIKey:     cfg.APIKey,
		APIModel:   cfg.APIModel,
		BaseURL:    cfg.BaseURL,
	}
}

// buildRegistry registers every engine that can be constructed from cfg.
// The in-process engine loads its model on construction, so it is only
// created when selected.
func buildRegistry(cfg config.EngineConfig) *stt.Registry {
	reg := stt.NewRegistry()
	for _, name := range []string{stt.ProviderLocal, stt.ProviderAPI, stt.ProviderNative} {
		if name == stt.ProviderNative && cfg.Provider != stt.ProviderNative {
			continue
		}
		p, err := stt.New(engineConfig(cfg, name))
		if err != nil {
			slog.Warn("init engine", "provider", name, "error", err)
			continue
		}
		reg.Register(p)
	}
	slog.Info("engines initialized", "count", len(reg.List()))
	return reg
}

// modelStatus describes whether p can transcribe.
func modelStatus(p stt.Provider, cfg config.EngineConfig) types.ModelStatus {
	st := types.ModelStatus{Provider: cfg.Provider}
	if p == nil {
		st.Message = fmt.Sprintf("engine %q is not available", cfg.Provider)
		return st
	}
	st.Ready = p.IsReady()

	switch e := p.(type) {
	case *stt.WhisperLocal:
		st.Path = e.ModelPath()
		if st.Ready {
			break
		}
		if e.BinPath() == "" {
			st.Message = "whisper.cpp binary not found, install whisper-cli or set engine.binary_path"
		} else if _, err := os.Stat(e.ModelPath()); errors.Is(err, os.ErrNotExist) {
			st.Message = "model file missing: " + e.ModelPath()
		}
	case *stt.WhisperAPI:
		if !st.Ready {
			st.Message = "no API key, set OPENAI_API_KEY or engine.api_key"
		}
	}
	if !st.Ready && st.Message == "" {
		st.Message = fmt.Sprintf("engine %q is not ready", p.Name())
	}
	return st
}

// switchInjector forwards to an injector that can be replaced at runtime.
type switchInjector struct {
	mu  sync.RWMutex
	cur inject.Injector
}

func (s *switchInjector) Inject(ctx context.Context, text string) error {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	if cur == nil {
		return errors.New("no injector configured")
	}
	return cur.Inject(ctx, text)
}

func (s *switchInjector) set(i inject.Injector) {
	s.mu.Lock()
	s.cur = i
	s.mu.Unlock()
}

// CheckEngine builds the engine selected by cfg and reports whether it can
// transcribe.
func CheckEngine(cfg config.EngineConfig) types.ModelStatus {
	reg := buildRegistry(cfg)
	defer reg.Close()

	p, err := reg.Get(cfg.Provider)
	if err != nil {
		p = nil
	}
	return modelStatus(p, cfg)
}
