package stt

import (
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderLocal  = "whisper-local"
	ProviderNative = "whisper-native"
	ProviderAPI    = "whisper-api"
)

// Config selects and configures a provider.
// Zero values are replaced with sensible defaults.
type Config struct {
	Provider   string // Default: whisper-local
	ModelPath  string
	BinaryPath string
	ExtraArgs  string
	Threads    int

	APIKey   string
	APIModel string
	BaseURL  string
}

// New creates the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderLocal:
		return NewWhisperLocal(WhisperLocalConfig{
			ModelPath: cfg.ModelPath,
			BinPath:   cfg.BinaryPath,
			ExtraArgs: cfg.ExtraArgs,
			Threads:   cfg.Threads,
		})
	case ProviderNative:
		path := cfg.ModelPath
		if path == "" {
			p, err := DefaultModelPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewWhisperNative(path, cfg.Threads)
	case ProviderAPI:
		return NewWhisperAPI(WhisperAPIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.APIModel,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, cfg.Provider)
	}
}
