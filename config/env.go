package config

import (
	"strconv"
	"strings"

	"go.aimuz.me/dictate/internal/types"
)

// applyEnv overlays DICTATE_* environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("DICTATE_MODE"); ok {
		if m, err := types.ParseMode(v); err == nil {
			cfg.Mode = m
		}
	}
	overrideString(&cfg.Language, lookup, "DICTATE_LANGUAGE")
	overrideString(&cfg.Hotkey.Key, lookup, "DICTATE_HOTKEY")
	overrideInt(&cfg.Hotkey.WindowMS, lookup, "DICTATE_HOTKEY_WINDOW_MS")
	overrideString(&cfg.Engine.Provider, lookup, "DICTATE_ENGINE")
	overrideString(&cfg.Engine.ModelPath, lookup, "DICTATE_MODEL_PATH")
	overrideString(&cfg.Engine.BinaryPath, lookup, "DICTATE_WHISPER_BIN")
	overrideString(&cfg.Engine.APIKey, lookup, "OPENAI_API_KEY")
	overrideString(&cfg.Engine.APIKey, lookup, "DICTATE_OPENAI_API_KEY")
	overrideString(&cfg.Inject.Method, lookup, "DICTATE_INJECT")
	overrideInt(&cfg.Streaming.IntervalMS, lookup, "DICTATE_STREAM_INTERVAL_MS")
	overrideBool(&cfg.Streaming.Stabilize, lookup, "DICTATE_STABILIZE")
	overrideBool(&cfg.History.Enabled, lookup, "DICTATE_HISTORY")
	overrideBool(&cfg.Metrics.Export, lookup, "DICTATE_METRICS")
	overrideString(&cfg.LogLevel, lookup, "DICTATE_LOG_LEVEL")
}

func overrideString(target *string, lookup func(string) (string, bool), key string) {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		*target = strings.TrimSpace(v)
	}
}

func overrideInt(target *int, lookup func(string) (string, bool), key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

func overrideBool(target *bool, lookup func(string) (string, bool), key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*target = b
		}
	}
}
