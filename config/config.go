// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.aimuz.me/dictate/hotkey"
	"go.aimuz.me/dictate/internal/types"
)

const (
	appName        = "dictate"
	oldAppName     = "voice-to-text"
	configFileName = "config.json"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config represents the application configuration.
type Config struct {
	// Session settings, read when a recording starts.
	Mode     types.Mode `json:"mode"`
	Language string     `json:"language"`

	Hotkey    HotkeyConfig    `json:"hotkey"`
	Engine    EngineConfig    `json:"engine"`
	Inject    InjectConfig    `json:"inject"`
	Streaming StreamingConfig `json:"streaming"`
	History   HistoryConfig   `json:"history"`
	Metrics   MetricsConfig   `json:"metrics"`
	LogLevel  string          `json:"log_level,omitempty"`

	// Legacy flat field (deprecated, moved to Engine.ModelPath on load)
	ModelPath string `json:"model_path,omitempty"`
}

// HotkeyConfig selects the double-press key.
type HotkeyConfig struct {
	Key      string `json:"key"`
	WindowMS int    `json:"window_ms"`
}

// EngineConfig selects the speech engine.
type EngineConfig struct {
	Provider   string `json:"provider"` // whisper-local, whisper-native, whisper-api
	ModelPath  string `json:"model_path,omitempty"`
	BinaryPath string `json:"binary_path,omitempty"`
	ExtraArgs  string `json:"extra_args,omitempty"`
	Threads    int    `json:"threads,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	APIModel   string `json:"api_model,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
}

// InjectConfig selects how text reaches the focused field.
type InjectConfig struct {
	Method string `json:"method"` // paste or type
}

// StreamingConfig tunes streaming mode.
type StreamingConfig struct {
	IntervalMS int  `json:"interval_ms"`
	MinAudioMS int  `json:"min_audio_ms"`
	Stabilize  bool `json:"stabilize"` // type only words confirmed by two passes

	// Frame level below which audio counts as silence. Silent audio is not
	// sent to the engine. Zero disables the check.
	SilenceThreshold float64 `json:"silence_threshold"`
}

// HistoryConfig controls the session history store.
type HistoryConfig struct {
	Enabled       bool `json:"enabled"`
	RetentionDays int  `json:"retention_days"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	Export     bool `json:"export"` // write metrics to stderr
	IntervalMS int  `json:"interval_ms,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:     types.ModeStreaming,
		Language: "pl",
		Hotkey:   HotkeyConfig{Key: "alt", WindowMS: 500},
		Engine:   EngineConfig{Provider: "whisper-local", APIModel: "whisper-1"},
		Inject:   InjectConfig{Method: "paste"},
		Streaming: StreamingConfig{
			IntervalMS: 3000,
			MinAudioMS: 1000,
			Stabilize:  true,

			SilenceThreshold: 0.005,
		},
		History: HistoryConfig{Enabled: true, RetentionDays: 30},
	}
}

// Settings returns the per-session settings.
func (c *Config) Settings() types.Settings {
	return types.Settings{Mode: c.Mode, Language: c.Language}
}

// HotkeyWindow returns the double-press window.
func (c *Config) HotkeyWindow() time.Duration {
	return time.Duration(c.Hotkey.WindowMS) * time.Millisecond
}

// StreamInterval returns the streaming re-transcription period.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.Streaming.IntervalMS) * time.Millisecond
}

// MinAudio returns the shortest recording worth transcribing.
func (c *Config) MinAudio() time.Duration {
	return time.Duration(c.Streaming.MinAudioMS) * time.Millisecond
}

// MetricsInterval returns the export period, zero for the default.
func (c *Config) MetricsInterval() time.Duration {
	return time.Duration(c.Metrics.IntervalMS) * time.Millisecond
}

// Retention returns how long history entries are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

var languageCode = regexp.MustCompile(`^[a-z]{2,3}$`)

// Validate checks the session and pipeline settings.
func (c *Config) Validate() error {
	if _, err := types.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !(c.Settings().IsAutoLanguage() || languageCode.MatchString(c.Language)) {
		return fmt.Errorf("%w: language %q", ErrInvalid, c.Language)
	}
	if _, err := hotkey.ParseKey(c.Hotkey.Key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Hotkey.WindowMS < 100 || c.Hotkey.WindowMS > 2000 {
		return fmt.Errorf("%w: hotkey window %dms outside 100..2000", ErrInvalid, c.Hotkey.WindowMS)
	}
	switch c.Engine.Provider {
	case "whisper-local", "whisper-native", "whisper-api":
	default:
		return fmt.Errorf("%w: engine provider %q", ErrInvalid, c.Engine.Provider)
	}
	switch c.Inject.Method {
	case "paste", "type":
	default:
		return fmt.Errorf("%w: inject method %q", ErrInvalid, c.Inject.Method)
	}
	if c.Streaming.IntervalMS < 500 {
		return fmt.Errorf("%w: streaming interval %dms below 500", ErrInvalid, c.Streaming.IntervalMS)
	}
	if c.Streaming.MinAudioMS < 0 {
		return fmt.Errorf("%w: negative minimum audio", ErrInvalid)
	}
	if c.Streaming.SilenceThreshold < 0 || c.Streaming.SilenceThreshold >= 1 {
		return fmt.Errorf("%w: silence threshold %g outside 0..1", ErrInvalid, c.Streaming.SilenceThreshold)
	}
	if c.Metrics.IntervalMS < 0 {
		return fmt.Errorf("%w: negative metrics interval", ErrInvalid)
	}
	return nil
}

// Load loads configuration from the config file and applies environment
// overrides. Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	applyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

func loadFile() (*Config, error) {
	if err := migrateLegacyConfig(); err != nil {
		return nil, fmt.Errorf("migrate legacy config: %w", err)
	}

	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Missing fields keep their defaults.
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.migrateFlatFields()
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Write then rename so a crash never leaves a truncated file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

var updateMu sync.Mutex

// Update reads the stored configuration, applies fn, validates and writes it
// back. Environment overrides are not persisted.
func Update(fn func(c *Config)) (*Config, error) {
	updateMu.Lock()
	defer updateMu.Unlock()

	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	fn(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	applyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// Dir returns the application config directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

func configPath() (string, error) {
	if p := os.Getenv("DICTATE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// migrateFlatFields moves settings written by older versions into their
// sections.
func (c *Config) migrateFlatFields() {
	if c.ModelPath != "" {
		if c.Engine.ModelPath == "" {
			c.Engine.ModelPath = c.ModelPath
		}
		c.ModelPath = ""
	}
}

// migrateLegacyConfig links the directory used by the previous app name so
// that existing models and settings are picked up.
func migrateLegacyConfig() error {
	if os.Getenv("DICTATE_CONFIG") != "" {
		return nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("get user config dir: %w", err)
	}

	oldDir := filepath.Join(configDir, oldAppName)
	newDir := filepath.Join(configDir, appName)

	oldInfo, err := os.Stat(oldDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat old config dir: %w", err)
	}
	if !oldInfo.IsDir() {
		return nil
	}

	_, err = os.Stat(newDir)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat new config dir: %w", err)
	}

	if err := os.Symlink(oldDir, newDir); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}
	return nil
}
