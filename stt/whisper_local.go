package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"go.aimuz.me/dictate/audiocapture"
)

// WhisperLocal implements the Provider interface using the whisper.cpp CLI.
type WhisperLocal struct {
	modelPath string
	binPath   string
	extraArgs []string
	threads   int
}

// WhisperLocalConfig holds configuration for WhisperLocal.
type WhisperLocalConfig struct {
	ModelPath string // ggml model file
	BinPath   string // whisper.cpp binary, searched on PATH when empty
	ExtraArgs string // additional command line flags, shell quoted
	Threads   int
}

// NewWhisperLocal creates a new WhisperLocal provider.
func NewWhisperLocal(cfg WhisperLocalConfig) (*WhisperLocal, error) {
	if cfg.ModelPath == "" {
		p, err := DefaultModelPath()
		if err != nil {
			return nil, err
		}
		cfg.ModelPath = p
	}

	var extra []string
	if strings.TrimSpace(cfg.ExtraArgs) != "" {
		args, err := shellwords.NewParser().Parse(cfg.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("parse whisper args: %w", err)
		}
		extra = args
	}

	w := &WhisperLocal{
		modelPath: cfg.ModelPath,
		binPath:   cfg.BinPath,
		extraArgs: extra,
		threads:   cfg.Threads,
	}
	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}
	return w, nil
}

func (w *WhisperLocal) Name() string        { return "whisper-local" }
func (w *WhisperLocal) DisplayName() string { return "Whisper Local (" + filepath.Base(w.modelPath) + ")" }
func (w *WhisperLocal) IsLocal() bool       { return true }

// ModelPath returns the configured model file.
func (w *WhisperLocal) ModelPath() string { return w.modelPath }

// BinPath returns the resolved whisper.cpp binary, empty if none was found.
func (w *WhisperLocal) BinPath() string { return w.binPath }

// IsReady reports whether both the binary and the model file exist.
func (w *WhisperLocal) IsReady() bool {
	if w.binPath == "" {
		return false
	}
	_, err := os.Stat(w.modelPath)
	return err == nil
}

// Transcribe writes audio to a temporary WAV file and runs whisper.cpp on it.
func (w *WhisperLocal) Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("whisper-local: %w: binary %q, model %q", ErrNotReady, w.binPath, w.modelPath)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	file, err := os.CreateTemp("", "dictate_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audiocapture.EncodeWAV(file, audio, SampleRate); err != nil {
		return nil, err
	}

	outBase := strings.TrimSuffix(file.Name(), ".wav")
	jsonPath := outBase + ".json"
	defer os.Remove(jsonPath)

	cmd := exec.CommandContext(ctx, w.binPath, w.args(file.Name(), outBase, language)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper-cpp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(jsonPath)
	if err != nil {
		// Older builds ignore -of; use the plain text on stdout.
		out = stdout.Bytes()
	}
	return parseWhisperOutput(out, language)
}

func (w *WhisperLocal) args(audioPath, outBase, language string) []string {
	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-oj", // JSON output file
		"-of", outBase,
		"--no-prints",
		"-nt",
	}
	if lang := NormalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	} else {
		args = append(args, "-l", "auto")
	}
	if w.threads > 0 {
		args = append(args, "-t", fmt.Sprint(w.threads))
	}
	return append(args, w.extraArgs...)
}

func (w *WhisperLocal) Close() error {
	return nil
}

// whisperCppOutput represents the JSON output from whisper.cpp.
type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

// parseWhisperOutput decodes whisper.cpp JSON, falling back to plain text.
func parseWhisperOutput(out []byte, language string) (*TranscribeResult, error) {
	var parsed whisperCppOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return &TranscribeResult{
			Text:     strings.TrimSpace(string(out)),
			Language: NormalizeLanguage(language),
		}, nil
	}

	result := &TranscribeResult{
		Language: parsed.Result.Language,
		Segments: make([]Segment, 0, len(parsed.Transcription)),
	}
	for _, seg := range parsed.Transcription {
		result.Segments = append(result.Segments, Segment{
			Text:  seg.Text,
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
		})
	}
	result.Text = joinSegments(result.Segments)
	return result, nil
}

func findWhisperBinary() string {
	// whisper-cli is the Homebrew name
	names := []string{"whisper-cli", "whisper-cpp", "whisper"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp", "build", "bin"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if runtime.GOOS == "darwin" {
		execPath, _ := os.Executable()
		bundlePath := filepath.Join(filepath.Dir(execPath), "..", "Resources", "whisper-cli")
		if _, err := os.Stat(bundlePath); err == nil {
			return bundlePath
		}
	}
	return ""
}

// DefaultModelPath returns the model location under the user config directory.
func DefaultModelPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "dictate", "models", "ggml-large-v3-turbo.bin"), nil
}
