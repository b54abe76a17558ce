package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	name     string
	closeErr error
	closed   bool
}

func (s *stubProvider) Name() string        { return s.name }
func (s *stubProvider) DisplayName() string { return strings.ToUpper(s.name) }
func (s *stubProvider) IsLocal() bool       { return true }
func (s *stubProvider) IsReady() bool       { return true }
func (s *stubProvider) Transcribe(context.Context, []float32, string) (*TranscribeResult, error) {
	return &TranscribeResult{Text: s.name}, nil
}
func (s *stubProvider) Close() error {
	s.closed = true
	return s.closeErr
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	b := &stubProvider{name: "b"}
	a := &stubProvider{name: "a", closeErr: errors.New("boom")}
	r.Register(b)
	r.Register(a)

	got, err := r.Get("a")
	if err != nil || got != a {
		t.Fatalf("Get(a) = %v, %v", got, err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get(missing) error = %v, want %v", err, ErrProviderNotFound)
	}

	list := r.List()
	if len(list) != 2 || list[0].Name() != "a" || list[1].Name() != "b" {
		t.Errorf("List() names = %v, want [a b]", list)
	}

	if err := r.Close(); err == nil {
		t.Error("Close() error = nil, want provider error")
	}
	if !a.closed || !b.closed {
		t.Error("Close() did not close every provider")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"auto", ""},
		{"AUTO", ""},
		{"", ""},
		{" pl ", "pl"},
		{"EN", "en"},
	}
	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseWhisperOutput(t *testing.T) {
	out := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"text": " Hello", "offsets": {"from": 0, "to": 1200}},
			{"text": " world.", "offsets": {"from": 1200, "to": 2000}},
			{"text": "  ", "offsets": {"from": 2000, "to": 2100}}
		]
	}`)

	got, err := parseWhisperOutput(out, "auto")
	if err != nil {
		t.Fatalf("parseWhisperOutput() error = %v", err)
	}
	if got.Text != "Hello world." {
		t.Errorf("Text = %q, want %q", got.Text, "Hello world.")
	}
	if got.Language != "en" {
		t.Errorf("Language = %q, want %q", got.Language, "en")
	}
	if len(got.Segments) != 3 || got.Segments[1].End != 2*time.Second {
		t.Errorf("Segments = %+v", got.Segments)
	}

	plain, err := parseWhisperOutput([]byte(" plain text \n"), "pl")
	if err != nil {
		t.Fatalf("parseWhisperOutput(plain) error = %v", err)
	}
	if plain.Text != "plain text" || plain.Language != "pl" {
		t.Errorf("plain result = %+v", plain)
	}
}

func TestWhisperLocal_Args(t *testing.T) {
	w, err := NewWhisperLocal(WhisperLocalConfig{
		ModelPath: "/models/m.bin",
		BinPath:   "/bin/whisper-cli",
		ExtraArgs: `--prompt "Hello, dictation." -bs 5`,
		Threads:   4,
	})
	if err != nil {
		t.Fatalf("NewWhisperLocal() error = %v", err)
	}

	got := strings.Join(w.args("/tmp/a.wav", "/tmp/a", "auto"), "|")
	want := "-m|/models/m.bin|-f|/tmp/a.wav|-oj|-of|/tmp/a|--no-prints|-nt|-l|auto|-t|4|--prompt|Hello, dictation.|-bs|5"
	if got != want {
		t.Errorf("args = %s, want %s", got, want)
	}

	got = strings.Join(w.args("/tmp/a.wav", "/tmp/a", "pl"), "|")
	if !strings.Contains(got, "-l|pl") {
		t.Errorf("args = %s, want language pl", got)
	}

	if _, err := NewWhisperLocal(WhisperLocalConfig{ModelPath: "m", ExtraArgs: `"unterminated`}); err == nil {
		t.Error("NewWhisperLocal() with bad args error = nil")
	}
}

func TestWhisperLocal_NotReady(t *testing.T) {
	w, err := NewWhisperLocal(WhisperLocalConfig{
		ModelPath: filepath.Join(t.TempDir(), "missing.bin"),
		BinPath:   "/bin/true",
	})
	if err != nil {
		t.Fatalf("NewWhisperLocal() error = %v", err)
	}
	if w.IsReady() {
		t.Error("IsReady() = true without model")
	}
	if _, err := w.Transcribe(context.Background(), []float32{0}, "en"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Transcribe() error = %v, want %v", err, ErrNotReady)
	}
}

// TestWhisperLocal_Transcribe runs a fake whisper binary that writes the JSON
// output file next to the audio.
func TestWhisperLocal_Transcribe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script binary")
	}
	dir := t.TempDir()
	model := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(model, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "whisper-cli")
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then out="$2"; fi
  shift
done
printf '{"result":{"language":"en"},"transcription":[{"text":" hello world","offsets":{"from":0,"to":1000}}]}' > "$out.json"
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWhisperLocal(WhisperLocalConfig{ModelPath: model, BinPath: bin})
	if err != nil {
		t.Fatalf("NewWhisperLocal() error = %v", err)
	}
	if !w.IsReady() {
		t.Fatal("IsReady() = false")
	}

	got, err := w.Transcribe(context.Background(), make([]float32, 1600), "auto")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %q, want %q", got.Text, "hello world")
	}
	if _, err := w.Transcribe(context.Background(), nil, "en"); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Transcribe(nil) error = %v, want %v", err, ErrEmptyAudio)
	}
}

func TestWhisperAPI_NotReady(t *testing.T) {
	w := NewWhisperAPI(WhisperAPIConfig{})
	if w.IsReady() {
		t.Error("IsReady() = true without key")
	}
	if _, err := w.Transcribe(context.Background(), []float32{0}, "en"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Transcribe() error = %v, want %v", err, ErrNotReady)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
	}{
		{"default", Config{ModelPath: "m.bin", BinaryPath: "/bin/w"}, ProviderLocal, nil},
		{"api", Config{Provider: ProviderAPI, APIKey: "k"}, ProviderAPI, nil},
		{"unknown", Config{Provider: "vosk"}, "", ErrProviderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
