package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/dictate/audiocapture"
)

// WhisperAPI implements the Provider interface using the OpenAI
// transcription endpoint.
type WhisperAPI struct {
	client openai.Client
	model  string
	ready  bool
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string        // Optional, defaults to OpenAI's API
	Model   string        // Optional, defaults to "whisper-1"
	Timeout time.Duration // Optional, defaults to 60s
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	if cfg.Model == "" {
		cfg.Model = string(openai.AudioModelWhisper1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &WhisperAPI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		ready:  cfg.APIKey != "",
	}
}

func (w *WhisperAPI) Name() string        { return "whisper-api" }
func (w *WhisperAPI) DisplayName() string { return "OpenAI Whisper API (" + w.model + ")" }
func (w *WhisperAPI) IsLocal() bool       { return false }
func (w *WhisperAPI) IsReady() bool       { return w.ready }

// Transcribe uploads audio as WAV and returns the recognized text.
func (w *WhisperAPI) Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("whisper-api: %w: API key required", ErrNotReady)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	wavData, err := encodeWAVBytes(audio)
	if err != nil {
		return nil, err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	// The API does not accept "auto"; omitting the field means detect.
	lang := NormalizeLanguage(language)
	if lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcribe request: %w", err)
	}

	return &TranscribeResult{
		Text:     resp.Text,
		Language: lang,
	}, nil
}

func (w *WhisperAPI) Close() error {
	return nil
}

// encodeWAVBytes encodes audio through a temporary file, as the WAV encoder
// needs to seek back to patch the header.
func encodeWAVBytes(audio []float32) ([]byte, error) {
	file, err := os.CreateTemp("", "dictate_upload_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audiocapture.EncodeWAV(file, audio, SampleRate); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file.Name())
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return data, nil
}
