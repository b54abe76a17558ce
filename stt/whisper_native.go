//go:build whispercpp

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperNative runs whisper.cpp in process through its Go bindings.
type WhisperNative struct {
	modelPath string
	threads   int

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperNative loads the model. A missing model file is not an error:
// the provider reports not ready until it exists.
func NewWhisperNative(modelPath string, threads int) (*WhisperNative, error) {
	w := &WhisperNative{modelPath: modelPath, threads: threads}
	if _, err := os.Stat(modelPath); err != nil {
		return w, nil
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", modelPath, err)
	}
	w.model = model
	return w, nil
}

func (w *WhisperNative) Name() string        { return "whisper-native" }
func (w *WhisperNative) DisplayName() string { return "Whisper (in-process)" }
func (w *WhisperNative) IsLocal() bool       { return true }

func (w *WhisperNative) IsReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model != nil
}

// Transcribe runs greedy decoding without carrying context between calls, so
// each pass over the growing recording is independent.
func (w *WhisperNative) Transcribe(ctx context.Context, audio []float32, language string) (*TranscribeResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return nil, fmt.Errorf("whisper-native: %w: model %q", ErrNotReady, w.modelPath)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	lang := NormalizeLanguage(language)
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	if w.threads > 0 {
		wctx.SetThreads(uint(w.threads))
	}
	wctx.SetTranslate(false)

	if err := wctx.Process(audio, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	result := &TranscribeResult{Language: wctx.DetectedLanguage()}
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}
		result.Segments = append(result.Segments, Segment{Text: seg.Text, Start: seg.Start, End: seg.End})
	}
	result.Text = joinSegments(result.Segments)
	return result, nil
}

func (w *WhisperNative) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
