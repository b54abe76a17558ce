//go:build !whispercpp

package stt

import "context"

// WhisperNative is unavailable in this build.
type WhisperNative struct {
	modelPath string
}

// NewWhisperNative returns ErrNativeUnavailable.
func NewWhisperNative(modelPath string, _ int) (*WhisperNative, error) {
	return nil, ErrNativeUnavailable
}

func (w *WhisperNative) Name() string        { return "whisper-native" }
func (w *WhisperNative) DisplayName() string { return "Whisper (in-process)" }
func (w *WhisperNative) IsLocal() bool       { return true }
func (w *WhisperNative) IsReady() bool       { return false }

func (w *WhisperNative) Transcribe(context.Context, []float32, string) (*TranscribeResult, error) {
	return nil, ErrNativeUnavailable
}

func (w *WhisperNative) Close() error { return nil }
