// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"strings"
)

// Status is the externally visible state of the dictation pipeline.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
)

// Mode selects how audio is turned into typed text.
type Mode string

const (
	// ModeStreaming re-transcribes the growing recording periodically and
	// types confirmed text while the user is still speaking.
	ModeStreaming Mode = "streaming"
	// ModeBatch transcribes once, after recording ends.
	ModeBatch Mode = "batch"
)

// ParseMode converts a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStreaming, "stream":
		return ModeStreaming, nil
	case ModeBatch:
		return ModeBatch, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// LanguageAuto asks the engine to detect the spoken language.
const LanguageAuto = "auto"

// Settings is the per-session dictation configuration. A copy is taken when a
// session starts; later changes apply to the next session only.
type Settings struct {
	Mode     Mode   `json:"mode"`
	Language string `json:"language"`
}

// IsAutoLanguage reports whether the engine should detect the language.
func (s Settings) IsAutoLanguage() bool {
	return s.Language == "" || strings.EqualFold(s.Language, LanguageAuto)
}

// ModelStatus reports whether a transcription engine is usable.
type ModelStatus struct {
	Ready    bool   `json:"ready"`
	Provider string `json:"provider"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message,omitempty"`
}

// SessionSummary describes a finished dictation session.
type SessionSummary struct {
	ID        string `json:"id"`
	Mode      Mode   `json:"mode"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	Fragments int    `json:"fragments"`
	StartedAt int64  `json:"startedAt"` // Unix milliseconds
	EndedAt   int64  `json:"endedAt"`   // Unix milliseconds
	Diverged  bool   `json:"diverged,omitempty"`
	Error     string `json:"error,omitempty"`
}

// STTProviderInfo represents information about an STT provider.
type STTProviderInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	IsLocal     bool   `json:"isLocal"`
	IsReady     bool   `json:"isReady"`
}
