package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.aimuz.me/dictate/internal/types"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"exactly10!", 10, "exactly10!"},
		{"zażółć gęślą jaźń", 8, "zażółć …"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{1400 * time.Millisecond, "0:01"},
		{75 * time.Second, "1:15"},
		{12 * time.Minute, "12:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestHistoryItem(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local).UnixMilli()
	f.HistoryItem(types.SessionSummary{
		Mode:      types.ModeStreaming,
		Language:  "pl",
		Text:      "dzień dobry",
		StartedAt: start,
		EndedAt:   start + 5000,
	})
	f.HistoryItem(types.SessionSummary{
		Mode:      types.ModeBatch,
		Language:  "en",
		StartedAt: start,
		EndedAt:   start + 1000,
		Error:     "transcription failed: model crashed",
	})

	out := buf.String()
	for _, want := range []string{"2026-03-01 09:30", "streaming", "0:05", "dzień dobry", "❌", "model crashed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
