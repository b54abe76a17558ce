// Package output formats command line output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go.aimuz.me/dictate/internal/types"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func (f *Formatter) Listening(key string, mode types.Mode, language string) {
	fmt.Fprintf(f.w, "🎙️  Double-press %s to dictate (%s, %s). Ctrl+C to quit.\n", key, mode, language)
}

func (f *Formatter) HistoryHeader() {
	fmt.Fprintf(f.w, "📝 Recent sessions:\n\n")
}

func (f *Formatter) HistoryItem(s types.SessionSummary) {
	started := time.UnixMilli(s.StartedAt)
	length := time.Duration(s.EndedAt-s.StartedAt) * time.Millisecond

	marker := ""
	switch {
	case s.Error != "":
		marker = " ❌"
	case s.Diverged:
		marker = " ≈"
	}

	fmt.Fprintf(f.w, "  %s  %-9s %-4s %6s%s\n",
		started.Format("2006-01-02 15:04"), s.Mode, s.Language, formatDuration(length), marker)
	if text := Truncate(s.Text, 72); text != "" {
		fmt.Fprintf(f.w, "    %s\n", text)
	}
	if s.Error != "" {
		fmt.Fprintf(f.w, "    %s\n", s.Error)
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
