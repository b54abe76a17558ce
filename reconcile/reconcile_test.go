package reconcile

import (
	"strings"
	"testing"
)

func TestDelta(t *testing.T) {
	tests := []struct {
		name         string
		emitted      string
		transcript   string
		wantFragment string
		wantDiverged bool
	}{
		{"first transcript", "", "hello", "hello", false},
		{"extension", "hello", "hello world", " world", false},
		{"case and punctuation tolerant", "Hello,", "hello world.", " world.", false},
		{"whitespace tolerant", "hello  world", "  hello\tworld  now ", " now", false},
		{"compatibility forms", "ﬁle", "file saved", " saved", false},
		{"non ascii case", "Zażółć", "ZAŻÓŁĆ gęślą", " gęślą", false},
		{"identical", "hello world", "hello world", "", false},
		{"empty transcript", "hello world", "", "", false},
		{"shorter transcript", "hello world", "hello", "", false},
		{"revised word", "hello world", "hello word again", "", true},
		{"revised first word", "hello", "yellow there", "", true},
		{"both empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, diverged := Delta(tt.emitted, tt.transcript)
			if frag != tt.wantFragment {
				t.Errorf("Delta(%q, %q) fragment = %q, want %q", tt.emitted, tt.transcript, frag, tt.wantFragment)
			}
			if diverged != tt.wantDiverged {
				t.Errorf("Delta(%q, %q) diverged = %v, want %v", tt.emitted, tt.transcript, diverged, tt.wantDiverged)
			}
		})
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	for _, stabilize := range []bool{false, true} {
		r := New(Options{Stabilize: stabilize})
		r.Next("hello world")
		r.Next("hello world")

		if got := r.Next("hello world"); got.Fragment != "" {
			t.Errorf("stabilize=%v: repeated Next fragment = %q, want empty", stabilize, got.Fragment)
		}
		if got := r.Final("hello world"); got.Fragment != "" {
			t.Errorf("stabilize=%v: repeated Final fragment = %q, want empty", stabilize, got.Fragment)
		}
	}
}

func TestReconciler_MonotonicGrowth(t *testing.T) {
	transcripts := []string{
		"so",
		"so today",
		"so today we",
		"so today we ship the",
		"so today we ship the release",
	}
	final := "so today we ship the release notes"

	for _, stabilize := range []bool{false, true} {
		r := New(Options{Stabilize: stabilize})
		var typed strings.Builder
		for _, tr := range transcripts {
			typed.WriteString(r.Next(tr).Fragment)
		}
		typed.WriteString(r.Final(final).Fragment)

		if typed.String() != final {
			t.Errorf("stabilize=%v: typed = %q, want %q", stabilize, typed.String(), final)
		}
		if r.Emitted() != final {
			t.Errorf("stabilize=%v: Emitted() = %q, want %q", stabilize, r.Emitted(), final)
		}
	}
}

func TestReconciler_StreamingScenario(t *testing.T) {
	tests := []struct {
		name      string
		stabilize bool
		want      []string
	}{
		{"immediate", false, []string{"hello", " world"}},
		{"stabilized", true, []string{"hello", " world"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Options{Stabilize: tt.stabilize})
			var got []string
			for _, tr := range []string{"hello", "hello world"} {
				if f := r.Next(tr).Fragment; f != "" {
					got = append(got, f)
				}
			}
			if f := r.Final("hello world").Fragment; f != "" {
				got = append(got, f)
			}

			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("fragments = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReconciler_StabilizeWaitsForConfirmation(t *testing.T) {
	r := New(Options{Stabilize: true})

	if got := r.Next("I think"); got.Fragment != "" {
		t.Errorf("first pass fragment = %q, want empty", got.Fragment)
	}
	// "think" was revised, only "I" is confirmed.
	if got := r.Next("I thought so"); got.Fragment != "I" {
		t.Errorf("second pass fragment = %q, want %q", got.Fragment, "I")
	}
	if got := r.Next("I thought so too"); got.Fragment != " thought so" {
		t.Errorf("third pass fragment = %q, want %q", got.Fragment, " thought so")
	}
	if r.Diverged() {
		t.Error("Diverged() = true, want false")
	}
}

func TestReconciler_DivergenceAccepted(t *testing.T) {
	r := New(Options{})

	if got := r.Next("hello word"); got.Fragment != "hello word" {
		t.Fatalf("Next fragment = %q, want %q", got.Fragment, "hello word")
	}

	got := r.Next("hello world again")
	if got.Fragment != "" || !got.Diverged {
		t.Errorf("revised Next = %+v, want empty diverged result", got)
	}
	if r.Emitted() != "hello word" {
		t.Errorf("Emitted() = %q, want %q", r.Emitted(), "hello word")
	}

	// Still diverged: nothing is retyped.
	if got := r.Next("hello world again and"); got.Fragment != "" {
		t.Errorf("second revised Next fragment = %q, want empty", got.Fragment)
	}

	final := r.Final("hello world again today")
	if final.Fragment != " again today" {
		t.Errorf("Final fragment = %q, want %q", final.Fragment, " again today")
	}
	if !final.Diverged {
		t.Error("Final Diverged = false, want true")
	}
}

func TestReconciler_FinalRealignsOnEmittedWords(t *testing.T) {
	tests := []struct {
		name      string
		streamed  []string
		final     string
		wantFrag  string
		wantTyped string
	}{
		{
			name:      "word inserted before typed word",
			streamed:  []string{"hello world"},
			final:     "hello the world is big",
			wantFrag:  " is big",
			wantTyped: "hello world is big",
		},
		{
			name:      "repeated word inserted before typed words",
			streamed:  []string{"go to the store"},
			final:     "go to the the store and back",
			wantFrag:  " and back",
			wantTyped: "go to the store and back",
		},
		{
			name:      "punctuation and case tolerated in anchor",
			streamed:  []string{"so it begins"},
			final:     "So, then it Begins. Again",
			wantFrag:  " Again",
			wantTyped: "so it begins Again",
		},
		{
			name:      "nothing after anchor",
			streamed:  []string{"one two three"},
			final:     "one and two three",
			wantFrag:  "",
			wantTyped: "one two three",
		},
		{
			name:      "no anchor falls back to position",
			streamed:  []string{"hello word"},
			final:     "hello world again today",
			wantFrag:  " again today",
			wantTyped: "hello word again today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Options{})
			typed := ""
			for _, tr := range tt.streamed {
				typed += r.Next(tr).Fragment
			}
			got := r.Final(tt.final)
			if got.Fragment != tt.wantFrag {
				t.Errorf("Final(%q) fragment = %q, want %q", tt.final, got.Fragment, tt.wantFrag)
			}
			if !got.Diverged {
				t.Error("Final Diverged = false, want true")
			}
			typed += got.Fragment
			if typed != tt.wantTyped {
				t.Errorf("typed = %q, want %q", typed, tt.wantTyped)
			}
		})
	}
}

func TestReconciler_NoOverlap(t *testing.T) {
	transcripts := []string{
		"the quick",
		"the quick brown",
		"the quack brown fox",
		"the quick brown fox jumps",
		"the quick",
		"the quick brown fox jumps over",
	}

	r := New(Options{})
	var fragments []string
	for _, tr := range transcripts {
		if f := r.Next(tr).Fragment; f != "" {
			fragments = append(fragments, f)
		}
	}
	if f := r.Final("the quick brown fox jumps over the dog").Fragment; f != "" {
		fragments = append(fragments, f)
	}

	typed := strings.Fields(strings.Join(fragments, ""))
	want := strings.Fields("the quick brown fox jumps over the dog")
	if strings.Join(typed, " ") != strings.Join(want, " ") {
		t.Errorf("typed words = %q, want %q", typed, want)
	}
}

func TestReconciler_BatchFinal(t *testing.T) {
	r := New(Options{Stabilize: true})

	got := r.Final("hello world")
	if got.Fragment != "hello world" {
		t.Errorf("Final fragment = %q, want %q", got.Fragment, "hello world")
	}
	if got.Diverged {
		t.Error("Final Diverged = true, want false")
	}
}

func TestReconciler_Reset(t *testing.T) {
	r := New(Options{})
	r.Next("hello")
	r.Next("goodbye")
	r.Reset()

	if r.Emitted() != "" {
		t.Errorf("Emitted() after Reset = %q, want empty", r.Emitted())
	}
	if r.Diverged() {
		t.Error("Diverged() after Reset = true, want false")
	}
	if got := r.Next("hello again"); got.Fragment != "hello again" {
		t.Errorf("Next after Reset = %q, want %q", got.Fragment, "hello again")
	}
}
