// Package reconcile turns a sequence of full-recording transcripts into
// appendable text fragments.
//
// Each streaming pass transcribes the whole recording so far, so every new
// transcript repeats what was already typed. The reconciler compares the
// transcript with the text already emitted and returns only the new tail.
// Typed text cannot be taken back: when the model revises words that were
// already emitted, the revision is accepted as divergence and nothing is
// emitted for that pass.
package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Result is the outcome of one reconciliation step.
type Result struct {
	// Fragment is the text to inject. Empty means nothing new.
	Fragment string
	// Diverged is set when the transcript contradicts already emitted words.
	Diverged bool
}

// Delta computes the fragment to append after emitted so that the typed text
// follows transcript. Words are compared ignoring case, whitespace and
// surrounding punctuation.
//
// Delta is pure: it keeps no state and performs no I/O.
func Delta(emitted, transcript string) (fragment string, diverged bool) {
	m := newMatcher()
	return m.delta(strings.Fields(emitted), strings.Fields(transcript))
}

// Options configures a Reconciler.
type Options struct {
	// Stabilize emits only words confirmed by two consecutive transcripts.
	// The final pass always flushes everything.
	Stabilize bool
}

// Reconciler holds the emission state of one dictation session. It is not
// safe for concurrent use; the owning loop serializes calls.
type Reconciler struct {
	opts     Options
	m        matcher
	emitted  []string // words already handed out
	previous []string // words of the previous transcript
	diverged bool
}

// New creates an empty Reconciler.
func New(opts Options) *Reconciler {
	return &Reconciler{opts: opts, m: newMatcher()}
}

// Next reconciles a streaming transcript of the recording so far.
func (r *Reconciler) Next(transcript string) Result {
	words := strings.Fields(transcript)
	candidate := words
	if r.opts.Stabilize {
		candidate = words[:r.m.commonPrefix(r.previous, words)]
	}
	r.previous = words

	frag, diverged := r.m.delta(r.emitted, candidate)
	if diverged {
		r.diverged = true
		return Result{Diverged: true}
	}
	r.commit(frag)
	return Result{Fragment: frag}
}

// Final reconciles the transcript of the complete recording and returns
// everything not yet emitted.
//
// If an earlier pass diverged, the final transcript is realigned on the last
// emitted words: the longest suffix of the emitted text found as a run in the
// transcript anchors the flush, and only words after it are returned. Without
// an anchor the words past the number already emitted are flushed, so that
// the session still ends with the tail of what was said.
func (r *Reconciler) Final(transcript string) Result {
	words := strings.Fields(transcript)
	r.previous = words

	frag, diverged := r.m.delta(r.emitted, words)
	if diverged {
		r.diverged = true
		frag = r.m.realign(r.emitted, words)
	}
	r.commit(frag)
	return Result{Fragment: frag, Diverged: r.diverged}
}

// Emitted returns all text handed out so far.
func (r *Reconciler) Emitted() string {
	return strings.Join(r.emitted, " ")
}

// Diverged reports whether any transcript contradicted emitted text.
func (r *Reconciler) Diverged() bool {
	return r.diverged
}

// Reset clears the state for a new session.
func (r *Reconciler) Reset() {
	r.emitted = nil
	r.previous = nil
	r.diverged = false
}

func (r *Reconciler) commit(fragment string) {
	if fragment == "" {
		return
	}
	r.emitted = append(r.emitted, strings.Fields(fragment)...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Word matching
// ─────────────────────────────────────────────────────────────────────────────

type matcher struct {
	fold cases.Caser
}

func newMatcher() matcher {
	return matcher{fold: cases.Fold()}
}

// delta returns the tail of transcript beyond emitted. An empty fragment
// with diverged=false covers the empty, identical and shorter cases.
func (m matcher) delta(emitted, transcript []string) (string, bool) {
	n := m.commonPrefix(emitted, transcript)
	if n < len(emitted) {
		// Shorter transcript that agrees on every word it has is not a
		// revision, only a lagging pass.
		return "", n < len(transcript)
	}
	return joinTail(len(emitted), transcript), false
}

// maxAnchor bounds the emitted suffix searched by realign.
const maxAnchor = 8

// realign returns the tail of transcript after the words matching the end of
// emitted, preferring the longest and then the rightmost match.
func (m matcher) realign(emitted, transcript []string) string {
	for k := min(len(emitted), len(transcript), maxAnchor); k > 0; k-- {
		suffix := emitted[len(emitted)-k:]
		for j := len(transcript) - k; j >= 0; j-- {
			if m.commonPrefix(suffix, transcript[j:j+k]) == k {
				return joinTail(j+k, transcript)
			}
		}
	}
	return joinTail(len(emitted), transcript)
}

func (m matcher) commonPrefix(a, b []string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !m.equal(a[i], b[i]) {
			return i
		}
	}
	return n
}

func (m matcher) equal(a, b string) bool {
	if a == b {
		return true
	}
	return m.key(a) == m.key(b)
}

func (m matcher) key(word string) string {
	word = norm.NFKC.String(word)
	word = strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	m.fold.Reset()
	return m.fold.String(word)
}

// joinTail renders words[from:] as a fragment that can be appended to text
// ending in words[from-1].
func joinTail(from int, words []string) string {
	if from >= len(words) {
		return ""
	}
	tail := strings.Join(words[from:], " ")
	if from > 0 {
		return " " + tail
	}
	return tail
}
