package reconcile

import (
	"regexp"
	"strings"
)

var (
	// regexTimestamp matches VTT/SRT timestamps like [00:00:00.000 --> 00:00:04.000]
	regexTimestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}\]`)
	// regexArtifacts matches non-speech markers such as [BLANK_AUDIO], [ Silence ] or (music)
	regexArtifacts = regexp.MustCompile(`(?i)[\[(]\s*(blank_audio|silence|music|applause|laughter|inaudible|no speech|noise|sound)\s*[\])]`)
)

// Clean removes timestamps and non-speech artifacts that speech models emit
// for silent or noisy audio, and collapses whitespace.
func Clean(text string) string {
	text = regexTimestamp.ReplaceAllString(text, " ")
	text = regexArtifacts.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
