// Package langdetect identifies the language of transcribed text.
package langdetect

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// Unknown is returned when no language could be determined.
const Unknown = "auto"

// Languages the detector distinguishes between. Restricting the set keeps
// the models small and the decision stable on short text.
var languages = []lingua.Language{
	lingua.English,
	lingua.Polish,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Czech,
	lingua.Ukrainian,
	lingua.Russian,
	lingua.Swedish,
	lingua.Turkish,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

func get() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code and English name of the language of text.
// It returns Unknown and an empty name when undecided.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unknown, ""
	}
	lang, ok := get().DetectLanguageOf(text)
	if !ok {
		return Unknown, ""
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}

// Detector decides when a transcript is long and unambiguous enough to fix
// the language for the rest of a session.
type Detector struct {
	MinRunes      int     // shortest text considered
	MinConfidence float64 // required confidence of the best language
}

// NewDetector returns a detector with conservative defaults.
func NewDetector() *Detector {
	return &Detector{MinRunes: 24, MinConfidence: 0.6}
}

// Pin returns the language code of text if it is confidently recognized.
func (d *Detector) Pin(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < d.MinRunes {
		return "", false
	}
	det := get()
	lang, ok := det.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	if det.ComputeLanguageConfidence(text, lang) < d.MinConfidence {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
