// Package detector provides language detectors for gonote.
package detector

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/ZaguanLabs/gonote"
)

// Lingua detects languages with lingua-go's n-gram models. Confidences are
// relative probabilities across the candidate languages, so they can be
// compared against gonote.MinDetectionConfidence directly.
type Lingua struct {
	languages []lingua.Language
	preload   bool
	detector  lingua.LanguageDetector
}

// Option configures a Lingua detector.
type Option func(*Lingua)

// WithLanguages restricts detection to the given languages. At least two
// are needed; fewer leaves every language as a candidate.
func WithLanguages(langs ...lingua.Language) Option {
	return func(l *Lingua) {
		l.languages = append(l.languages, langs...)
	}
}

// WithPreloadedModels loads every candidate model up front instead of on
// first use.
func WithPreloadedModels() Option {
	return func(l *Lingua) {
		l.preload = true
	}
}

// NewLingua creates a detector. Safe for concurrent use.
func NewLingua(opts ...Option) *Lingua {
	l := &Lingua{}
	for _, opt := range opts {
		opt(l)
	}

	u := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(l.languages) >= 2 {
		b = u.FromLanguages(l.languages...)
	} else {
		b = u.FromAllLanguages()
	}
	if l.preload {
		b = b.WithPreloadedLanguageModels()
	}
	l.detector = b.Build()

	return l
}

// Detect implements gonote.Detector. The language is reported as a
// lowercase ISO 639-1 code.
func (l *Lingua) Detect(text string) (gonote.Hypothesis, bool) {
	if strings.TrimSpace(text) == "" {
		return gonote.Hypothesis{}, false
	}

	values := l.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return gonote.Hypothesis{}, false
	}

	// sorted by descending confidence
	top := values[0]
	if top.Language() == lingua.Unknown {
		return gonote.Hypothesis{}, false
	}

	return gonote.Hypothesis{
		Language:   strings.ToLower(top.Language().IsoCode639_1().String()),
		Confidence: top.Value(),
	}, true
}

// Verify Lingua implements Detector
var _ gonote.Detector = (*Lingua)(nil)
