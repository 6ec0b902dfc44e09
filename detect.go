package gonote

import (
	"strings"

	"github.com/samber/mo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// MinDetectionConfidence is the lowest confidence at which a language
// hypothesis is accepted.
const MinDetectionConfidence = 0.5

// Hypothesis is a detector's best guess for a text's language.
type Hypothesis struct {
	Language   string  // language or locale code, e.g. "en", "pt-BR"
	Confidence float64 // 0..1
}

// Detector identifies the language of a text.
// Detect returns false when it has no hypothesis at all.
type Detector interface {
	Detect(text string) (Hypothesis, bool)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(text string) (Hypothesis, bool)

// Detect implements Detector.
func (f DetectorFunc) Detect(text string) (Hypothesis, bool) {
	return f(text)
}

// apostrophes maps typographic right single quotation marks to ASCII
// apostrophes. Contractions written with U+2019 otherwise get detected as
// the wrong language ("It’s a meme" reads as Turkish).
var apostrophes = runes.Map(func(r rune) rune {
	if r == '’' {
		return '\''
	}
	return r
})

// NormalizeForDetection applies the text normalization used before
// language detection.
func NormalizeForDetection(text string) string {
	out, _, err := transform.String(apostrophes, text)
	if err != nil {
		return strings.ReplaceAll(text, "’", "'")
	}
	return out
}

// DetectLanguage runs the detector over the plain-text segments of blocks
// and returns the base language code of the top hypothesis when its
// confidence is at least MinDetectionConfidence.
func DetectLanguage(d Detector, blocks []Block) mo.Option[string] {
	if d == nil {
		return mo.None[string]()
	}
	return DetectTextLanguage(d, PlainText(blocks))
}

// DetectTextLanguage is DetectLanguage for text that has already been
// reduced to its plain-text segments.
func DetectTextLanguage(d Detector, text string) mo.Option[string] {
	text = NormalizeForDetection(text)
	if strings.TrimSpace(text) == "" {
		return mo.None[string]()
	}

	h, ok := d.Detect(text)
	if !ok || h.Confidence < MinDetectionConfidence {
		return mo.None[string]()
	}

	lang := BaseLanguage(h.Language)
	if lang == "" {
		return mo.None[string]()
	}
	return mo.Some(lang)
}
