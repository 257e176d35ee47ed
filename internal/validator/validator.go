// Package validator checks that a translation result is in the expected target language.
package validator

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/bolcha/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Chat messages are short; anything below this passes unchecked.
const minValidationLength = 20

// Languages are the display languages the validator can recognise. Targets
// outside this set are never rejected.
var Languages = []lingua.Language{
	lingua.English,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Vietnamese,
	lingua.Indonesian,
	lingua.Thai,
}

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det       lingua.LanguageDetector
	supported map[string]bool
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	det := lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		WithMinimumRelativeDistance(0.1).
		Build()

	supported := make(map[string]bool, len(Languages))
	for _, l := range Languages {
		supported[strings.ToLower(l.IsoCode639_1().String())] = true
	}
	return &Validator{det: det, supported: supported}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts, unsupported targets and texts whose language cannot be
// determined pass without error. When the detected language differs from
// targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if strings.TrimSpace(targetLang) == "" {
		return true, nil
	}
	target := detector.Normalize(targetLang)

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength || !v.supported[target] {
		return true, nil
	}

	lang, ok := v.det.DetectLanguageOf(text)
	if !ok {
		return true, nil
	}

	detected := strings.ToLower(lang.IsoCode639_1().String())
	if detected != target {
		return false, fmt.Errorf("expected %s but detected %s", target, detected)
	}
	return true, nil
}
