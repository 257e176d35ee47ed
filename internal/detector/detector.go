// Package detector classifies the dominant script of a chat message into a
// two-letter language code. Detection is synchronous and never performs I/O
// because it runs on the message submission path.
package detector

import (
	"strings"
	"unicode"
)

// DefaultLang is returned when no script rule matches.
const DefaultLang = "en"

// Rule maps a set of Unicode ranges to a language code.
type Rule struct {
	Lang   string
	Ranges []*unicode.RangeTable
}

// Matches reports whether any rune of text falls in one of the rule's ranges.
func (r Rule) Matches(text string) bool {
	for _, c := range text {
		if unicode.In(c, r.Ranges...) {
			return true
		}
	}
	return false
}

var (
	kana = &unicode.RangeTable{R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x309F, Stride: 1}, // Hiragana
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1}, // Katakana
	}}
	hangul = &unicode.RangeTable{R16: []unicode.Range16{
		{Lo: 0xAC00, Hi: 0xD7AF, Stride: 1},
	}}
	ideographs = &unicode.RangeTable{R16: []unicode.Range16{
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
	}}
)

// Rules is evaluated in order; the first match wins. Mixed-script text is
// therefore classified by precedence, not by majority.
var Rules = []Rule{
	{Lang: "ja", Ranges: []*unicode.RangeTable{kana}},
	{Lang: "ko", Ranges: []*unicode.RangeTable{hangul}},
	{Lang: "zh", Ranges: []*unicode.RangeTable{ideographs}},
}

// Detect returns the language code for text.
func Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return DefaultLang
	}
	if isASCII(text) {
		return DefaultLang
	}
	for _, r := range Rules {
		if r.Matches(text) {
			return Normalize(r.Lang)
		}
	}
	return DefaultLang
}

// Normalize lowercases a language code and truncates it to two characters.
// Empty input yields DefaultLang.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return DefaultLang
	}
	if len(code) > 2 {
		code = code[:2]
	}
	return code
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
