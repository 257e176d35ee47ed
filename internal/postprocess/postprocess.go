// Package postprocess turns the text extracted from a translation backend
// response into plain text.
//
// Backends hosted behind script runtimes often return HTML-escaped text with
// <br> and <p> markup, or with newlines escaped as a literal backslash-n.
// Normalize undoes all of that.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	// decoded in order; &amp; last so "&amp;lt;" becomes "&lt;", not "<".
	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)

	brRe        = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphRe = regexp.MustCompile(`(?i)</p>\s*<p(?:\s[^>]*)?>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
)

// Normalize applies, in order:
//  1. HTML entity decoding (&lt; &gt; &quot; &#39; &amp;)
//  2. literal "\n" sequences and <br> tags to newlines
//  3. paragraph boundaries (</p><p>) to blank lines
//  4. removal of all remaining tags
//  5. CRLF and CR to LF
//  6. trimming of surrounding whitespace
func Normalize(text string) string {
	text = decodeEntities(text)

	text = strings.ReplaceAll(text, `\n`, "\n")
	text = brRe.ReplaceAllString(text, "\n")
	text = paragraphRe.ReplaceAllString(text, "\n\n")
	text = tagRe.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return strings.TrimSpace(text)
}

func decodeEntities(text string) string {
	text = entityReplacer.Replace(text)
	return strings.ReplaceAll(text, "&amp;", "&")
}

// LooksLikeHTMLPage reports whether body is an HTML document rather than a
// translation, such as a proxy or login error page.
func LooksLikeHTMLPage(body string) bool {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	return strings.Contains(strings.ToLower(trimmed), "html")
}
