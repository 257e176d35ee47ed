// Package structure keeps the line layout of a source text when a backend
// returns a translation whose blank lines were added, merged or dropped.
package structure

import "strings"

// Reconcile lays translated out along the lines of source. Blank lines in
// source become blank lines in the result; each non-blank source line takes
// the next translated line. Translated lines left over are appended.
//
// When the two line counts differ by at most one, a blank translated line
// sitting where source has a blank line is consumed so the blank is not
// emitted twice. Larger divergence disables that skip-ahead.
func Reconcile(source, translated string) string {
	src := strings.Split(source, "\n")
	dst := strings.Split(translated, "\n")

	aligned := abs(len(src)-len(dst)) <= 1

	out := make([]string, 0, len(src)+len(dst))
	j := 0
	for _, line := range src {
		if isBlank(line) {
			out = append(out, "")
			if aligned && j < len(dst) && isBlank(dst[j]) {
				j++
			}
			continue
		}
		if j < len(dst) {
			out = append(out, dst[j])
			j++
		}
	}
	if j < len(dst) {
		out = append(out, dst[j:]...)
	}
	return strings.Join(out, "\n")
}

// BlankLines counts the blank lines of text.
func BlankLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if isBlank(line) {
			n++
		}
	}
	return n
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
