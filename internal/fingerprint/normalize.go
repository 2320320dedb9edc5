package fingerprint

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Emphasis wrappers, applied in this order. Non-greedy so adjacent
// spans are stripped independently.
var emphasisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*\*(.+?)\*\*`),
	regexp.MustCompile(`__(.+?)__`),
	regexp.MustCompile(`\*(.+?)\*`),
	regexp.MustCompile(`_(.+?)_`),
	regexp.MustCompile("`(.+?)`"),
}

var lower = cases.Lower(language.Und)

// Normalize canonicalises text for hashing and comparison: lowercase,
// collapse whitespace runs to one space, strip markdown emphasis keeping
// the inner text, trim. It never fails.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = lower.String(s)
	s = collapseSpace(s)
	for _, re := range emphasisPatterns {
		s = re.ReplaceAllString(s, "$1")
	}

	return strings.TrimSpace(s)
}

// collapseSpace replaces every run of Unicode whitespace with a single
// ASCII space. Leading and trailing runs are kept as one space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
