package markdown

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

// TitleSource records which rule produced a title.
type TitleSource string

const (
	TitleFromSection     TitleSource = "title section"
	TitleFromH1          TitleSource = "first H1"
	TitleFromH2          TitleSource = "first H2"
	TitleFromLeadingLine TitleSource = "leading line"
	TitleFromFirstLine   TitleSource = "first line"
	TitleFromPlaceholder TitleSource = "placeholder"
)

const maxTitleLen = 100

var (
	underscoreBold = regexp.MustCompile(`__(.+?)__`)
	codeSpan       = regexp.MustCompile("`(.+?)`")
	orderedMarker  = regexp.MustCompile(`^\d+\.`)
)

// ExtractTitle walks the title fallback chain and never returns an empty
// title. Every candidate has its emphasis stripped.
//
//nolint:gocyclo // The fallback chain is linear but has many rules.
func (r *Rules) ExtractTitle(text string) (string, TitleSource) {
	lines := splitLines(text)

	// Explicit title heading: the next non-heading line within two lines.
	for i, line := range lines {
		s, ok := r.matchHeading(strings.TrimSpace(line))
		if !ok || s.Kind != KindTitle {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || strings.HasPrefix(next, "#") {
				continue
			}
			if t := cleanTitle(next); t != "" {
				return t, TitleFromSection
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "# ") || r.isTitleHeading(line) {
			continue
		}
		if t := cleanTitle(line[2:]); len([]rune(t)) > 3 {
			return t, TitleFromH1
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "## ") || r.isSectionHeading(line) || r.hasNonTitleWord(line) {
			continue
		}
		if t := cleanTitle(line[3:]); len([]rune(t)) > 3 {
			return t, TitleFromH2
		}
	}

	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || r.isBoilerplate(line) || hasBlockMarker(line) {
			continue
		}
		if n := len([]rune(line)); n > 5 && n < maxTitleLen {
			if t := cleanTitle(line); t != "" {
				return t, TitleFromLeadingLine
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if t := cleanTitle(fingerprint.Truncate(line, maxTitleLen)); t != "" {
			return t, TitleFromFirstLine
		}
	}

	return r.placeholder, TitleFromPlaceholder
}

func (r *Rules) isTitleHeading(line string) bool {
	s, ok := r.matchHeading(line)
	return ok && s.Kind == KindTitle
}

func (r *Rules) isSectionHeading(line string) bool {
	_, ok := r.matchHeading(line)
	return ok
}

func (r *Rules) hasNonTitleWord(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range r.nonTitle {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func (r *Rules) isBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range r.boilerplate {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasBlockMarker(line string) bool {
	return strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "-") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "+") ||
		orderedMarker.MatchString(line)
}

// cleanTitle strips bold, italic and code wrappers. Single underscores
// are left alone so snake_case names survive.
func cleanTitle(s string) string {
	s = boldSpan.ReplaceAllString(s, "$1")
	s = underscoreBold.ReplaceAllString(s, "$1")
	s = italicSpan.ReplaceAllString(s, "$1")
	s = codeSpan.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
