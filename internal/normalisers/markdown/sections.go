package markdown

import (
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

var (
	bulletMarker   = regexp.MustCompile(`^[\*\-\+]\s*`)
	numberMarker   = regexp.MustCompile(`^\d+\.\s+`)
	checkboxMarker = regexp.MustCompile(`^\s*\[[\sxX]?\]\s*`)
	boldSpan       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicSpan     = regexp.MustCompile(`\*(.*?)\*`)
	ruleOnly       = regexp.MustCompile(`^[\*_]{3,}$`)
	dateInLine     = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)
)

// SplitSections assigns every non-empty line after a recognised heading
// to that heading's field. Lines before the first heading are dropped,
// as are sections with no content. A repeated heading replaces the
// earlier section.
func (r *Rules) SplitSections(text string) map[string][]string {
	out := make(map[string][]string)

	var current string
	var buf []string
	flush := func() {
		if current != "" && len(buf) > 0 {
			out[current] = buf
		}
	}

	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if s, ok := r.matchHeading(trimmed); ok {
			flush()
			current = s.Field
			buf = nil
			continue
		}
		if current != "" && trimmed != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return out
}

// ParseList strips bullet, number and checkbox markers and bold/italic
// wrappers from each line. Separators and items shorter than three
// characters are dropped.
func ParseList(lines []string) []string {
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}

		line = stripListMarkers(line)
		line = stripInlineEmphasis(line)
		line = strings.TrimSpace(line)

		if len([]rune(line)) > 2 {
			items = append(items, line)
		}
	}
	return items
}

// ParseText strips bold/italic wrappers and joins lines with newlines.
func ParseText(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}
		out = append(out, stripInlineEmphasis(line))
	}
	return strings.Join(out, "\n")
}

// ParseKeyValue splits each line on its first colon. Keys are lowercased
// with '*' removed and spaces replaced by underscores; later keys win.
func ParseKeyValue(lines []string) map[string]string {
	out := make(map[string]string)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}

		key, value, ok := strings.Cut(stripListMarkers(line), ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(key), "*", "")
		key = strings.ReplaceAll(strings.TrimSpace(key), " ", "_")
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// Timeline is a parsed timeline section.
type Timeline struct {
	// Text holds every line that is not a date or milestone line.
	Text       string
	Start      *time.Time
	Completion *time.Time
	Milestones []string
}

// ParseTimeline extracts start and completion dates, milestones and the
// residual text from a timeline section. Unparsable dates are ignored.
func ParseTimeline(lines []string) Timeline {
	var tl Timeline
	var text []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "start date"):
			if d, ok := findDate(line); ok {
				tl.Start = &d
			}
		case strings.Contains(lower, "target completion"), strings.Contains(lower, "completion date"):
			if d, ok := findDate(line); ok {
				tl.Completion = &d
			}
		case strings.Contains(lower, "milestone"):
			m := stripListMarkers(line)
			if len([]rune(m)) > 2 {
				tl.Milestones = append(tl.Milestones, m)
			}
		default:
			text = append(text, line)
		}
	}

	tl.Text = strings.Join(text, "\n")
	return tl
}

// findDate parses the first YYYY-MM-DD or M/D/YYYY date in the line.
func findDate(line string) (time.Time, bool) {
	m := dateInLine.FindString(line)
	if m == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{domain.DateLayout, "1/2/2006"} {
		if d, err := time.Parse(layout, m); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// stripListMarkers removes one leading bullet or number marker, never
// both, and an optional checkbox. A leading "**" is bold text, not a
// bullet, and a number marker needs whitespace after the dot so "2.5s"
// keeps its digits.
func stripListMarkers(line string) string {
	stripped := line
	if !strings.HasPrefix(line, "**") {
		stripped = bulletMarker.ReplaceAllString(line, "")
	}
	if stripped == line {
		stripped = numberMarker.ReplaceAllString(line, "")
	}
	return checkboxMarker.ReplaceAllString(stripped, "")
}

func stripInlineEmphasis(line string) string {
	line = boldSpan.ReplaceAllString(line, "$1")
	return italicSpan.ReplaceAllString(line, "$1")
}

func isSeparator(line string) bool {
	return strings.HasPrefix(line, "---") || ruleOnly.MatchString(line)
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
