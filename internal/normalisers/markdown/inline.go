package markdown

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// inlineField matches "**Label:** value" and "**Label**: value".
var inlineField = regexp.MustCompile(`(?i)^\*\*([a-z][a-z \-]*?)\s*(?::\*\*|\*\*\s*:)\s*(.*)$`)

var listItem = regexp.MustCompile(`^(?:[\*\-\+]\s+|\d+\.\s*)`)

// inline labels and the fields they fill.
var inlineText = map[string]string{
	"description":       FieldDescription,
	"problem statement": FieldProblemStatement,
}

// extractInline fills description, problem statement and requirements
// from single-line "**Field:** value" markers. The first occurrence of
// each field wins. A marker with no value on its line takes the
// following lines up to the next blank line, heading or marker.
func extractInline(r *domain.Record, text string) []string {
	lines := splitLines(text)
	var filled []string

	for i := 0; i < len(lines); i++ {
		m := inlineField.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])

		if label == "requirements" {
			if len(r.Requirements) > 0 {
				continue
			}
			items := collectBullets(lines[i+1:])
			if len(items) > 0 {
				r.Requirements = items
				filled = append(filled, FieldRequirements)
			}
			continue
		}

		field, ok := inlineText[label]
		if !ok {
			continue
		}
		dst := textField(r, field)
		if *dst != "" {
			continue
		}
		if value == "" {
			value = collectParagraph(lines[i+1:])
		}
		if value = stripInlineEmphasis(value); value != "" {
			*dst = value
			filled = append(filled, field)
		}
	}

	return filled
}

// collectBullets gathers the list items directly after a marker line.
// Leading blank lines are skipped; the first non-item line ends the list.
func collectBullets(lines []string) []string {
	var raw []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && len(raw) == 0 {
			continue
		}
		if !listItem.MatchString(trimmed) || strings.HasPrefix(trimmed, "**") {
			break
		}
		raw = append(raw, trimmed)
	}
	return ParseList(raw)
}

func collectParagraph(lines []string) string {
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) == 0 {
				continue
			}
			break
		}
		if strings.HasPrefix(trimmed, "#") || inlineField.MatchString(trimmed) || isSeparator(trimmed) {
			break
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
