package markdown

import (
	"sort"
	"strings"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Render writes a record as markdown using the default rules.
func Render(rec *domain.Record) string {
	return DefaultRules().Render(rec)
}

// Render writes a record as markdown in section order. Empty fields are
// omitted. Assembling the output yields the same field values.
func (r *Rules) Render(rec *domain.Record) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(rec.Title)
	b.WriteString("\n")

	for _, s := range r.sections {
		body := renderSection(rec, &s)
		if body == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat("#", s.Levels[0]))
		b.WriteString(" ")
		b.WriteString(s.Label)
		b.WriteString("\n")
		b.WriteString(body)
	}

	return b.String()
}

func renderSection(rec *domain.Record, s *section) string {
	var b strings.Builder
	switch s.Kind {
	case KindText:
		if v := *textField(rec, s.Field); v != "" {
			b.WriteString(v)
			b.WriteString("\n")
		}
	case KindList:
		writeItems(&b, *listField(rec, s.Field))
	case KindKeyValue:
		keys := make([]string, 0, len(rec.PerformanceRequirements))
		for k := range rec.PerformanceRequirements {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("- " + k + ": " + rec.PerformanceRequirements[k] + "\n")
		}
	case KindTimeline:
		if rec.Timeline != "" {
			b.WriteString(rec.Timeline)
			b.WriteString("\n")
		}
		if rec.StartDate != nil {
			b.WriteString("- Start Date: " + rec.StartDate.Format(domain.DateLayout) + "\n")
		}
		if rec.TargetCompletionDate != nil {
			b.WriteString("- Target Completion: " + rec.TargetCompletionDate.Format(domain.DateLayout) + "\n")
		}
		for _, m := range rec.KeyMilestones {
			if !strings.Contains(strings.ToLower(m), "milestone") {
				m = "Milestone: " + m
			}
			b.WriteString("- " + m + "\n")
		}
	}
	return b.String()
}

func writeItems(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}
