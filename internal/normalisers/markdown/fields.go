package markdown

import (
	"fmt"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Field names for the scalar and map fields. List fields use the names
// from domain.Record.ListFields.
const (
	FieldTitle                   = "title"
	FieldDescription             = "description"
	FieldProblemStatement        = "problem_statement"
	FieldTimeline                = "timeline"
	FieldPerformanceRequirements = "performance_requirements"
	FieldRequirements            = "requirements"
)

func textField(r *domain.Record, name string) *string {
	switch name {
	case FieldDescription:
		return &r.Description
	case FieldProblemStatement:
		return &r.ProblemStatement
	}
	return nil
}

func listField(r *domain.Record, name string) *[]string {
	for _, f := range r.ListFields() {
		if f.Name == name {
			return f.Items
		}
	}
	return nil
}

// checkBinding rejects rules whose field cannot hold the section kind.
func checkBinding(field string, kind Kind) error {
	var probe domain.Record

	var ok bool
	switch kind {
	case KindList:
		ok = listField(&probe, field) != nil
	case KindText:
		ok = textField(&probe, field) != nil
	case KindKeyValue:
		ok = field == FieldPerformanceRequirements
	case KindTimeline:
		ok = field == FieldTimeline
	case KindTitle:
		ok = field == FieldTitle
	default:
		return fmt.Errorf("%w: unknown section kind %q", domain.ErrInvalidInput, kind)
	}

	if !ok {
		return fmt.Errorf("%w: field %q cannot hold a %s section", domain.ErrInvalidInput, field, kind)
	}
	return nil
}

// apply stores a parsed section on the record unless the field is
// already set. Returns true when the record changed.
//
//nolint:gocyclo // One branch per section kind.
func apply(r *domain.Record, s *section, lines []string) bool {
	switch s.Kind {
	case KindList:
		dst := listField(r, s.Field)
		if len(*dst) > 0 {
			return false
		}
		items := ParseList(lines)
		if len(items) == 0 {
			return false
		}
		*dst = items
	case KindText:
		dst := textField(r, s.Field)
		if *dst != "" {
			return false
		}
		text := ParseText(lines)
		if text == "" {
			return false
		}
		*dst = text
	case KindKeyValue:
		if len(r.PerformanceRequirements) > 0 {
			return false
		}
		kv := ParseKeyValue(lines)
		if len(kv) == 0 {
			return false
		}
		r.PerformanceRequirements = kv
	case KindTimeline:
		tl := ParseTimeline(lines)
		changed := false
		if r.Timeline == "" && tl.Text != "" {
			r.Timeline = tl.Text
			changed = true
		}
		if r.StartDate == nil && tl.Start != nil {
			r.StartDate = tl.Start
			changed = true
		}
		if r.TargetCompletionDate == nil && tl.Completion != nil {
			r.TargetCompletionDate = tl.Completion
			changed = true
		}
		if len(r.KeyMilestones) == 0 && len(tl.Milestones) > 0 {
			r.KeyMilestones = tl.Milestones
			changed = true
		}
		return changed
	default:
		return false
	}
	return true
}
