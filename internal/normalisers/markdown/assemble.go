package markdown

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

// Result is the outcome of assembling one document. Record is always
// set; Degraded marks a minimal fallback record built after an internal
// failure.
type Result struct {
	Record         *domain.Record
	Diagnostics    []domain.Diagnostic
	Classification Classification
	TitleSource    TitleSource
	Degraded       bool
}

// Parser assembles canonical records using a rule set.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	rules *Rules
}

// NewParser creates a parser. A nil rule set means DefaultRules.
func NewParser(rules *Rules) *Parser {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Parser{rules: rules}
}

// Rules returns the parser's rule set.
func (p *Parser) Rules() *Rules {
	return p.rules
}

// Assemble parses text with the default rules.
func Assemble(text, filename string) Result {
	return NewParser(nil).Assemble(text, filename)
}

// Assemble builds a canonical record from raw text and an optional
// filename. Inline "**Field:**" markers are applied before sections and
// always win. It never fails: on an internal error it returns a minimal
// record with a diagnostic.
func (p *Parser) Assemble(text, filename string) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = p.fallback(text, filename, fmt.Errorf("%v", rec))
		}
	}()

	rec := &domain.Record{
		PerformanceRequirements: map[string]string{},
		OriginalFilename:        filename,
		FileContent:             text,
	}
	for _, f := range rec.ListFields() {
		*f.Items = []string{}
	}

	var diags []domain.Diagnostic

	title, source := p.rules.ExtractTitle(text)
	rec.Title = title
	if source == TitleFromPlaceholder || source == TitleFromFirstLine {
		diags = append(diags, warnf("title taken from %s", source))
	}

	inlined := extractInline(rec, text)
	if len(inlined) > 0 {
		diags = append(diags, infof("inline fields: %v", inlined))
	}

	sections := p.rules.SplitSections(text)
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := p.rules.sectionByField(name)
		if s == nil || s.Kind == KindTitle {
			continue
		}
		apply(rec, s, sections[name])
	}

	cls := p.rules.Classify(text, filename)
	rec.Category = cls.Category

	if rec.Description == "" {
		diags = append(diags, warnf("no description found"))
	}

	rec.ContentHash = fingerprint.Fingerprint(rec.Title, rec.Description)

	return Result{
		Record:         rec,
		Diagnostics:    diags,
		Classification: cls,
		TitleSource:    source,
	}
}

// fallbackTitle is used when the rule set itself is unusable.
const fallbackTitle = "Untitled Document"

func (p *Parser) fallback(text, filename string, cause error) Result {
	title := fallbackTitle
	if p.rules != nil && p.rules.placeholder != "" {
		title = p.rules.placeholder
	}
	rec := &domain.Record{
		Title:                   title,
		Description:             fingerprint.Truncate(text, fingerprint.DescriptionPrefix),
		Category:                domain.CategoryAgent,
		PerformanceRequirements: map[string]string{},
		OriginalFilename:        filename,
		FileContent:             text,
	}
	for _, f := range rec.ListFields() {
		*f.Items = []string{}
	}
	rec.ContentHash = fingerprint.Fingerprint(rec.Title, rec.Description)

	return Result{
		Record: rec,
		Diagnostics: []domain.Diagnostic{{
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("parse failed, stored minimal record: %v", cause),
		}},
		Classification: Classification{Category: domain.CategoryAgent, Reason: "fallback"},
		TitleSource:    TitleFromPlaceholder,
		Degraded:       true,
	}
}

func (r *Rules) sectionByField(field string) *section {
	for i := range r.sections {
		if r.sections[i].Field == field {
			return &r.sections[i]
		}
	}
	return nil
}

func warnf(format string, args ...any) domain.Diagnostic {
	return domain.Diagnostic{Severity: domain.SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

func infof(format string, args ...any) domain.Diagnostic {
	return domain.Diagnostic{Severity: domain.SeverityInfo, Message: fmt.Sprintf(format, args...)}
}
