package markdown

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

//go:embed rules.toml
var defaultRulesTOML []byte

// Kind selects how a section's lines are parsed.
type Kind string

const (
	KindList     Kind = "list"
	KindText     Kind = "text"
	KindKeyValue Kind = "keyvalue"
	KindTimeline Kind = "timeline"

	// KindTitle sections only feed title extraction.
	KindTitle Kind = "title"
)

// SectionRule maps a heading to a record field.
type SectionRule struct {
	Field  string `toml:"field"`
	Levels []int  `toml:"levels"`
	Label  string `toml:"label"`
	Kind   Kind   `toml:"kind"`
}

// Override forces a category when any phrase occurs in the text.
type Override struct {
	Phrases  []string `toml:"phrases"`
	Category string   `toml:"category"`
}

// ClassifyRules drive category classification.
type ClassifyRules struct {
	FilenameHints    []string   `toml:"filename_hints"`
	Markers          []string   `toml:"markers"`
	PlatformKeywords []string   `toml:"platform_keywords"`
	AgentKeywords    []string   `toml:"agent_keywords"`
	Overrides        []Override `toml:"overrides"`
}

type ruleFile struct {
	PlaceholderTitle string        `toml:"placeholder_title"`
	Boilerplate      []string      `toml:"boilerplate"`
	NonTitleHeadings []string      `toml:"non_title_headings"`
	Sections         []SectionRule `toml:"sections"`
	Classify         ClassifyRules `toml:"classify"`
}

// Rules is a compiled, immutable rule set. Safe for concurrent use.
type Rules struct {
	placeholder string
	boilerplate []string
	nonTitle    []string
	sections    []section
	classify    compiledClassify
}

type section struct {
	SectionRule
	pattern *regexp.Regexp
}

type compiledClassify struct {
	filenameHints []domain.Category
	markers       []string
	platform      []string
	agent         []string
	overrides     []compiledOverride
}

type compiledOverride struct {
	phrases  []string
	category domain.Category
}

var defaultRules = sync.OnceValue(func() *Rules {
	r, err := ParseRules(defaultRulesTOML)
	if err != nil {
		panic(fmt.Sprintf("markdown: embedded rules: %v", err))
	}
	return r
})

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	return defaultRules()
}

// LoadRules reads a TOML rules file. An empty path returns DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a TOML rule set.
func ParseRules(data []byte) (*Rules, error) {
	var f ruleFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return compile(f)
}

//nolint:gocyclo // Validation of each rule table is sequential and flat.
func compile(f ruleFile) (*Rules, error) {
	if strings.TrimSpace(f.PlaceholderTitle) == "" {
		return nil, fmt.Errorf("%w: placeholder_title is empty", domain.ErrInvalidInput)
	}
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections defined", domain.ErrInvalidInput)
	}

	r := &Rules{
		placeholder: f.PlaceholderTitle,
		boilerplate: lowerAll(f.Boilerplate),
		nonTitle:    lowerAll(f.NonTitleHeadings),
	}

	seen := make(map[string]bool, len(f.Sections))
	for _, s := range f.Sections {
		if seen[s.Field] {
			return nil, fmt.Errorf("%w: duplicate section field %q", domain.ErrInvalidInput, s.Field)
		}
		seen[s.Field] = true

		if err := checkBinding(s.Field, s.Kind); err != nil {
			return nil, err
		}
		pattern, err := headingPattern(s.Levels, s.Label)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", s.Field, err)
		}
		r.sections = append(r.sections, section{SectionRule: s, pattern: pattern})
	}

	for _, hint := range f.Classify.FilenameHints {
		c, err := domain.ParseCategory(hint)
		if err != nil {
			return nil, fmt.Errorf("filename hint: %w", err)
		}
		r.classify.filenameHints = append(r.classify.filenameHints, c)
	}
	for _, o := range f.Classify.Overrides {
		c, err := domain.ParseCategory(o.Category)
		if err != nil {
			return nil, fmt.Errorf("override: %w", err)
		}
		r.classify.overrides = append(r.classify.overrides, compiledOverride{
			phrases:  lowerAll(o.Phrases),
			category: c,
		})
	}
	r.classify.markers = lowerAll(f.Classify.Markers)
	r.classify.platform = lowerAll(f.Classify.PlatformKeywords)
	r.classify.agent = lowerAll(f.Classify.AgentKeywords)

	return r, nil
}

// headingPattern builds ^(#..)\s*\*?\*?Label\*?\*?\s*$ for the given levels.
func headingPattern(levels []int, label string) (*regexp.Regexp, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("%w: empty label", domain.ErrInvalidInput)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no heading levels", domain.ErrInvalidInput)
	}

	hashes := make([]string, 0, len(levels))
	for _, l := range levels {
		if l < 1 || l > 6 {
			return nil, fmt.Errorf("%w: heading level %d", domain.ErrInvalidInput, l)
		}
		hashes = append(hashes, strings.Repeat("#", l))
	}

	expr := `(?i)^(?:` + strings.Join(hashes, "|") + `)\s*\*?\*?` +
		regexp.QuoteMeta(label) + `\*?\*?\s*$`
	return regexp.Compile(expr)
}

// Placeholder returns the title used when nothing better is found.
func (r *Rules) Placeholder() string {
	return r.placeholder
}

// Sections returns the section rules in declaration order.
func (r *Rules) Sections() []SectionRule {
	out := make([]SectionRule, len(r.sections))
	for i, s := range r.sections {
		out[i] = s.SectionRule
		out[i].Levels = slices.Clone(s.Levels)
	}
	return out
}

// matchHeading returns the section whose heading matches the trimmed line.
func (r *Rules) matchHeading(line string) (*section, bool) {
	for i := range r.sections {
		if r.sections[i].pattern.MatchString(line) {
			return &r.sections[i], true
		}
	}
	return nil, false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
