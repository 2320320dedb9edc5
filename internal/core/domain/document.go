package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Category classifies a record by what it asks to be built.
type Category string

const (
	// CategoryPlatform (category A) covers infrastructure and platform work.
	CategoryPlatform Category = "platform"

	// CategoryAgent (category B) covers automation and agent work.
	// It is the default when classification is ambiguous.
	CategoryAgent Category = "agent"
)

// ParseCategory parses a category name, accepting the letters A and B.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "platform", "a":
		return CategoryPlatform, nil
	case "agent", "b":
		return CategoryAgent, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
}

// Status is the processing state of a record.
type Status string

const (
	StatusQueue      Status = "queue"
	StatusProcessed  Status = "processed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusQueue, StatusProcessed, StatusInProgress, StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// DateLayout is the wire layout for calendar dates.
const DateLayout = "2006-01-02"

// Record is the canonical representation of one requirement document.
// Every list preserves source order.
type Record struct {
	// ID is the mirror store identifier. Empty until persisted.
	ID string

	// Title is the human-readable title. Never empty after assembly.
	Title string

	// Description is the short summary used for fingerprinting.
	Description string

	// Category is the content classification.
	Category Category

	ProblemStatement string

	// Timeline is the residual free text of the timeline section.
	Timeline string

	TargetUsers               []string
	UserStories               []string
	Requirements              []string
	FunctionalRequirements    []string
	NonFunctionalRequirements []string
	AcceptanceCriteria        []string
	TechnicalRequirements     []string
	SecurityRequirements      []string
	IntegrationRequirements   []string
	DeploymentRequirements    []string
	SuccessMetrics            []string
	Dependencies              []string
	Risks                     []string
	Assumptions               []string
	KeyMilestones             []string

	PlatformRequirements       []string
	InfrastructureRequirements []string
	OperationalRequirements    []string
	AgentCapabilities          []string

	// PerformanceRequirements maps metric name to target.
	PerformanceRequirements map[string]string

	// StartDate and TargetCompletionDate are calendar dates at UTC midnight.
	StartDate            *time.Time
	TargetCompletionDate *time.Time

	// OriginalFilename is the name the document was submitted under.
	OriginalFilename string

	// SourcePath is the authoritative store path this record mirrors.
	// It is the stable identity used by reconciliation.
	SourcePath string

	// FileContent is the untouched source text.
	FileContent string

	// ContentHash is the fingerprint of title and description.
	ContentHash string

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	for _, f := range c.ListFields() {
		*f.Items = slices.Clone(*f.Items)
	}
	c.PerformanceRequirements = maps.Clone(r.PerformanceRequirements)
	if r.StartDate != nil {
		d := *r.StartDate
		c.StartDate = &d
	}
	if r.TargetCompletionDate != nil {
		d := *r.TargetCompletionDate
		c.TargetCompletionDate = &d
	}
	return &c
}

// ListField names one of the record's list fields.
type ListField struct {
	Name  string
	Items *[]string
}

// ListFields returns pointers to every list field keyed by its snake_case
// name, in declaration order. Storage adapters use it to serialise lists.
func (r *Record) ListFields() []ListField {
	return []ListField{
		{"target_users", &r.TargetUsers},
		{"user_stories", &r.UserStories},
		{"requirements", &r.Requirements},
		{"functional_requirements", &r.FunctionalRequirements},
		{"non_functional_requirements", &r.NonFunctionalRequirements},
		{"acceptance_criteria", &r.AcceptanceCriteria},
		{"technical_requirements", &r.TechnicalRequirements},
		{"security_requirements", &r.SecurityRequirements},
		{"integration_requirements", &r.IntegrationRequirements},
		{"deployment_requirements", &r.DeploymentRequirements},
		{"success_metrics", &r.SuccessMetrics},
		{"dependencies", &r.Dependencies},
		{"risks", &r.Risks},
		{"assumptions", &r.Assumptions},
		{"key_milestones", &r.KeyMilestones},
		{"platform_requirements", &r.PlatformRequirements},
		{"infrastructure_requirements", &r.InfrastructureRequirements},
		{"operational_requirements", &r.OperationalRequirements},
		{"agent_capabilities", &r.AgentCapabilities},
	}
}

// RecordPatch is a partial update. Nil fields are left unchanged.
type RecordPatch struct {
	Status     *Status
	Category   *Category
	SourcePath *string
}

// Apply copies the set fields of the patch onto the record.
func (p RecordPatch) Apply(r *Record) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.SourcePath != nil {
		r.SourcePath = *p.SourcePath
	}
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Status == nil && p.Category == nil && p.SourcePath == nil
}

// RecordFilter narrows a record listing.
type RecordFilter struct {
	Category Category
	Status   Status

	// Offset and Limit page the result. Limit 0 means no limit.
	Offset int
	Limit  int
}

// Matches reports whether the record passes the category and status filters.
func (f RecordFilter) Matches(r *Record) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice.
func (f RecordFilter) Page(records []Record) []Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}
