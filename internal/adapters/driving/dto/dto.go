// Package dto holds the wire representations shared by the CLI, HTTP and
// MCP adapters. Field names are snake_case in both JSON and YAML.
package dto

import (
	"time"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
)

// Record is the external form of a mirrored record.
type Record struct {
	ID                         string            `json:"id" yaml:"id"`
	Title                      string            `json:"title" yaml:"title"`
	Description                string            `json:"description" yaml:"description"`
	Category                   string            `json:"category" yaml:"category"`
	Status                     string            `json:"status" yaml:"status"`
	ProblemStatement           string            `json:"problem_statement,omitempty" yaml:"problem_statement,omitempty"`
	Timeline                   string            `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	TargetUsers                []string          `json:"target_users" yaml:"target_users"`
	UserStories                []string          `json:"user_stories" yaml:"user_stories"`
	Requirements               []string          `json:"requirements" yaml:"requirements"`
	FunctionalRequirements     []string          `json:"functional_requirements" yaml:"functional_requirements"`
	NonFunctionalRequirements  []string          `json:"non_functional_requirements" yaml:"non_functional_requirements"`
	AcceptanceCriteria         []string          `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	TechnicalRequirements      []string          `json:"technical_requirements" yaml:"technical_requirements"`
	SecurityRequirements       []string          `json:"security_requirements" yaml:"security_requirements"`
	IntegrationRequirements    []string          `json:"integration_requirements" yaml:"integration_requirements"`
	DeploymentRequirements     []string          `json:"deployment_requirements" yaml:"deployment_requirements"`
	SuccessMetrics             []string          `json:"success_metrics" yaml:"success_metrics"`
	Dependencies               []string          `json:"dependencies" yaml:"dependencies"`
	Risks                      []string          `json:"risks" yaml:"risks"`
	Assumptions                []string          `json:"assumptions" yaml:"assumptions"`
	KeyMilestones              []string          `json:"key_milestones" yaml:"key_milestones"`
	PlatformRequirements       []string          `json:"platform_requirements" yaml:"platform_requirements"`
	InfrastructureRequirements []string          `json:"infrastructure_requirements" yaml:"infrastructure_requirements"`
	OperationalRequirements    []string          `json:"operational_requirements" yaml:"operational_requirements"`
	AgentCapabilities          []string          `json:"agent_capabilities" yaml:"agent_capabilities"`
	PerformanceRequirements    map[string]string `json:"performance_requirements" yaml:"performance_requirements"`
	StartDate                  string            `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	TargetCompletionDate       string            `json:"target_completion_date,omitempty" yaml:"target_completion_date,omitempty"`
	OriginalFilename           string            `json:"original_filename,omitempty" yaml:"original_filename,omitempty"`
	SourcePath                 string            `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	ContentHash                string            `json:"content_hash" yaml:"content_hash"`
	CreatedAt                  time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt                  time.Time         `json:"updated_at" yaml:"updated_at"`
}

// FromRecord converts a domain record. Nil lists become empty lists.
func FromRecord(r *domain.Record) Record {
	out := Record{
		ID:                         r.ID,
		Title:                      r.Title,
		Description:                r.Description,
		Category:                   string(r.Category),
		Status:                     string(r.Status),
		ProblemStatement:           r.ProblemStatement,
		Timeline:                   r.Timeline,
		TargetUsers:                list(r.TargetUsers),
		UserStories:                list(r.UserStories),
		Requirements:               list(r.Requirements),
		FunctionalRequirements:     list(r.FunctionalRequirements),
		NonFunctionalRequirements:  list(r.NonFunctionalRequirements),
		AcceptanceCriteria:         list(r.AcceptanceCriteria),
		TechnicalRequirements:      list(r.TechnicalRequirements),
		SecurityRequirements:       list(r.SecurityRequirements),
		IntegrationRequirements:    list(r.IntegrationRequirements),
		DeploymentRequirements:     list(r.DeploymentRequirements),
		SuccessMetrics:             list(r.SuccessMetrics),
		Dependencies:               list(r.Dependencies),
		Risks:                      list(r.Risks),
		Assumptions:                list(r.Assumptions),
		KeyMilestones:              list(r.KeyMilestones),
		PlatformRequirements:       list(r.PlatformRequirements),
		InfrastructureRequirements: list(r.InfrastructureRequirements),
		OperationalRequirements:    list(r.OperationalRequirements),
		AgentCapabilities:          list(r.AgentCapabilities),
		PerformanceRequirements:    r.PerformanceRequirements,
		StartDate:                  date(r.StartDate),
		TargetCompletionDate:       date(r.TargetCompletionDate),
		OriginalFilename:           r.OriginalFilename,
		SourcePath:                 r.SourcePath,
		ContentHash:                r.ContentHash,
		CreatedAt:                  r.CreatedAt.UTC(),
		UpdatedAt:                  r.UpdatedAt.UTC(),
	}
	if out.PerformanceRequirements == nil {
		out.PerformanceRequirements = map[string]string{}
	}
	return out
}

// Summary is the short form used in listings.
type Summary struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Category    string    `json:"category" yaml:"category"`
	Status      string    `json:"status" yaml:"status"`
	SourcePath  string    `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	ContentHash string    `json:"content_hash" yaml:"content_hash"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// FromRecordSummary converts a domain record to its listing form.
func FromRecordSummary(r *domain.Record) Summary {
	return Summary{
		ID:          r.ID,
		Title:       r.Title,
		Category:    string(r.Category),
		Status:      string(r.Status),
		SourcePath:  r.SourcePath,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// RecordList is a page of records.
type RecordList struct {
	Total   int       `json:"total" yaml:"total"`
	Offset  int       `json:"offset" yaml:"offset"`
	Records []Summary `json:"records" yaml:"records"`
}

// FromRecords builds a listing page.
func FromRecords(records []domain.Record, total, offset int) RecordList {
	out := RecordList{Total: total, Offset: offset, Records: make([]Summary, 0, len(records))}
	for i := range records {
		out.Records = append(out.Records, FromRecordSummary(&records[i]))
	}
	return out
}

// Diagnostic is a parse note.
type Diagnostic struct {
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// SubmitResult is the outcome of an intake call.
type SubmitResult struct {
	Created     bool         `json:"created" yaml:"created"`
	Record      Record       `json:"record" yaml:"record"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

// FromSubmitResult converts an ingest result.
func FromSubmitResult(res *domain.SubmitResult) SubmitResult {
	out := SubmitResult{Created: res.Created, Diagnostics: make([]Diagnostic, 0, len(res.Diagnostics))}
	if res.Record != nil {
		out.Record = FromRecord(res.Record)
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Severity: string(d.Severity), Message: d.Message})
	}
	return out
}

// Action is one reconciliation change.
type Action struct {
	Kind     string `json:"kind" yaml:"kind"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	RecordID string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is a reconciliation summary.
type Report struct {
	StartedAt          time.Time `json:"started_at" yaml:"started_at"`
	DurationMS         int64     `json:"duration_ms" yaml:"duration_ms"`
	DryRun             bool      `json:"dry_run" yaml:"dry_run"`
	Converged          bool      `json:"converged" yaml:"converged"`
	AuthoritativeCount int       `json:"authoritative_count" yaml:"authoritative_count"`
	MirrorCountBefore  int       `json:"mirror_count_before" yaml:"mirror_count_before"`
	MirrorCountAfter   int       `json:"mirror_count_after" yaml:"mirror_count_after"`
	Pruned             int       `json:"pruned" yaml:"pruned"`
	Filled             int       `json:"filled" yaml:"filled"`
	Repaired           int       `json:"repaired" yaml:"repaired"`
	Relinked           int       `json:"relinked" yaml:"relinked"`
	Skipped            int       `json:"skipped" yaml:"skipped"`
	Unchanged          int       `json:"unchanged" yaml:"unchanged"`
	Failed             int       `json:"failed" yaml:"failed"`
	Actions            []Action  `json:"actions" yaml:"actions"`
	Warnings           []string  `json:"warnings" yaml:"warnings"`
}

// FromReport converts a reconciliation report.
func FromReport(r *domain.ReconcileReport) Report {
	out := Report{
		StartedAt:          r.StartedAt.UTC(),
		DurationMS:         r.Duration().Milliseconds(),
		DryRun:             r.DryRun,
		Converged:          r.Converged(),
		AuthoritativeCount: r.AuthoritativeCount,
		MirrorCountBefore:  r.MirrorCountBefore,
		MirrorCountAfter:   r.MirrorCountAfter,
		Pruned:             r.Pruned,
		Filled:             r.Filled,
		Repaired:           r.Repaired,
		Relinked:           r.Relinked,
		Skipped:            r.Skipped,
		Unchanged:          r.Unchanged,
		Failed:             r.Failed,
		Actions:            make([]Action, 0, len(r.Actions)),
		Warnings:           list(r.Warnings),
	}
	for _, a := range r.Actions {
		out.Actions = append(out.Actions, Action{
			Kind: string(a.Kind), Title: a.Title, Path: a.Path, RecordID: a.RecordID, Error: a.Error,
		})
	}
	return out
}

// Markdown is a rendered record.
type Markdown struct {
	RecordID string `json:"record_id" yaml:"record_id"`
	Filename string `json:"filename" yaml:"filename"`
	Markdown string `json:"markdown" yaml:"markdown"`
}

// FromMarkdown converts a markdown export.
func FromMarkdown(m *driving.MarkdownExport) Markdown {
	return Markdown{RecordID: m.RecordID, Filename: m.Filename, Markdown: m.Markdown}
}

// Export is an export summary.
type Export struct {
	Written []string `json:"written" yaml:"written"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	Failed  int      `json:"failed" yaml:"failed"`
}

// FromExport converts an export report.
func FromExport(r *driving.ExportReport) Export {
	return Export{Written: list(r.Written), Skipped: r.Skipped, Failed: r.Failed}
}

func list(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(domain.DateLayout)
}
