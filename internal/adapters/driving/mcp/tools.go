package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// SubmitInput is the input schema for the submit_document tool.
type SubmitInput struct {
	Content  string `json:"content" jsonschema:"the full markdown or plain text of the requirement document"`
	Filename string `json:"filename,omitempty" jsonschema:"optional file name; must end in .md or .txt when given"`
}

// SubmitOutput is the output schema for the submit_document tool.
type SubmitOutput struct {
	Created     bool         `json:"created"`
	Record      RecordOutput `json:"record"`
	Diagnostics []string     `json:"diagnostics"`
}

// ReconcileInput is the input schema for the reconcile tool.
type ReconcileInput struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"plan the changes without applying them"`
}

// ReconcileOutput is the output schema for the reconcile tool.
type ReconcileOutput struct {
	DryRun             bool     `json:"dry_run"`
	Converged          bool     `json:"converged"`
	AuthoritativeCount int      `json:"authoritative_count"`
	MirrorCountBefore  int      `json:"mirror_count_before"`
	MirrorCountAfter   int      `json:"mirror_count_after"`
	Pruned             int      `json:"pruned"`
	Filled             int      `json:"filled"`
	Repaired           int      `json:"repaired"`
	Relinked           int      `json:"relinked"`
	Skipped            int      `json:"skipped"`
	Failed             int      `json:"failed"`
	Warnings           []string `json:"warnings"`
}

// FindInput is the input schema for the find_document tool.
type FindInput struct {
	ID          string `json:"id,omitempty" jsonschema:"record ID"`
	Fingerprint string `json:"fingerprint,omitempty" jsonschema:"SHA-256 content hash of the document"`
}

// FindOutput is the output schema for the find_document tool.
type FindOutput struct {
	Record RecordOutput `json:"record"`
}

// RecordOutput is the tool form of a record. Dates are YYYY-MM-DD.
type RecordOutput struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Category             string            `json:"category"`
	Status               string            `json:"status"`
	ProblemStatement     string            `json:"problem_statement,omitempty"`
	Requirements         []string          `json:"requirements"`
	UserStories          []string          `json:"user_stories"`
	AcceptanceCriteria   []string          `json:"acceptance_criteria"`
	Performance          map[string]string `json:"performance_requirements,omitempty"`
	StartDate            string            `json:"start_date,omitempty"`
	TargetCompletionDate string            `json:"target_completion_date,omitempty"`
	SourcePath           string            `json:"source_path,omitempty"`
	ContentHash          string            `json:"content_hash"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_document",
		Description: "Submit a requirement document. Identical content returns the existing record.",
	}, s.handleSubmit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reconcile",
		Description: "Bring the database mirror in line with the authoritative documents",
	}, s.handleReconcile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_document",
		Description: "Look up a record by ID or by content fingerprint",
	}, s.handleFind)
}

func (s *Server) handleSubmit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitInput,
) (*mcp.CallToolResult, SubmitOutput, error) {
	res, err := s.ports.Ingest.Submit(ctx, domain.Submission{
		Content:  []byte(input.Content),
		Filename: input.Filename,
		Channel:  domain.ChannelMCP,
	})
	if err != nil {
		return nil, SubmitOutput{}, err
	}

	out := SubmitOutput{
		Created:     res.Created,
		Record:      recordOutput(res.Record),
		Diagnostics: make([]string, 0, len(res.Diagnostics)),
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %s", d.Severity, d.Message))
	}
	return nil, out, nil
}

func (s *Server) handleReconcile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReconcileInput,
) (*mcp.CallToolResult, ReconcileOutput, error) {
	if s.ports.Reconciler == nil {
		return nil, ReconcileOutput{}, domain.ErrNotConfigured
	}

	report, err := s.ports.Reconciler.Reconcile(ctx, domain.ReconcileOptions{DryRun: input.DryRun})
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return nil, ReconcileOutput{}, errors.New("another reconciliation is already running")
		}
		return nil, ReconcileOutput{}, err
	}

	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return nil, ReconcileOutput{
		DryRun:             report.DryRun,
		Converged:          report.Converged(),
		AuthoritativeCount: report.AuthoritativeCount,
		MirrorCountBefore:  report.MirrorCountBefore,
		MirrorCountAfter:   report.MirrorCountAfter,
		Pruned:             report.Pruned,
		Filled:             report.Filled,
		Repaired:           report.Repaired,
		Relinked:           report.Relinked,
		Skipped:            report.Skipped,
		Failed:             report.Failed,
		Warnings:           warnings,
	}, nil
}

func (s *Server) handleFind(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindInput,
) (*mcp.CallToolResult, FindOutput, error) {
	if s.ports.Documents == nil {
		return nil, FindOutput{}, domain.ErrNotConfigured
	}

	id := strings.TrimSpace(input.ID)
	hash := strings.TrimSpace(input.Fingerprint)

	var (
		rec *domain.Record
		err error
	)
	switch {
	case id != "" && hash != "":
		return nil, FindOutput{}, fmt.Errorf("%w: give either id or fingerprint, not both", domain.ErrInvalidInput)
	case id != "":
		rec, err = s.ports.Documents.Get(ctx, id)
	case hash != "":
		rec, err = s.ports.Documents.FindByFingerprint(ctx, hash)
	default:
		return nil, FindOutput{}, fmt.Errorf("%w: id or fingerprint is required", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, FindOutput{}, err
	}
	return nil, FindOutput{Record: recordOutput(rec)}, nil
}

func recordOutput(r *domain.Record) RecordOutput {
	if r == nil {
		return RecordOutput{}
	}
	out := RecordOutput{
		ID:                 r.ID,
		Title:              r.Title,
		Description:        r.Description,
		Category:           string(r.Category),
		Status:             string(r.Status),
		ProblemStatement:   r.ProblemStatement,
		Requirements:       nonNil(r.Requirements),
		UserStories:        nonNil(r.UserStories),
		AcceptanceCriteria: nonNil(r.AcceptanceCriteria),
		Performance:        r.PerformanceRequirements,
		SourcePath:         r.SourcePath,
		ContentHash:        r.ContentHash,
	}
	if r.StartDate != nil {
		out.StartDate = r.StartDate.Format(domain.DateLayout)
	}
	if r.TargetCompletionDate != nil {
		out.TargetCompletionDate = r.TargetCompletionDate.Format(domain.DateLayout)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
