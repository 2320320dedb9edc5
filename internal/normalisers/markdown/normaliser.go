package markdown

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

// Ensure Normaliser implements the interfaces.
var (
	_ driven.Normaliser = (*Normaliser)(nil)
	_ driven.Renderer   = (*Normaliser)(nil)
)

// Normaliser handles markdown and plain-text requirement documents.
type Normaliser struct {
	parser *Parser
}

// New creates a normaliser. A nil rule set means DefaultRules.
func New(rules *Rules) *Normaliser {
	return &Normaliser{parser: NewParser(rules)}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown", "text/plain"}
}

// SupportedExtensions returns accepted filename extensions.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".txt"}
}

// Normalise parses a submission into a record and attaches validation
// diagnostics. SourcePath is carried over from the submission.
func (n *Normaliser) Normalise(ctx context.Context, sub *domain.Submission) (*driven.NormaliseResult, error) {
	if sub == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(sub.Content) {
		return nil, fmt.Errorf("%w: content must be UTF-8 encoded", domain.ErrInvalidInput)
	}

	res := n.parser.Assemble(string(sub.Content), sub.Filename)
	res.Record.SourcePath = sub.SourcePath

	diags := append(res.Diagnostics, Validate(res.Record).Diagnostics()...)

	return &driven.NormaliseResult{
		Record:      *res.Record,
		Diagnostics: diags,
		Degraded:    res.Degraded,
	}, nil
}

// Render writes a record as markdown using the normaliser's rules.
func (n *Normaliser) Render(rec *domain.Record) string {
	return n.parser.rules.Render(rec)
}
