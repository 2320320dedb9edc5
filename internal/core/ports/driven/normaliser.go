package driven

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Normaliser transforms a submission into a canonical record.
// Implementations never fail on malformed text; they degrade to a
// minimal record with diagnostics instead.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns accepted filename extensions, with dot.
	SupportedExtensions() []string

	// Normalise parses the submission. Errors are reserved for unusable
	// input such as a nil submission or invalid UTF-8.
	Normalise(ctx context.Context, sub *domain.Submission) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Record is the parsed record with ContentHash set.
	Record domain.Record

	// Diagnostics are parse and validation notes.
	Diagnostics []domain.Diagnostic

	// Degraded is true when parsing failed and Record is a fallback.
	Degraded bool
}

// Renderer writes a record back out as a document.
type Renderer interface {
	// Render returns the document text for a record.
	Render(rec *domain.Record) string
}
