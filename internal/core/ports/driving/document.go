package driving

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// DocumentService queries and manages mirrored records.
type DocumentService interface {
	// List returns a page of records and the total matching the filter.
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, int, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// FindByFingerprint retrieves the record with the given content hash.
	FindByFingerprint(ctx context.Context, hash string) (*domain.Record, error)

	// Update changes a record's status or category.
	Update(ctx context.Context, id string, patch domain.RecordPatch) (*domain.Record, error)

	// Delete removes a record from the mirror store. With purge set the
	// authoritative file is removed too, so reconciliation will not
	// restore the record.
	Delete(ctx context.Context, id string, purge bool) error

	// Markdown renders a record as markdown with a suggested filename.
	Markdown(ctx context.Context, id string) (*MarkdownExport, error)

	// Export writes every record without an authoritative file into the
	// authoritative store. An empty date means today.
	Export(ctx context.Context, date string) (*ExportReport, error)
}

// MarkdownExport is a rendered record.
type MarkdownExport struct {
	RecordID string
	Filename string
	Markdown string
}

// ExportReport summarises an export run.
type ExportReport struct {
	// Written lists the paths created in the authoritative store.
	Written []string

	// Skipped counts records that already had a file.
	Skipped int

	// Failed counts records that could not be written.
	Failed int
}
