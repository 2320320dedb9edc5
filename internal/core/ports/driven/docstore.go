package driven

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// MirrorStore is the queryable, disposable copy of the authoritative
// store. Stores should enforce uniqueness of ContentHash and report a
// violation as domain.ErrAlreadyExists.
type MirrorStore interface {
	// List returns every record, newest first.
	List(ctx context.Context) ([]domain.Record, error)

	// Get retrieves a record by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// GetByFingerprint retrieves the record with the given content hash.
	// Returns domain.ErrNotFound if absent.
	GetByFingerprint(ctx context.Context, hash string) (*domain.Record, error)

	// GetByTitle retrieves the oldest record with exactly this title.
	// Returns domain.ErrNotFound if absent.
	GetByTitle(ctx context.Context, title string) (*domain.Record, error)

	// Insert stores a new record. The record must carry an ID.
	Insert(ctx context.Context, rec *domain.Record) (*domain.Record, error)

	// Update applies a partial update and bumps UpdatedAt.
	// Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, id string, patch domain.RecordPatch) (*domain.Record, error)

	// Delete removes a record. Returns false if it did not exist.
	Delete(ctx context.Context, id string) (bool, error)
}
