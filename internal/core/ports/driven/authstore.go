package driven

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// AuthoritativeStore is the file-based source of truth. Paths are
// relative to the store root and use forward slashes.
type AuthoritativeStore interface {
	// List returns every document in the store.
	List(ctx context.Context) ([]domain.AuthoritativeEntry, error)

	// Read returns a single document. Returns domain.ErrNotFound if absent.
	Read(ctx context.Context, path string) (*domain.AuthoritativeEntry, error)

	// Write creates or replaces a document.
	Write(ctx context.Context, path, text string) error

	// Delete removes a document. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, path string) error
}
