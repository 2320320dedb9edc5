package driving

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// IngestService accepts documents from every intake channel.
type IngestService interface {
	// Submit validates, parses and stores a submission. Resubmitting
	// content with the same fingerprint returns the stored record with
	// Created false and performs no write.
	Submit(ctx context.Context, sub domain.Submission) (*domain.SubmitResult, error)

	// Create stores an already parsed record unless one with the same
	// fingerprint exists, in which case that record is returned.
	Create(ctx context.Context, rec *domain.Record) (*domain.Record, bool, error)
}
