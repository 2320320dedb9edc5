package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages mirrored records.
type DocumentService struct {
	mirror    driven.MirrorStore
	authority driven.AuthoritativeStore
	renderer  driven.Renderer
	timeout   time.Duration
	now       func() time.Time
}

// NewDocumentService creates a new document service. The authoritative
// store is optional; without it Export and purging deletes are
// unavailable.
func NewDocumentService(
	mirror driven.MirrorStore,
	authority driven.AuthoritativeStore,
	renderer driven.Renderer,
) *DocumentService {
	return &DocumentService{
		mirror:    mirror,
		authority: authority,
		renderer:  renderer,
		timeout:   DefaultStoreTimeout,
		now:       time.Now,
	}
}

// List returns a page of records and the total matching the filter.
func (s *DocumentService) List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, int, error) {
	if s.mirror == nil {
		return nil, 0, domain.ErrNotConfigured
	}
	all, err := readRetry(ctx, s.timeout, "list records", s.mirror.List)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}

	matched := make([]domain.Record, 0, len(all))
	for i := range all {
		if filter.Matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	return filter.Page(matched), len(matched), nil
}

// Get retrieves a record by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Record, error) {
	if s.mirror == nil {
		return nil, domain.ErrNotConfigured
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return readRetry(ctx, s.timeout, "get record", func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.Get(ctx, id)
	})
}

// FindByFingerprint retrieves the record with the given content hash.
func (s *DocumentService) FindByFingerprint(ctx context.Context, hash string) (*domain.Record, error) {
	if s.mirror == nil {
		return nil, domain.ErrNotConfigured
	}
	if strings.TrimSpace(hash) == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", domain.ErrInvalidInput)
	}
	return readRetry(ctx, s.timeout, "find record", func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.GetByFingerprint(ctx, strings.ToLower(hash))
	})
}

// Update changes a record's status or category.
func (s *DocumentService) Update(ctx context.Context, id string, patch domain.RecordPatch) (*domain.Record, error) {
	if s.mirror == nil {
		return nil, domain.ErrNotConfigured
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	return writeOnce(ctx, s.timeout, func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.Update(ctx, id, patch)
	})
}

// Delete removes a record, and its authoritative file when purge is set.
func (s *DocumentService) Delete(ctx context.Context, id string, purge bool) error {
	if s.mirror == nil {
		return domain.ErrNotConfigured
	}
	if purge && s.authority == nil {
		return fmt.Errorf("%w: no authoritative store to purge from", domain.ErrNotConfigured)
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if purge && rec.SourcePath != "" {
		_, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.authority.Delete(ctx, rec.SourcePath)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", rec.SourcePath, err)
		}
		logger.Info("Deleted authoritative file %s", rec.SourcePath)
	}

	deleted, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (bool, error) {
		return s.mirror.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	logger.Info("Deleted record %s (%s)", id, rec.Title)
	return nil
}

// Markdown renders a record as markdown with a suggested filename.
func (s *DocumentService) Markdown(ctx context.Context, id string) (*driving.MarkdownExport, error) {
	if s.renderer == nil {
		return nil, domain.ErrNotConfigured
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &driving.MarkdownExport{
		RecordID: rec.ID,
		Filename: s.filename(rec, ""),
		Markdown: s.renderer.Render(rec),
	}, nil
}

// Export writes every record without an authoritative file. The stored
// text is written when present, otherwise the rendered record.
func (s *DocumentService) Export(ctx context.Context, date string) (*driving.ExportReport, error) {
	if s.mirror == nil || s.authority == nil || s.renderer == nil {
		return nil, domain.ErrNotConfigured
	}
	if date != "" {
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}

	records, err := readRetry(ctx, s.timeout, "list records", s.mirror.List)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	entries, err := readRetry(ctx, s.timeout, "list authoritative store", s.authority.List)
	if err != nil {
		return nil, fmt.Errorf("list authoritative store: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Path] = true
	}

	report := &driving.ExportReport{Written: []string{}}
	for i := range records {
		rec := &records[i]
		if rec.SourcePath != "" && present[rec.SourcePath] {
			report.Skipped++
			continue
		}

		name := s.filename(rec, date)
		text := rec.FileContent
		if strings.TrimSpace(text) == "" {
			text = s.renderer.Render(rec)
		}

		if _, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.authority.Write(ctx, name, text)
		}); err != nil {
			logger.Error(err, "Export of %s failed", rec.ID)
			report.Failed++
			continue
		}
		if _, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (*domain.Record, error) {
			return s.mirror.Update(ctx, rec.ID, domain.RecordPatch{SourcePath: &name})
		}); err != nil {
			logger.Warn("Exported %s but could not link record %s: %v", name, rec.ID, err)
		}
		present[name] = true
		report.Written = append(report.Written, name)
	}

	logger.Info("Export finished: %d written, %d skipped, %d failed",
		len(report.Written), report.Skipped, report.Failed)
	return report, nil
}

func (s *DocumentService) filename(rec *domain.Record, date string) string {
	if date == "" {
		date = rec.CreatedAt.UTC().Format(domain.DateLayout)
		if rec.CreatedAt.IsZero() {
			date = s.now().UTC().Format(domain.DateLayout)
		}
	}
	hash := rec.ContentHash
	if hash == "" {
		hash = fingerprint.Fingerprint(rec.Title, rec.Description)
	}
	return fingerprint.DeriveFilename(rec.Title, hash, date)
}
