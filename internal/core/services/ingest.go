package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService parses submissions and stores them through the
// duplicate guard.
type IngestService struct {
	normaliser driven.Normaliser
	mirror     driven.MirrorStore

	// authority and renderer are optional. When set, newly created
	// records without a source path are written through to the
	// authoritative store.
	authority driven.AuthoritativeStore
	renderer  driven.Renderer

	inflight singleflight.Group
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithWriteThrough writes new records to the authoritative store.
func WithWriteThrough(authority driven.AuthoritativeStore, renderer driven.Renderer) IngestOption {
	return func(s *IngestService) {
		s.authority = authority
		s.renderer = renderer
	}
}

// WithIngestTimeout sets the per-call store timeout.
func WithIngestTimeout(d time.Duration) IngestOption {
	return func(s *IngestService) { s.timeout = d }
}

// WithIngestClock overrides the clock used for timestamps.
func WithIngestClock(now func() time.Time) IngestOption {
	return func(s *IngestService) { s.now = now }
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(newID func() string) IngestOption {
	return func(s *IngestService) { s.newID = newID }
}

// NewIngestService creates a new ingest service.
func NewIngestService(normaliser driven.Normaliser, mirror driven.MirrorStore, opts ...IngestOption) *IngestService {
	s := &IngestService{
		normaliser: normaliser,
		mirror:     mirror,
		timeout:    DefaultStoreTimeout,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, parses and stores a submission.
func (s *IngestService) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmitResult, error) {
	if s.normaliser == nil || s.mirror == nil {
		return nil, domain.ErrNotConfigured
	}
	if err := s.checkSubmission(&sub); err != nil {
		return nil, err
	}

	res, err := s.normaliser.Normalise(ctx, &sub)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}
	if res.Degraded {
		logger.Warn("Parser fell back for %q", sub.Filename)
	}

	rec, created, err := s.Create(ctx, &res.Record)
	if err != nil {
		return nil, err
	}

	diags := res.Diagnostics
	if created && rec.SourcePath == "" && s.authority != nil {
		written, writeErr := s.writeThrough(ctx, rec)
		if writeErr != nil {
			logger.Warn("Write-through failed for %s: %v", rec.ID, writeErr)
			diags = append(diags, domain.Diagnostic{
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("not written to authoritative store: %v", writeErr),
			})
		} else {
			rec = written
		}
	}

	return &domain.SubmitResult{Record: rec, Created: created, Diagnostics: diags}, nil
}

func (s *IngestService) checkSubmission(sub *domain.Submission) error {
	if len(strings.TrimSpace(string(sub.Content))) == 0 {
		return fmt.Errorf("%w: empty document", domain.ErrInvalidInput)
	}
	if sub.Filename == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	if !slices.Contains(s.normaliser.SupportedExtensions(), ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", domain.ErrUnsupportedType, sub.Filename,
			strings.Join(s.normaliser.SupportedExtensions(), ", "))
	}
	return nil
}

// createOutcome is the shared result of a guarded insert.
type createOutcome struct {
	record  *domain.Record
	created bool
	claimed atomic.Bool
}

// claim reports created=true to exactly one waiting caller.
func (o *createOutcome) claim() bool {
	return o.created && o.claimed.CompareAndSwap(false, true)
}

// Create stores a record unless its fingerprint is already present.
// Concurrent calls for the same fingerprint collapse into one insert,
// and exactly one caller sees created=true. The shared insert is not
// tied to any single caller's context; each caller stops waiting when
// its own context ends.
func (s *IngestService) Create(ctx context.Context, rec *domain.Record) (*domain.Record, bool, error) {
	if rec == nil {
		return nil, false, domain.ErrInvalidInput
	}
	if s.mirror == nil {
		return nil, false, domain.ErrNotConfigured
	}

	hash := fingerprint.Fingerprint(rec.Title, rec.Description)
	shared := context.WithoutCancel(ctx)

	ch := s.inflight.DoChan(hash, func() (any, error) {
		return s.create(shared, rec, hash)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, false, res.Err
	}

	out, ok := res.Val.(*createOutcome)
	if !ok {
		return nil, false, fmt.Errorf("create: unexpected result %T", res.Val)
	}
	return out.record.Clone(), out.claim(), nil
}

func (s *IngestService) create(ctx context.Context, rec *domain.Record, hash string) (*createOutcome, error) {
	existing, err := readRetry(ctx, s.timeout, "fingerprint lookup", func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.GetByFingerprint(ctx, hash)
	})
	switch {
	case err == nil:
		logger.Debug("Duplicate of %s (%s), skipping insert", existing.ID, existing.Title)
		return &createOutcome{record: existing}, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		// Fail open: the store's unique constraint still catches duplicates.
		logger.Warn("Fingerprint lookup failed, inserting anyway: %v", err)
	}

	now := s.now().UTC()
	fresh := rec.Clone()
	fresh.ID = s.newID()
	fresh.ContentHash = hash
	fresh.CreatedAt = now
	fresh.UpdatedAt = now
	if fresh.Status == "" {
		fresh.Status = domain.StatusQueue
	}
	if fresh.Category == "" {
		fresh.Category = domain.CategoryAgent
	}

	stored, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.Insert(ctx, fresh)
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost a race with another writer.
		existing, lookupErr := s.mirror.GetByFingerprint(ctx, hash)
		if lookupErr == nil {
			return &createOutcome{record: existing}, nil
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	logger.Info("Created record %s (%s)", stored.ID, stored.Title)
	return &createOutcome{record: stored, created: true}, nil
}

// writeThrough stores a new record's text in the authoritative store and
// links the record to the written path.
func (s *IngestService) writeThrough(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	text := rec.FileContent
	if strings.TrimSpace(text) == "" && s.renderer != nil {
		text = s.renderer.Render(rec)
	}
	path := fingerprint.DeriveFilename(rec.Title, rec.ContentHash, rec.CreatedAt.Format(domain.DateLayout))

	if _, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.authority.Write(ctx, path, text)
	}); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	updated, err := writeOnce(ctx, s.timeout, func(ctx context.Context) (*domain.Record, error) {
		return s.mirror.Update(ctx, rec.ID, domain.RecordPatch{SourcePath: &path})
	})
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", path, err)
	}
	logger.Debug("Wrote %s for record %s", path, rec.ID)
	return updated, nil
}
