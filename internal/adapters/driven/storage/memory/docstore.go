package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

// Ensure MirrorStore implements the interface.
var _ driven.MirrorStore = (*MirrorStore)(nil)

// MirrorStore is an in-memory implementation of driven.MirrorStore.
type MirrorStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	byHash  map[string]string
	now     func() time.Time
}

// NewMirrorStore creates a new in-memory mirror store.
func NewMirrorStore() *MirrorStore {
	return &MirrorStore{
		records: make(map[string]domain.Record),
		byHash:  make(map[string]string),
		now:     time.Now,
	}
}

// List returns every record, newest first.
func (s *MirrorStore) List(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get retrieves a record by ID.
func (s *MirrorStore) Get(_ context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// GetByFingerprint retrieves the record with the given content hash.
func (s *MirrorStore) GetByFingerprint(_ context.Context, hash string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec := s.records[id]
	return rec.Clone(), nil
}

// GetByTitle retrieves the oldest record with exactly this title.
func (s *MirrorStore) GetByTitle(_ context.Context, title string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Record
	for _, rec := range s.records {
		if rec.Title != title {
			continue
		}
		if found == nil || rec.CreatedAt.Before(found.CreatedAt) ||
			(rec.CreatedAt.Equal(found.CreatedAt) && rec.ID < found.ID) {
			found = rec.Clone()
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// Insert stores a new record.
func (s *MirrorStore) Insert(_ context.Context, rec *domain.Record) (*domain.Record, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return nil, fmt.Errorf("%w: record %s", domain.ErrAlreadyExists, rec.ID)
	}
	if rec.ContentHash != "" {
		if _, ok := s.byHash[rec.ContentHash]; ok {
			return nil, fmt.Errorf("%w: content hash %s", domain.ErrAlreadyExists, rec.ContentHash)
		}
	}

	stored := rec.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.records[stored.ID] = *stored
	if stored.ContentHash != "" {
		s.byHash[stored.ContentHash] = stored.ID
	}
	return stored.Clone(), nil
}

// Update applies a partial update and bumps UpdatedAt.
func (s *MirrorStore) Update(_ context.Context, id string, patch domain.RecordPatch) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(&rec)
	rec.UpdatedAt = s.now().UTC()
	s.records[id] = rec
	return rec.Clone(), nil
}

// Delete removes a record.
func (s *MirrorStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	if s.byHash[rec.ContentHash] == id {
		delete(s.byHash, rec.ContentHash)
	}
	return true, nil
}
