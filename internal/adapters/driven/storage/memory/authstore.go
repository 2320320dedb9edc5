package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

// Ensure AuthoritativeStore implements the interface.
var _ driven.AuthoritativeStore = (*AuthoritativeStore)(nil)

// AuthoritativeStore is an in-memory implementation of
// driven.AuthoritativeStore, keyed by path.
type AuthoritativeStore struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewAuthoritativeStore creates a new in-memory authoritative store.
func NewAuthoritativeStore() *AuthoritativeStore {
	return &AuthoritativeStore{files: make(map[string]string)}
}

// List returns every document sorted by path.
func (s *AuthoritativeStore) List(_ context.Context) ([]domain.AuthoritativeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuthoritativeEntry, 0, len(s.files))
	for p, text := range s.files {
		out = append(out, entry(p, text))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns a single document.
func (s *AuthoritativeStore) Read(_ context.Context, p string) (*domain.AuthoritativeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.files[p]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e := entry(p, text)
	return &e, nil
}

// Write creates or replaces a document.
func (s *AuthoritativeStore) Write(_ context.Context, p, text string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = text
	return nil
}

// Delete removes a document.
func (s *AuthoritativeStore) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; !ok {
		return domain.ErrNotFound
	}
	delete(s.files, p)
	return nil
}

func entry(p, text string) domain.AuthoritativeEntry {
	return domain.AuthoritativeEntry{
		Path:  p,
		Text:  text,
		Title: fingerprint.EntryTitle(p, text),
		Hash:  fingerprint.FileHash(text),
	}
}
