package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/custodia-labs/reqsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/normalisers/markdown"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Shared fixtures for service tests ---

const loginDoc = `# Login Service

## Description
Lets users log in.

## Requirements
- OAuth support
- Session timeout
`

const loginHash = "0c4fa07bb31dc9dd5fb7b1f99119b968968ae58d10131a5146a44251d774544c"

const weatherDoc = `# Weather Dashboard

## Description
Shows the forecast for the next seven days.

## Requirements
- Hourly view
- Weekly view
`

var fixedNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// seqIDs returns a generator of rec-1, rec-2, ...
func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("rec-%d", n)
	}
}

// svcMockMirror wraps the memory store with injectable failures.
type svcMockMirror struct {
	*memory.MirrorStore

	mu           sync.Mutex
	listErr      error
	lookupErr    error
	lookupMisses int
	insertErr    error
	deleteErrs   map[string]error
	inserts      int
	deletes      int
}

func newSvcMockMirror() *svcMockMirror {
	return &svcMockMirror{MirrorStore: memory.NewMirrorStore(), deleteErrs: make(map[string]error)}
}

func (m *svcMockMirror) List(ctx context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	err := m.listErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MirrorStore.List(ctx)
}

func (m *svcMockMirror) GetByFingerprint(ctx context.Context, hash string) (*domain.Record, error) {
	m.mu.Lock()
	if m.lookupErr != nil {
		err := m.lookupErr
		m.mu.Unlock()
		return nil, err
	}
	if m.lookupMisses > 0 {
		m.lookupMisses--
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	m.mu.Unlock()
	return m.MirrorStore.GetByFingerprint(ctx, hash)
}

func (m *svcMockMirror) Insert(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	m.mu.Lock()
	err := m.insertErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	stored, err := m.MirrorStore.Insert(ctx, rec)
	if err == nil {
		m.mu.Lock()
		m.inserts++
		m.mu.Unlock()
	}
	return stored, err
}

func (m *svcMockMirror) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	err := m.deleteErrs[id]
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	deleted, err := m.MirrorStore.Delete(ctx, id)
	if deleted {
		m.mu.Lock()
		m.deletes++
		m.mu.Unlock()
	}
	return deleted, err
}

func (m *svcMockMirror) insertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

// svcMockAuthority wraps the memory store with injectable failures.
type svcMockAuthority struct {
	*memory.AuthoritativeStore
	listErr  error
	writeErr error
}

func newSvcMockAuthority() *svcMockAuthority {
	return &svcMockAuthority{AuthoritativeStore: memory.NewAuthoritativeStore()}
}

func (a *svcMockAuthority) List(ctx context.Context) ([]domain.AuthoritativeEntry, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.AuthoritativeStore.List(ctx)
}

func (a *svcMockAuthority) Write(ctx context.Context, path, text string) error {
	if a.writeErr != nil {
		return a.writeErr
	}
	return a.AuthoritativeStore.Write(ctx, path, text)
}

func newTestIngest(mirror *svcMockMirror, opts ...IngestOption) *IngestService {
	base := []IngestOption{WithIngestClock(fixedClock), WithIDGenerator(seqIDs())}
	return NewIngestService(markdown.New(nil), mirror, append(base, opts...)...)
}
