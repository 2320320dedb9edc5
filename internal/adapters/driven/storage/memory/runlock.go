package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

// Ensure RunLock implements the interface.
var _ driven.RunLock = (*RunLock)(nil)

// RunLock is an in-process implementation of driven.RunLock.
type RunLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewRunLock creates a new in-process run lock.
func NewRunLock() *RunLock {
	return &RunLock{held: make(map[string]bool)}
}

// TryLock acquires the named lock without waiting.
func (l *RunLock) TryLock(ctx context.Context, name string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, domain.ErrSyncInProgress
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, name)
		})
	}, nil
}
