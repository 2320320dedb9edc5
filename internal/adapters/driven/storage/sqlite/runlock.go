package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// DefaultLockTTL is how long a lease is honoured before it is treated
// as abandoned.
const DefaultLockTTL = time.Hour

// runLock implements driven.RunLock with a lease row per lock name.
type runLock struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

var _ driven.RunLock = (*runLock)(nil)

// TryLock claims the named lease unless a live one exists.
func (l *runLock) TryLock(ctx context.Context, name string) (func(), error) {
	ttl := l.ttl
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	holder := uuid.NewString()
	now := l.now().UTC()

	res, err := l.store.db.ExecContext(ctx, `
		INSERT INTO run_locks (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE run_locks.expires_at < ?
	`, name, holder, formatTime(now.Add(ttl)), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("claiming lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claiming lock %s: %w", name, err)
	}
	if n == 0 {
		return nil, domain.ErrSyncInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := l.store.db.ExecContext(releaseCtx,
				"DELETE FROM run_locks WHERE name = ? AND holder = ?", name, holder); err != nil {
				logger.Warn("Releasing lock %s failed: %v", name, err)
			}
		})
	}, nil
}
