package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// runLock implements driven.RunLock with session advisory locks. The
// lock lives on a dedicated pooled connection until released, so a
// crashed holder frees it when its session ends.
type runLock struct {
	pool *pgxpool.Pool
}

var _ driven.RunLock = (*runLock)(nil)

// TryLock acquires the named advisory lock without waiting.
func (l *runLock) TryLock(ctx context.Context, name string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, "acquiring connection for lock")
	}

	var locked bool
	if err := conn.QueryRow(ctx, `select pg_try_advisory_lock(hashtext($1))`, name).Scan(&locked); err != nil {
		conn.Release()
		return nil, mapError(err, fmt.Sprintf("locking %s", name))
	}
	if !locked {
		conn.Release()
		return nil, domain.ErrSyncInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `select pg_advisory_unlock(hashtext($1))`, name); err != nil {
				logger.Warn("Releasing lock %s failed: %v", name, err)
				// Drop the session so the lock cannot outlive us.
				_ = conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}
