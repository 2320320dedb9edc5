package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/reqsync/internal/logger"
)

// DefaultStoreTimeout bounds a single store call.
const DefaultStoreTimeout = 30 * time.Second

// readAttempts is how many times an idempotent read is tried when it
// times out.
const readAttempts = 2

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// readRetry runs an idempotent read under a per-call timeout, retrying
// when the call times out but the caller's context is still live.
func readRetry[T any](ctx context.Context, d time.Duration, op string, read func(context.Context) (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		callCtx, cancel := withTimeout(ctx, d)
		v, readErr := read(callCtx)
		cancel()
		if readErr == nil {
			return v, nil
		}
		err = readErr
		if !errors.Is(readErr, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
		logger.Debug("%s timed out (attempt %d/%d)", op, attempt, readAttempts)
	}
	return zero, err
}

// writeOnce runs a write under a per-call timeout. Writes are never
// retried.
func writeOnce[T any](ctx context.Context, d time.Duration, write func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := withTimeout(ctx, d)
	defer cancel()
	return write(callCtx)
}
