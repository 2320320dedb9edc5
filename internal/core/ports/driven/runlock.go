package driven

import "context"

// RunLock provides mutual exclusion for batch jobs across processes.
type RunLock interface {
	// TryLock acquires the named lock without waiting. It returns
	// domain.ErrSyncInProgress if another holder owns it. The returned
	// release function is safe to call more than once.
	TryLock(ctx context.Context, name string) (release func(), err error)
}
