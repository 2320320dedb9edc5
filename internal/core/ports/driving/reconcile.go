package driving

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Reconciler repairs drift between the authoritative and mirror stores.
type Reconciler interface {
	// Reconcile runs one prune, fill and repair pass. Per-record failures
	// are counted in the report; an error is returned only when a store
	// cannot be listed or another pass is already running
	// (domain.ErrSyncInProgress).
	Reconcile(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconcileReport, error)

	// Status returns whether a pass is running in this process and the
	// report of the last completed pass.
	Status() ReconcileStatus
}

// ReconcileStatus reports the reconciler's in-process state.
type ReconcileStatus struct {
	Running bool
	Last    *domain.ReconcileReport
}
