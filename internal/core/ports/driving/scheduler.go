package driving

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Scheduler runs background reconciliation for long-running commands.
type Scheduler interface {
	// Start runs scheduled passes until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends Start and waits for an in-flight pass.
	Stop()

	// Task returns the current schedule state.
	Task() domain.ScheduledTask
}
