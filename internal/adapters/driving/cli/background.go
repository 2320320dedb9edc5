package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/services"
)

func addReconcileIntervalFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("reconcile-interval", 0, "run reconciliation in the background at this interval (0 = off)")
}

// runWithReconcile runs fn alongside the background reconciliation
// scheduler. Both stop when either returns.
func runWithReconcile(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	interval := appConfig.Reconcile.Interval
	if reconciler == nil || interval <= 0 {
		return fn(cmd.Context())
	}

	sched := services.NewScheduler(reconciler, interval)
	sched.OnResult = func(res domain.TaskResult) {
		switch {
		case res.Skipped:
		case res.Error != "":
			cmd.Println(errorStyle.Render("reconcile: " + res.Error))
		case res.Changes > 0:
			cmd.Println(successStyle.Render(fmt.Sprintf("reconcile: %d change(s)", res.Changes)))
		}
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		defer sched.Stop()
		return fn(ctx)
	})
	g.Go(func() error {
		return sched.Start(ctx)
	})
	return g.Wait()
}
