package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/dto"
	"github.com/custodia-labs/reqsync/internal/core/domain"
)

var (
	reconcileDryRun bool
	reconcileOutput string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Bring the mirror store in line with the document store",
	Long: `Compares the authoritative document store with the database mirror.
Records without a document are pruned, documents without a record are
filled in, and records whose content drifted are repaired. Use --dry-run
to see the plan without writing anything.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report planned changes without applying them")
	addOutputFlag(reconcileCmd, &reconcileOutput)
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	if reconciler == nil {
		return errReconcilerNotConfigured
	}
	if err := checkOutput(reconcileOutput); err != nil {
		return err
	}

	report, err := reconciler.Reconcile(cmd.Context(), domain.ReconcileOptions{DryRun: reconcileDryRun})
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return errors.New("another reconciliation is already running")
		}
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if done, err := writeStructured(cmd.OutOrStdout(), reconcileOutput, dto.FromReport(report)); done {
		return err
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, r *domain.ReconcileReport) {
	heading := "Reconciliation complete"
	if r.DryRun {
		heading = "Reconciliation plan (dry run)"
	}
	cmd.Println(titleStyle.Render(heading))
	cmd.Println()

	cmd.Println(field("Documents", r.AuthoritativeCount))
	cmd.Println(field("Mirror before", r.MirrorCountBefore))
	cmd.Println(field("Mirror after", r.MirrorCountAfter))
	cmd.Printf("%s pruned %d, filled %d, repaired %d, relinked %d, skipped %d, unchanged %d, failed %d\n",
		labelStyle.Render("Actions:"),
		r.Pruned, r.Filled, r.Repaired, r.Relinked, r.Skipped, r.Unchanged, r.Failed)

	if len(r.Actions) > 0 {
		rows := make([][]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			rows = append(rows, []string{string(a.Kind), truncate(a.Title, 40), a.Path, a.RecordID, a.Error})
		}
		cmd.Println()
		cmd.Println(renderTable([]string{"Action", "Title", "File", "Record", "Error"}, rows))
	}

	for _, w := range r.Warnings {
		cmd.Println(warningStyle.Render("warning: " + w))
	}

	cmd.Println()
	switch {
	case r.DryRun:
		cmd.Println(labelStyle.Render("No changes written."))
	case r.Converged():
		cmd.Println(successStyle.Render("Mirror matches the document store."))
	default:
		cmd.Println(errorStyle.Render("Mirror does not match the document store; see failures above."))
	}
}
