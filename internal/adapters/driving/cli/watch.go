package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/connectors/filesystem"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest documents dropped into the incoming folder",
	Long: `Watches the incoming folder and submits every .md or .txt file that
appears there. Files already present when the watch starts are processed
first. A successfully ingested file is moved to the uploaded folder; a
file that fails stays where it is so it can be fixed and retried.

With --reconcile-interval the mirror is also reconciled in the
background. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("incoming", "", "folder to watch (default <data-dir>/incoming)")
	watchCmd.Flags().String("uploaded", "", "folder for ingested files (default <data-dir>/uploaded)")
	addReconcileIntervalFlag(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errIngestNotConfigured
	}
	if appConfig == nil {
		return errors.New("configuration not loaded")
	}

	w := filesystem.NewWatcher(appConfig.Watch.Incoming, appConfig.Watch.Uploaded, ingestService, appConfig.Watch.Settle)
	w.OnResult = func(res filesystem.WatchResult) {
		name := filepath.Base(res.Path)
		switch {
		case res.Err != nil:
			cmd.Println(errorStyle.Render("✗ " + name + ": " + res.Err.Error()))
		case res.Result.Created:
			cmd.Println(successStyle.Render("✓ " + name + " → " + res.Result.Record.ID))
		default:
			cmd.Println(warningStyle.Render("= " + name + " duplicate of " + res.Result.Record.ID))
		}
	}

	cmd.Println(field("Watching", appConfig.Watch.Incoming))
	cmd.Println(field("Uploaded", appConfig.Watch.Uploaded))

	return runWithReconcile(cmd, w.Run)
}
