package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP intake API",
	Long: `Starts the HTTP API for document intake (inline, multipart upload and
webhook), record lookup and reconciliation. See the httpapi package for
the route list.

Runs until interrupted, then drains in-flight requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origin (repeatable)")
	addReconcileIntervalFlag(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errIngestNotConfigured
	}
	if appConfig == nil {
		return errors.New("configuration not loaded")
	}

	server := httpapi.NewServer(httpapi.Ports{
		Ingest:     ingestService,
		Reconciler: reconciler,
		Documents:  documentService,
	}, httpapi.WithCORSOrigins(appConfig.HTTP.CORSOrigins...))

	cmd.Println(field("Listening", "http://"+appConfig.HTTP.Addr))
	return runWithReconcile(cmd, func(ctx context.Context) error {
		return server.ListenAndServe(ctx, appConfig.HTTP.Addr)
	})
}
