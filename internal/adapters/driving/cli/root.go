// Package cli implements the reqsync command-line interface.
//
// Commands are thin: they parse flags, call a driving port and format
// the result. Services are wired once per invocation by the WireFunc
// passed to Execute, after configuration has been loaded.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/config"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services are the driving ports the commands call.
type Services struct {
	Ingest     driving.IngestService
	Reconciler driving.Reconciler
	Documents  driving.DocumentService

	// Close releases store connections. May be nil.
	Close func()
}

// WireFunc builds services from the loaded configuration.
type WireFunc func(ctx context.Context, cfg *config.Config) (*Services, error)

var (
	ingestService   driving.IngestService
	reconciler      driving.Reconciler
	documentService driving.DocumentService
	closeServices   func()

	// appConfig is the configuration loaded for this invocation.
	appConfig *config.Config

	wire       WireFunc
	viperCfg   = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "reqsync",
	Short: "Keep requirement documents and their database mirror in sync",
	Long: `reqsync ingests requirement documents from files, stdin, a watched
folder, HTTP and MCP, parses them into structured records and keeps a
database mirror consistent with the authoritative document store.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.reqsync/config.toml)")
	pf.String("data-dir", "", "state directory (default ~/.reqsync)")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.String("log-format", "", "log format: auto, console or json")
	pf.Duration("store-timeout", 0, "timeout for each store call")
	pf.String("rules", "", "parser rules file overriding the built-in rules")
	pf.String("mirror", "", "mirror store driver: sqlite, postgres or memory")
	pf.String("mirror-dsn", "", "Postgres connection URL")
	pf.String("authority", "", "authoritative store backend: filesystem or github")
	pf.String("root", "", "authoritative document directory (filesystem backend)")
	pf.String("github-repo", "", "authoritative repository as owner/repo (github backend)")
	pf.String("github-branch", "", "branch to read and commit documents on")
	pf.String("github-dir", "", "document directory inside the repository")

	if err := config.BindFlags(viperCfg, pf); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute(ctx context.Context, w WireFunc) error {
	wire = w
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

// SetServices installs the driving ports used by the commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	ingestService = s.Ingest
	reconciler = s.Reconciler
	documentService = s.Documents
	closeServices = s.Close
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Subcommands share some flag names; bind the ones being run.
	if err := config.BindFlags(viperCfg, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(viperCfg, configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	logger.SetVerbose(cfg.Verbose)
	logger.SetFormat(logger.Format(cfg.LogFormat))

	if wire == nil {
		return nil
	}
	svcs, err := wire(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialise services: %w", err)
	}
	SetServices(svcs)
	return nil
}

func teardown() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

var (
	errIngestNotConfigured     = errors.New("ingest service not configured")
	errReconcilerNotConfigured = errors.New("reconcile service not configured")
	errDocumentNotConfigured   = errors.New("document service not configured")
)
