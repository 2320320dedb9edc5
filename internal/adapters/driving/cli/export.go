package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/dto"
)

var (
	exportDate   string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write mirror-only records to the document store",
	Long: `Writes every record that has no document in the authoritative store
as a markdown file named <date>_<title>_<fingerprint>.md. Records created
by other tools can be adopted this way before the next reconciliation
would prune them.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "date prefix for filenames, YYYY-MM-DD (default today)")
	addOutputFlag(exportCmd, &exportOutput)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	if err := checkOutput(exportOutput); err != nil {
		return err
	}

	report, err := documentService.Export(cmd.Context(), exportDate)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if done, err := writeStructured(cmd.OutOrStdout(), exportOutput, dto.FromExport(report)); done {
		return err
	}

	for _, p := range report.Written {
		cmd.Println(successStyle.Render("wrote " + p))
	}
	cmd.Printf("Exported %d, already present %d, failed %d\n", len(report.Written), report.Skipped, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d record(s) could not be exported", report.Failed)
	}
	return nil
}
