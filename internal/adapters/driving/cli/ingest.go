package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/dto"
	"github.com/custodia-labs/reqsync/internal/core/domain"
)

var (
	ingestFilename string
	ingestOutput   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Submit a requirement document",
	Long: `Parses a markdown or text document and stores it as a record.

Pass "-" to read the document from stdin; use --filename to give it a
name. Submitting a document whose title and description match an
existing record returns that record instead of creating a new one.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFilename, "filename", "", "name to record for the document (stdin only)")
	addOutputFlag(ingestCmd, &ingestOutput)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errIngestNotConfigured
	}
	if err := checkOutput(ingestOutput); err != nil {
		return err
	}

	sub := domain.Submission{Channel: domain.ChannelUpload}
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sub.Content = data
		sub.Filename = ingestFilename
		sub.Channel = domain.ChannelInline
	} else {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		sub.Content = data
		sub.Filename = filepath.Base(args[0])
	}

	res, err := ingestService.Submit(cmd.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedType), errors.Is(err, domain.ErrInvalidInput):
			return fmt.Errorf("document rejected: %w", err)
		default:
			return fmt.Errorf("ingest failed: %w", err)
		}
	}

	if done, err := writeStructured(cmd.OutOrStdout(), ingestOutput, dto.FromSubmitResult(res)); done {
		return err
	}

	rec := res.Record
	if res.Created {
		cmd.Println(successStyle.Render("Created record " + rec.ID))
	} else {
		cmd.Println(warningStyle.Render("Duplicate of existing record " + rec.ID))
	}
	cmd.Println(field("Title", rec.Title))
	cmd.Println(field("Category", rec.Category))
	cmd.Println(field("Fingerprint", rec.ContentHash))
	if rec.SourcePath != "" {
		cmd.Println(field("File", rec.SourcePath))
	}
	printDiagnostics(cmd, res.Diagnostics)
	return nil
}

func printDiagnostics(cmd *cobra.Command, diags []domain.Diagnostic) {
	for _, d := range diags {
		style := labelStyle
		switch d.Severity {
		case domain.SeverityWarning:
			style = warningStyle
		case domain.SeverityError:
			style = errorStyle
		}
		cmd.Println(style.Render(fmt.Sprintf("  [%s] %s", d.Severity, d.Message)))
	}
}
