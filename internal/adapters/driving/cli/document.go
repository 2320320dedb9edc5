package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/dto"
	"github.com/custodia-labs/reqsync/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage mirrored records",
	Long:  `List, view, render, update or delete records in the mirror store.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [record-id]",
	Short: "Show a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentFindCmd = &cobra.Command{
	Use:   "find [fingerprint]",
	Short: "Find a record by content fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentFind,
}

var documentMarkdownCmd = &cobra.Command{
	Use:   "markdown [record-id]",
	Short: "Render a record as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentMarkdown,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [record-id]",
	Short: "Delete a record",
	Long: `Deletes a record from the mirror store. Without --purge the next
reconciliation restores it from its document; with --purge the document
is removed from the authoritative store as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

var documentStatusCmd = &cobra.Command{
	Use:   "status [record-id] [status]",
	Short: "Set a record's processing status",
	Long:  `Valid statuses: queue, processed, in_progress, completed, failed.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentStatus,
}

var (
	listCategory string
	listStatus   string
	listOffset   int
	listLimit    int
	listOutput   string

	getOutput string

	markdownSave string

	deletePurge bool
)

func init() {
	documentListCmd.Flags().StringVar(&listCategory, "category", "", "filter by category: platform (A) or agent (B)")
	documentListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	documentListCmd.Flags().IntVar(&listOffset, "offset", 0, "records to skip")
	documentListCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum records to show (0 = all)")
	addOutputFlag(documentListCmd, &listOutput)

	documentGetCmd.Flags().StringVarP(&getOutput, "output", "o", outputYAML, "output format: table, json or yaml")
	documentFindCmd.Flags().StringVarP(&getOutput, "output", "o", outputYAML, "output format: table, json or yaml")

	documentMarkdownCmd.Flags().StringVar(&markdownSave, "save", "", "write to this directory under the suggested filename")

	documentDeleteCmd.Flags().BoolVar(&deletePurge, "purge", false, "also delete the authoritative document")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentFindCmd)
	documentCmd.AddCommand(documentMarkdownCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentStatusCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	if err := checkOutput(listOutput); err != nil {
		return err
	}

	filter := domain.RecordFilter{Offset: listOffset, Limit: listLimit}
	if listCategory != "" {
		c, err := domain.ParseCategory(listCategory)
		if err != nil {
			return err
		}
		filter.Category = c
	}
	if listStatus != "" {
		s, err := domain.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		filter.Status = s
	}

	records, total, err := documentService.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if done, err := writeStructured(cmd.OutOrStdout(), listOutput, dto.FromRecords(records, total, listOffset)); done {
		return err
	}

	if len(records) == 0 {
		cmd.Println("No records found.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, []string{
			r.ID, truncate(r.Title, 48), string(r.Category), string(r.Status), r.CreatedAt.Format(domain.DateLayout),
		})
	}
	cmd.Println(renderTable([]string{"ID", "Title", "Category", "Status", "Created"}, rows))
	cmd.Printf("Showing %d of %d records\n", len(records), total)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	rec, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return recordError(args[0], err)
	}
	return printRecord(cmd, rec)
}

func runDocumentFind(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	rec, err := documentService.FindByFingerprint(cmd.Context(), args[0])
	if err != nil {
		return recordError(args[0], err)
	}
	return printRecord(cmd, rec)
}

func printRecord(cmd *cobra.Command, rec *domain.Record) error {
	if err := checkOutput(getOutput); err != nil {
		return err
	}
	if done, err := writeStructured(cmd.OutOrStdout(), getOutput, dto.FromRecord(rec)); done {
		return err
	}

	cmd.Println(titleStyle.Render(rec.Title))
	cmd.Println(field("ID", rec.ID))
	cmd.Println(field("Category", rec.Category))
	cmd.Println(field("Status", rec.Status))
	cmd.Println(field("Fingerprint", rec.ContentHash))
	if rec.SourcePath != "" {
		cmd.Println(field("File", rec.SourcePath))
	}
	if rec.Description != "" {
		cmd.Println()
		cmd.Println(rec.Description)
	}
	for _, f := range rec.ListFields() {
		if len(*f.Items) == 0 {
			continue
		}
		cmd.Println()
		cmd.Println(labelStyle.Render(strings.ReplaceAll(f.Name, "_", " ") + ":"))
		for _, item := range *f.Items {
			cmd.Printf("  - %s\n", item)
		}
	}
	return nil
}

func runDocumentMarkdown(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	md, err := documentService.Markdown(cmd.Context(), args[0])
	if err != nil {
		return recordError(args[0], err)
	}

	if markdownSave == "" {
		cmd.Print(md.Markdown)
		return nil
	}

	if err := os.MkdirAll(markdownSave, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", markdownSave, err)
	}
	path := filepath.Join(markdownSave, md.Filename)
	if err := os.WriteFile(path, []byte(md.Markdown), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cmd.Printf("Saved %s\n", path)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	if err := documentService.Delete(cmd.Context(), args[0], deletePurge); err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return errors.New("--purge needs an authoritative store")
		}
		return recordError(args[0], err)
	}
	if deletePurge {
		cmd.Printf("Record %s and its document deleted.\n", args[0])
	} else {
		cmd.Printf("Record %s deleted from the mirror.\n", args[0])
	}
	return nil
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}
	status, err := domain.ParseStatus(args[1])
	if err != nil {
		return err
	}
	rec, err := documentService.Update(cmd.Context(), args[0], domain.RecordPatch{Status: &status})
	if err != nil {
		return recordError(args[0], err)
	}
	cmd.Printf("Record %s is now %s.\n", rec.ID, rec.Status)
	return nil
}

func recordError(id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("record not found: %s", id)
	}
	return fmt.Errorf("failed: %w", err)
}
