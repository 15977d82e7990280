package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Iamcalix/quickbooksupload/internal/export"
	"github.com/Iamcalix/quickbooksupload/internal/service"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

type parseFlags struct {
	Format string
	File   string
	Out    string
}

func newParseCmd() *cobra.Command {
	flags := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a statement and show or export the records",
		Long: `Parse pasted statement text (from --file or stdin) without storing it.
Use --out with a .csv or .xlsx file to write the QuickBooks export.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := statement.ParseBankFormat(flags.Format)
			if err != nil {
				return err
			}
			text, err := readInput(flags.File)
			if err != nil {
				return err
			}

			preview, err := application.Imports.Preview(cmd.Context(), format, text)
			if err != nil {
				return err
			}
			printPreview(preview)

			if flags.Out == "" {
				return nil
			}
			if err := writeExportFile(flags.Out, preview.Result.Successful, application.Export); err != nil {
				return err
			}
			pterm.Success.Printf("Exported %d records to %s\n", len(preview.Result.Successful), flags.Out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Format, "format", "f", "", "Bank format (NMB or CRDB)")
	cmd.Flags().StringVar(&flags.File, "file", "", "Statement text file (default stdin)")
	cmd.Flags().StringVarP(&flags.Out, "out", "o", "", "Export file (.csv or .xlsx)")
	cmd.MarkFlagRequired("format")

	return cmd
}

type importFlags struct {
	Format string
	File   string
	Name   string
}

func newImportCmd() *cobra.Command {
	flags := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Parse a statement and store it as a new batch",
		Long: `Parse statement text, enrich it from the customer directory, drop records
that were already imported and store the rest as a named batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := statement.ParseBankFormat(flags.Format)
			if err != nil {
				return err
			}
			text, err := readInput(flags.File)
			if err != nil {
				return err
			}

			name := flags.Name
			if strings.TrimSpace(name) == "" {
				if name, err = promptBatchName(""); err != nil {
					return err
				}
			}

			return runImport(cmd.Context(), format, text, name)
		},
	}

	cmd.Flags().StringVarP(&flags.Format, "format", "f", "", "Bank format (NMB or CRDB)")
	cmd.Flags().StringVar(&flags.File, "file", "", "Statement text file (default stdin)")
	cmd.Flags().StringVarP(&flags.Name, "name", "n", "", "Batch name (prompted when empty)")
	cmd.MarkFlagRequired("format")

	return cmd
}

func runImport(ctx context.Context, format statement.BankFormat, text, name string) error {
	spinner, _ := pterm.DefaultSpinner.Start("Importing statement...")
	report, err := application.Imports.Import(ctx, service.ImportRequest{Format: format, Text: text, Name: name})
	if err != nil {
		spinner.Fail("Import failed")
		return err
	}
	spinner.Success("Import finished")

	pterm.DefaultTable.WithData(pterm.TableData{
		{"Batch", report.BatchID},
		{"Lines", fmt.Sprint(report.Totals.TotalLines)},
		{"Parsed", fmt.Sprint(report.Totals.SuccessCount)},
		{"Failed", fmt.Sprint(report.Totals.FailCount)},
		{"Already imported", fmt.Sprint(report.Skipped)},
		{"Saved", fmt.Sprint(report.Written)},
		{"Total amount", report.Totals.TotalAmount.StringFixed(2)},
		{"Imported amount", report.ImportedAmount.StringFixed(2)},
	}).Render()

	if report.Unsaved > 0 {
		pterm.Warning.Printf("%d records in %d chunks could not be saved, see the log for details\n",
			report.Unsaved, report.FailedChunks)
	}
	return nil
}

func printPreview(p service.Preview) {
	data := pterm.TableData{{"Date", "Reference", "Account / User", "Name", "Customer", "Product", "Method", "Amount"}}
	for _, tx := range p.Result.Successful {
		data = append(data, []string{
			tx.TransactionDate, tx.ReferenceID, tx.AccountOrUserID, tx.CounterpartyName,
			tx.CustomerName, tx.ProductLabel, tx.PaymentMethod, tx.Amount,
		})
	}
	if len(data) > 1 {
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	for _, tx := range p.Result.Failed {
		pterm.Warning.Printf("%s: %s\n", tx.ErrorMessage, tx.RawLine)
	}

	pterm.Info.Printf("%d lines, %d parsed, %d failed, %d matched to customers, total %s\n",
		p.Totals.TotalLines, p.Totals.SuccessCount, p.Totals.FailCount, p.Resolved,
		p.Totals.TotalAmount.StringFixed(2))
}

// writeExportFile picks the export format from the file extension
func writeExportFile(path string, txns []statement.Transaction, opts export.Options) error {
	var write func(io.Writer, []statement.Transaction, export.Options) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		write = export.WriteXLSX
	case ".csv":
		write = export.WriteCSV
	default:
		return fmt.Errorf("unsupported export file %q, use .csv or .xlsx", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := write(f, txns, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func promptBatchName(current string) (string, error) {
	name := current
	err := huh.NewInput().
		Title("Batch name").
		Value(&name).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("batch name is required")
			}
			return nil
		}).
		Run()
	return strings.TrimSpace(name), err
}
