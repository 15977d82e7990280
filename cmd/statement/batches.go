package main

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
	"github.com/Iamcalix/quickbooksupload/internal/store"
)

var surveyOpts = []survey.AskOpt{
	survey.WithIcons(func(icons *survey.IconSet) {
		icons.Question.Text = "-"
	}),
}

func newBatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List, rename, delete and export stored batches",
	}
	cmd.AddCommand(newBatchListCmd())
	cmd.AddCommand(newBatchRenameCmd())
	cmd.AddCommand(newBatchDeleteCmd())
	cmd.AddCommand(newBatchExportCmd())
	return cmd
}

func newBatchListCmd() *cobra.Command {
	var (
		format string
		name   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.BatchFilter{Name: name, Limit: limit}
			if format != "" {
				f, err := statement.ParseBankFormat(format)
				if err != nil {
					return err
				}
				filter.Format = f
			}

			batches, err := application.Store.ListBatches(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to get batches: %w", err)
			}
			if len(batches) == 0 {
				pterm.Info.Println("No batches found")
				return nil
			}

			data := pterm.TableData{{"ID", "Name", "Bank", "Created", "Lines", "Stored", "Skipped", "Failed", "Total"}}
			for _, b := range batches {
				data = append(data, []string{
					b.ID, b.Name, string(b.BankFormat), b.CreatedAt.Format("2006-01-02 15:04"),
					fmt.Sprint(b.TotalLines), fmt.Sprint(b.TransactionCount), fmt.Sprint(b.SkippedCount),
					fmt.Sprint(b.FailCount), b.TotalAmount.StringFixed(2),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Only batches of this bank format")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Only batches whose name contains this text")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum number of batches")
	return cmd
}

func newBatchRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <batch-id> [new-name]",
		Short: "Rename a batch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			b, err := application.Store.GetBatch(cmd.Context(), id)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 2 {
				name = args[1]
			} else if name, err = promptBatchName(b.Name); err != nil {
				return err
			}

			if err := application.Store.RenameBatch(cmd.Context(), id, name); err != nil {
				return err
			}
			pterm.Success.Printf("Batch renamed to %q\n", strings.TrimSpace(name))
			return nil
		},
	}
}

func newBatchDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete a batch and its transactions",
		Long:  `Delete a batch and all of its stored transactions. This action cannot be undone.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			b, err := application.Store.GetBatch(cmd.Context(), id)
			if err != nil {
				return err
			}

			pterm.Warning.Printf("About to delete batch %s:\n", b.ID)
			pterm.DefaultTable.WithData(pterm.TableData{
				{"Name", b.Name},
				{"Bank", string(b.BankFormat)},
				{"Transactions", fmt.Sprint(b.TransactionCount)},
				{"Total", b.TotalAmount.StringFixed(2)},
			}).Render()

			if !yes {
				pterm.Warning.Println("This action cannot be undone!")
				var confirmation bool
				prompt := &survey.Confirm{
					Message: "Do you want to delete this batch?",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmation, surveyOpts...); err != nil {
					return err
				}
				if !confirmation {
					pterm.Info.Println("Deletion cancelled")
					return nil
				}
			}

			if err := application.Store.DeleteBatch(cmd.Context(), id); err != nil {
				return err
			}
			pterm.Success.Printf("Batch %q deleted\n", b.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newBatchExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Export a stored batch to CSV or Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txns, err := application.Store.GetBatchTransactions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := writeExportFile(out, txns, application.Export); err != nil {
				return err
			}
			pterm.Success.Printf("Exported %d records to %s\n", len(txns), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Export file (.csv or .xlsx)")
	cmd.MarkFlagRequired("out")
	return cmd
}
