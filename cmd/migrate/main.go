package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Iamcalix/quickbooksupload/internal/config"
	"github.com/Iamcalix/quickbooksupload/internal/errhandler"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
	"github.com/Iamcalix/quickbooksupload/internal/store"
)

func main() {
	var (
		cfgFile string
		key     string
		prune   bool
	)

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and report duplicate stored transactions",
		Long: `Opens the database (applying any pending migrations), counts transactions
whose duplicate key repeats an earlier row of the same bank, and with --prune
deletes them, keeping the earliest entry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			field, err := statement.ParseKeyField(key)
			if err != nil {
				return err
			}

			s, err := store.NewStore(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer s.Close()
			pterm.Success.Printf("Database %s is up to date\n", cfg.Database.Path)

			ctx := cmd.Context()
			dupeCount, err := s.DuplicateCount(ctx, field)
			if err != nil {
				return err
			}
			pterm.Info.Printf("Duplicates found (%s): %d\n", field, dupeCount)

			if !prune || dupeCount == 0 {
				return nil
			}

			deleted, err := s.PruneDuplicates(ctx, field)
			if err != nil {
				return fmt.Errorf("error deleting duplicates: %w", err)
			}
			pterm.Success.Printf("Deleted %d duplicate transactions\n", deleted)
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.Flags().StringVarP(&key, "key", "k", string(statement.KeyReferenceID), "Duplicate key (reference_id, account_or_user_id or line_hash)")
	rootCmd.Flags().BoolVar(&prune, "prune", false, "Delete duplicates, keeping the earliest row")

	os.Exit(errhandler.HandleError(rootCmd.Execute()))
}
