package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Iamcalix/quickbooksupload/internal/app"
	"github.com/Iamcalix/quickbooksupload/internal/config"
	"github.com/Iamcalix/quickbooksupload/internal/errhandler"
)

var (
	cfgFile     string
	application *app.App
	cleanup     func()
)

func main() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	rootCmd := &cobra.Command{
		Use:           "statement",
		Short:         "Parse, import and export NMB / CRDB bank statements",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			application, cleanup, err = app.NewApp(cfg, cfg.NewLogger())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup != nil {
				cleanup()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newBatchesCmd())

	err := rootCmd.Execute()
	if err != nil && cleanup != nil {
		cleanup()
	}
	os.Exit(errhandler.HandleError(err))
}

// readInput returns the contents of path, or stdin when path is empty or "-"
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading statement: %w", err)
	}
	return string(data), nil
}
