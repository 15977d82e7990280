package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iamcalix/quickbooksupload/internal/app"
	"github.com/Iamcalix/quickbooksupload/internal/config"
	"github.com/Iamcalix/quickbooksupload/internal/handler"
)

func main() {
	var (
		cfgFile string
		port    string
		dbPath  string
	)

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Web UI for pasting, importing and exporting bank statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("db") {
				cfg.Database.Path = dbPath
			}
			return serve(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.Flags().StringVarP(&port, "port", "p", "8080", "HTTP server port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := cfg.NewLogger()

	application, cleanup, err := app.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	h := handler.NewHandler(application.Imports, application.Store, application.Export, logger)
	mux := h.Routes()

	// Static files - serve from filesystem
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", "http://localhost"+srv.Addr, "db", cfg.Database.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
