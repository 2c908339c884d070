package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulwedud33/intern-finder-v2-sub000/api"
	dbfs "github.com/abdulwedud33/intern-finder-v2-sub000/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = slog.New(slog.NewJSONHandler(os.Stdout, nil))
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "internfinder",
	Short:        "Application, interview and review coordination service",
	Version:      fmt.Sprintf("%s (built at %s)", version, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = c
		api.SetLogger(logger)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config YAML file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd, backupCmd, restoreCmd, reviewCmd)
}

// openDB opens the configured database, applying migrations when asked.
func openDB(ctx context.Context, migrate bool) (*db.DB, error) {
	d, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(cfg.MaxOpenConns)
	if migrate {
		if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
			d.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return d, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting internfinder", slog.String("version", version), slog.String("build_time", buildTime))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := openDB(ctx, cfg.MigrateOnStart)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if err := d.Close(); err != nil {
				logger.Error("closing database", slog.Any("err", err))
			}
		}()

		handler, tasks := api.SetupRoutes(cfg, version, buildTime, d)
		tasks.Start(ctx)
		defer tasks.Stop()

		server := &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.APITimeout,
			WriteTimeout: cfg.APITimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", slog.String("addr", cfg.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
		}
		logger.Info("shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("server exited")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		applied, err := db.AppliedMigrations(cmd.Context(), d)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s at %d migrations\n", cfg.DatabasePath, len(applied))
		return nil
	},
}
