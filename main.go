// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/nclcancer/survival/config"
	"github.com/nclcancer/survival/database"
	"github.com/nclcancer/survival/scraper"
	"github.com/nclcancer/survival/services"
	"github.com/nclcancer/survival/staging"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command line: one --scrape flag, no arguments. The
// dotenv file is chosen by ENV_FILE, not a flag.
func newRootCmd(runFn func(ctx context.Context, scrape bool) error) *cobra.Command {
	var scrape bool
	cmd := &cobra.Command{
		Use:           "survival",
		Short:         "Load the published cancer survival statistics into the warehouse",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(cmd.Context(), scrape)
		},
	}
	cmd.Flags().BoolVar(&scrape, "scrape", true, "download the latest files before processing")
	return cmd
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "survival",
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// run does the setup and one pipeline run. Only setup failures are
// returned; per-file problems are logged and counted by the pipeline.
func run(ctx context.Context, scrape bool) error {
	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel).With("run_id", uuid.NewString())

	policies, err := cfg.Policies()
	if err != nil {
		return err
	}
	core, err := cfg.CoreGeographies()
	if err != nil {
		return err
	}

	store, err := staging.FromConfig(ctx, cfg.StagingConfig)
	if err != nil {
		return fmt.Errorf("failed to set up staging: %w", err)
	}

	db, err := database.Connect(ctx, cfg.DatabaseConfig, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := scraper.NewClient(scraper.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.HTTPTimeout,
		Interval:  cfg.FetchInterval,
		Extension: cfg.Extension,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting cancer survival load", "scrape", scrape, "staging", cfg.Mode, "driver", cfg.Driver)
	pipeline := services.NewPipeline(cfg, policies, core, client, store, db, logger, nil)
	rep, err := pipeline.Run(ctx, scrape)
	if err != nil {
		return err
	}
	if rep.Failed > 0 {
		logger.Warn("Some files were not loaded", "failed", rep.Failed)
	}
	return nil
}
