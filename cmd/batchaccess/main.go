// Package main implements the batchaccess CLI, which ingests
// access-statistics XML drops into the daily aggregate table. By
// default it runs one ingestion pass and exits; with --daemon it runs
// on a daily schedule.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/phrazzld/docpipe/internal/batch"
	"github.com/phrazzld/docpipe/internal/config"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/platform/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("batchaccess terminated", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "batchaccess",
		Short: "Ingest access-statistics XML files into daily aggregates",
		Long: `batchaccess scans the configured input directory for access-statistics
XML files, aggregates their events into daily per-document counts and
upserts the aggregates. Ingested files are archived; malformed files
are moved to the error directory.

Counts are absolute, so re-running after a crash is safe.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), daemon)
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false,
		"run on the configured daily schedule instead of once")
	return cmd
}

func runBatch(parent context.Context, daemon bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server.LogLevel)
	ctx = logger.WithLogger(ctx, log)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	job := batch.NewJob(postgres.NewPostgresAccessStore(db), cfg.Batch, log)

	if daemon || cfg.Batch.ScheduleEnabled {
		scheduler, err := batch.NewScheduler(job, cfg.Batch.DailyTimeUTC, log)
		if err != nil {
			return err
		}
		log.Info("batchaccess running in daemon mode",
			slog.String("daily_time_utc", cfg.Batch.DailyTimeUTC))
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	return job.Run(ctx)
}
