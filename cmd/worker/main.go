// Package main implements the docpipe worker: it runs database
// migrations, connects the broker, blob store, search index and
// summarization API, and then consumes all pipeline queues until
// shut down.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/docpipe/internal/config"
	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline/extract"
	"github.com/phrazzld/docpipe/internal/pipeline/fanout"
	"github.com/phrazzld/docpipe/internal/pipeline/index"
	"github.com/phrazzld/docpipe/internal/pipeline/summarize"
	"github.com/phrazzld/docpipe/internal/platform/gemini"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/platform/minio"
	"github.com/phrazzld/docpipe/internal/platform/ocr"
	"github.com/phrazzld/docpipe/internal/platform/pdf"
	"github.com/phrazzld/docpipe/internal/platform/postgres"
	"github.com/phrazzld/docpipe/internal/platform/search"
	"github.com/phrazzld/docpipe/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server.LogLevel)
	ctx = logger.WithLogger(ctx, log)
	log.Info("worker starting", slog.String("log_level", cfg.Server.LogLevel))

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	blobs, err := minio.NewBlobStore(cfg.Blob, log)
	if err != nil {
		return err
	}
	if err := blobs.EnsureBucket(ctx, cfg.Blob.Bucket); err != nil {
		return err
	}

	searchRepo, err := search.NewElasticsearchRepository(cfg.Search, log)
	if err != nil {
		return err
	}

	broker, err := messaging.Connect(ctx, cfg.Queue, log)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	queues := []string{
		cfg.Queue.ExtractInQueue,
		cfg.Queue.ExtractOutQueue,
		cfg.Queue.SummarizeInQueue,
		cfg.Queue.SummaryInQueue,
		cfg.Queue.IndexInQueue,
		cfg.Queue.IndexUpdateQueue,
		cfg.Queue.IndexDeleteQueue,
	}
	if err := broker.Declare(queues...); err != nil {
		return err
	}

	docs := postgres.NewPostgresDocumentStore(db)

	extractStage := extract.NewStage(
		blobs,
		cfg.Blob.Bucket,
		ocr.NewTesseractEngine(cfg.Extraction.Languages),
		pdf.NewGhostscriptRasterizer(cfg.Extraction),
		broker,
		cfg.Queue.ExtractOutQueue,
		cfg.Extraction.TempDir,
		log,
	)
	fanoutStage := fanout.NewStage(broker, cfg.Queue.SummarizeInQueue, cfg.Queue.IndexInQueue, log)
	summarizeStage := summarize.NewStage(buildSummarizer(ctx, cfg.Summarizer, log), broker, cfg.Queue.SummaryInQueue, log)
	indexStage := index.NewStage(searchRepo, log)
	summaryHandler := service.NewSummaryHandler(docs, log)

	opts := messaging.ConsumeOptions{
		Prefetch:         cfg.Queue.Prefetch,
		RequeueOnFailure: cfg.Queue.RequeueOnFailure,
	}

	g, ctx := errgroup.WithContext(ctx)

	consume := func(queue string, handler messaging.Handler) {
		g.Go(func() error {
			return broker.Consume(ctx, queue, handler, opts)
		})
	}
	consume(cfg.Queue.ExtractInQueue, extractStage.Handle)
	consume(cfg.Queue.ExtractOutQueue, fanoutStage.Handle)
	consume(cfg.Queue.SummarizeInQueue, summarizeStage.Handle)
	consume(cfg.Queue.SummaryInQueue, summaryHandler.Handle)
	consume(cfg.Queue.IndexInQueue, indexStage.HandleUpsert)
	consume(cfg.Queue.IndexUpdateQueue, indexStage.HandlePartialUpdate)
	consume(cfg.Queue.IndexDeleteQueue, indexStage.HandleDelete)

	g.Go(func() error {
		return serveHealth(ctx, cfg.Server.HealthPort, log)
	})

	log.Info("worker running", slog.Int("consumer_count", len(queues)))

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("worker shut down")
		return nil
	}
	return err
}

// openDatabase connects, verifies the connection and applies pending
// migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info("database ready", slog.String("migrations_dir", cfg.MigrationsDir))
	return db, nil
}

// buildSummarizer returns nil when no API key is configured; the
// summarization stage then skips messages instead of failing them.
func buildSummarizer(ctx context.Context, cfg config.SummarizerConfig, log *slog.Logger) summarize.Summarizer {
	if cfg.APIKey == "" {
		log.Warn("no summarizer API key configured, summaries will be skipped")
		return nil
	}
	s, err := gemini.NewSummarizer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create summarizer, summaries will be skipped",
			slog.String("error", err.Error()))
		return nil
	}
	return s
}

func serveHealth(ctx context.Context, port int, log *slog.Logger) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info("health endpoint listening", slog.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("health server failed: %w", err)
	}
}
