package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/docpipe/internal/config"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// archiveTimestampLayout is appended to moved file names so repeated
// drops of the same file name never collide in the archive.
const archiveTimestampLayout = "20060102150405"

// Job scans the input directory and ingests every matching statistics
// file. Successfully ingested files move to the archive directory,
// failed ones to the error directory; either way a file is processed
// at most once.
type Job struct {
	access  store.AccessStore
	cfg     config.BatchConfig
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewJob creates the ingestion job.
func NewJob(access store.AccessStore, cfg config.BatchConfig, log *slog.Logger) *Job {
	if access == nil {
		panic("access store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		access:  access,
		cfg:     cfg,
		logger:  log.With(slog.String("component", "batch_job")),
		nowFunc: time.Now,
	}
}

// Run ingests all pending statistics files in name order. Per-file
// failures are contained: they move the file aside and the run
// continues. The returned error covers only failures that stop the
// scan itself.
func (j *Job) Run(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, j.logger)

	pattern := filepath.Join(j.cfg.InputDir, j.cfg.FilePattern)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to scan input directory: %w", err)
	}
	sort.Strings(files)

	log.Info("batch ingestion run starting", slog.Int("file_count", len(files)))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.ingestFile(ctx, log, path); err != nil {
			log.Error("file ingestion failed",
				slog.String("file", path),
				slog.String("error", err.Error()))
			j.moveAside(log, path, j.cfg.ErrorDir)
		} else {
			j.moveAside(log, path, j.cfg.ArchiveDir)
		}
	}

	return nil
}

// ingestFile parses one statistics file and upserts its aggregates.
// Counts are absolute, so re-running after a crash mid-file simply
// overwrites the rows already written.
func (j *Job) ingestFile(ctx context.Context, log *slog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	aggregates, err := ParseStatistics(f)
	if err != nil {
		return err
	}

	for _, a := range aggregates {
		if err := j.access.UpsertAbsolute(ctx, a); err != nil {
			return fmt.Errorf("failed to persist aggregate for %s: %w", a.DocumentID, err)
		}
	}

	log.Info("ingested statistics file",
		slog.String("file", filepath.Base(path)),
		slog.Int("aggregate_count", len(aggregates)))
	return nil
}

// moveAside moves a processed file into destDir under a timestamped
// name. A failed move only logs: the worst case is a reprocessed file,
// which the absolute upsert absorbs.
func (j *Job) moveAside(log *slog.Logger, path, destDir string) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := j.nowFunc().UTC().Format(archiveTimestampLayout)

	dest := filepath.Join(destDir, fmt.Sprintf("%s-%s%s", stem, stamp, ext))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		log.Error("failed to create destination directory",
			slog.String("dir", destDir),
			slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(path, dest); err != nil {
		log.Error("failed to move processed file",
			slog.String("from", path),
			slog.String("to", dest),
			slog.String("error", err.Error()))
		return
	}
	log.Debug("moved processed file", slog.String("to", dest))
}
