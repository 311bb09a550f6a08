// Package extract implements the text-extraction stage: it consumes
// extraction jobs, fetches the document blob and produces an
// extraction result with the text pulled out of it.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// PageBreakMarker separates the OCR text of consecutive PDF pages in
// an extraction result.
const PageBreakMarker = "--- Page Break ---"

// OCREngine recognizes text in a single image file, returning the text
// and a mean confidence score in [0, 1] for observability.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (text string, confidence float64, err error)
}

// Rasterizer converts a PDF into one image file per page, written into
// outDir, and returns the image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Stage is the extraction stage. It fails closed: any extraction
// error is logged and yields no result message, and no error escapes
// the consumer loop.
type Stage struct {
	blobs    blob.Gateway
	bucket   string
	engine   OCREngine
	raster   Rasterizer
	pub      messaging.Publisher
	outQueue string
	tempDir  string
	logger   *slog.Logger
}

// NewStage creates the extraction stage. tempDir may be empty to use
// the system temp directory.
func NewStage(
	blobs blob.Gateway,
	bucket string,
	engine OCREngine,
	raster Rasterizer,
	pub messaging.Publisher,
	outQueue string,
	tempDir string,
	log *slog.Logger,
) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		blobs:    blobs,
		bucket:   bucket,
		engine:   engine,
		raster:   raster,
		pub:      pub,
		outQueue: outQueue,
		tempDir:  tempDir,
		logger:   log.With(slog.String("component", "extract_stage")),
	}
}

// Handle processes one extraction job. Redelivery is safe: extraction
// has no persistent side effects besides the published result, and the
// downstream index upsert and summarization are idempotent per
// document ID.
func (s *Stage) Handle(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var job pipeline.ExtractionJob
	if err := json.Unmarshal(body, &job); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid extraction job payload: %w", err))
	}

	log = log.With(slog.String("document_id", job.ID.String()))
	log.Info("processing extraction job",
		slog.String("name", job.Name),
		slog.String("content_type", job.ContentType),
		slog.Int64("size_bytes", job.SizeBytes))

	text, outcome := s.extractText(ctx, log, job)
	if outcome != nil {
		return *outcome
	}

	if strings.TrimSpace(text) == "" {
		log.Warn("no text extracted, skipping publish")
		return messaging.Skipped("no text extracted")
	}

	result := pipeline.ExtractionResult{
		ID:          job.ID,
		Name:        job.Name,
		ContentType: job.ContentType,
		SizeBytes:   job.SizeBytes,
		UploadedAt:  job.UploadedAt,
		Text:        text,
		Tags:        job.Tags,
	}

	if err := s.pub.PublishJSON(ctx, s.outQueue, result); err != nil {
		return messaging.FailedTransient(fmt.Errorf("publish extraction result: %w", err))
	}

	log.Info("published extraction result",
		slog.String("queue", s.outQueue),
		slog.Int("text_length", len(text)))
	return messaging.Processed()
}

// extractText downloads the blob and dispatches on content type. A nil
// outcome means text extraction ran; a non-nil outcome short-circuits
// Handle. All failure paths come back as outcomes, never as panics or
// escaping errors.
func (s *Stage) extractText(ctx context.Context, log *slog.Logger, job pipeline.ExtractionJob) (string, *messaging.Outcome) {
	skip := func(reason string) (string, *messaging.Outcome) {
		o := messaging.Skipped(reason)
		return "", &o
	}

	ct := strings.ToLower(job.ContentType)
	supported := ct == "text/plain" || ct == "application/pdf" || strings.HasPrefix(ct, "image/")
	if !supported {
		log.Warn("unsupported content type", slog.String("content_type", job.ContentType))
		return skip("unsupported content type " + job.ContentType)
	}

	tmpPath, cleanup, err := s.download(ctx, job)
	if err != nil {
		log.Error("failed to fetch blob", slog.String("error", err.Error()))
		o := messaging.FailedTransient(fmt.Errorf("fetch blob: %w", err))
		return "", &o
	}
	defer cleanup()

	var text string
	switch {
	case ct == "text/plain":
		raw, err := os.ReadFile(tmpPath)
		if err != nil {
			log.Error("failed to read text file", slog.String("error", err.Error()))
			return skip("read failure")
		}
		text = string(raw)

	case strings.HasPrefix(ct, "image/"):
		recognized, confidence, err := s.engine.Recognize(ctx, tmpPath)
		if err != nil {
			log.Error("image OCR failed", slog.String("error", err.Error()))
			return skip("ocr failure")
		}
		log.Info("image OCR completed", slog.Float64("confidence", confidence))
		text = recognized

	case ct == "application/pdf":
		extracted, err := s.extractPDF(ctx, log, tmpPath)
		if err != nil {
			log.Error("pdf extraction failed", slog.String("error", err.Error()))
			return skip("pdf extraction failure")
		}
		text = extracted
	}

	return text, nil
}

// download fetches the document blob into a temp file. The returned
// cleanup removes the file and must run on every exit path.
func (s *Stage) download(ctx context.Context, job pipeline.ExtractionJob) (string, func(), error) {
	key := blob.ObjectKey(job.ID, job.ContentType)

	f, err := os.CreateTemp(s.tempDir, "docpipe-*"+blob.ExtensionForContentType(job.ContentType))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	rc, err := s.blobs.GetBlob(ctx, s.bucket, key)
	if err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("flush temp file: %w", err)
	}

	return path, cleanup, nil
}

// extractPDF rasterizes every page and OCRs each one, joining the page
// texts with the page-break marker. The per-job page directory is
// removed on every exit path.
func (s *Stage) extractPDF(ctx context.Context, log *slog.Logger, pdfPath string) (string, error) {
	pageDir, err := os.MkdirTemp(s.tempDir, "docpipe-pages-")
	if err != nil {
		return "", fmt.Errorf("create page dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(pageDir) }()

	pages, err := s.raster.Rasterize(ctx, pdfPath, pageDir)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		pageText, confidence, err := s.engine.Recognize(ctx, page)
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		log.Debug("page OCR completed",
			slog.Int("page", i+1),
			slog.Float64("confidence", confidence))
		texts = append(texts, pageText)
	}

	return strings.Join(texts, "\n"+PageBreakMarker+"\n"), nil
}
