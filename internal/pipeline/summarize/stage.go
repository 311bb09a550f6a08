// Package summarize implements the stage that produces a short
// natural-language summary of a document's extracted text.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// Summarizer generates a summary of the given document text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Stage is the summarization stage. A summarization failure is
// terminal for the message but not for the document: the document
// stays searchable without a summary, so failures are logged and the
// message is dropped rather than retried forever.
type Stage struct {
	summarizer Summarizer
	pub        messaging.Publisher
	outQueue   string
	logger     *slog.Logger
}

// NewStage creates the summarization stage. summarizer may be nil when
// no API credentials are configured; the stage then skips every
// message instead of failing.
func NewStage(summarizer Summarizer, pub messaging.Publisher, outQueue string, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		summarizer: summarizer,
		pub:        pub,
		outQueue:   outQueue,
		logger:     log.With(slog.String("component", "summarize_stage")),
	}
}

func (s *Stage) Handle(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result pipeline.ExtractionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid extraction result payload: %w", err))
	}

	log = log.With(slog.String("document_id", result.ID.String()))

	if s.summarizer == nil {
		log.Warn("summarizer not configured, skipping")
		return messaging.Skipped("missing API credentials")
	}
	if strings.TrimSpace(result.Text) == "" {
		log.Warn("empty document text, skipping summarization")
		return messaging.Skipped("empty document text")
	}

	summary, err := s.summarizer.Summarize(ctx, result.Text)
	if err != nil {
		log.Error("summarization failed", slog.String("error", err.Error()))
		return messaging.Skipped("summarization failed: " + err.Error())
	}

	msg := pipeline.SummaryMessage{ID: result.ID, Name: result.Name, Summary: summary}
	if err := s.pub.PublishJSON(ctx, s.outQueue, msg); err != nil {
		return messaging.FailedTransient(fmt.Errorf("publish summary: %w", err))
	}

	log.Info("published summary",
		slog.String("queue", s.outQueue),
		slog.Int("summary_length", len(summary)))
	return messaging.Processed()
}
