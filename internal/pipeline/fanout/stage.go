// Package fanout implements the stage that duplicates each extraction
// result onto the summarization and indexing queues.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// Stage forwards each extraction result, byte for byte, to both
// downstream queues. The message is only acknowledged once both
// publishes succeed, so a partial fan-out is retried whole; downstream
// consumers tolerate the resulting duplicates.
type Stage struct {
	pub            messaging.Publisher
	summarizeQueue string
	indexQueue     string
	logger         *slog.Logger
}

func NewStage(pub messaging.Publisher, summarizeQueue, indexQueue string, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		pub:            pub,
		summarizeQueue: summarizeQueue,
		indexQueue:     indexQueue,
		logger:         log.With(slog.String("component", "fanout_stage")),
	}
}

// Handle validates the payload shape, then republishes the original
// bytes to both queues.
func (s *Stage) Handle(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result pipeline.ExtractionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid extraction result payload: %w", err))
	}

	log = log.With(slog.String("document_id", result.ID.String()))

	if err := s.pub.Publish(ctx, s.summarizeQueue, body); err != nil {
		return messaging.FailedTransient(fmt.Errorf("publish to %s: %w", s.summarizeQueue, err))
	}
	if err := s.pub.Publish(ctx, s.indexQueue, body); err != nil {
		return messaging.FailedTransient(fmt.Errorf("publish to %s: %w", s.indexQueue, err))
	}

	log.Info("fanned out extraction result",
		slog.String("summarize_queue", s.summarizeQueue),
		slog.String("index_queue", s.indexQueue))
	return messaging.Processed()
}
