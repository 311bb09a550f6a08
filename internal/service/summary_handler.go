package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// SummaryHandler persists pipeline-produced summaries onto their
// documents. It only ever updates existing records: the document may
// have been deleted while its summary was in flight, in which case the
// summary is dropped with a warning.
type SummaryHandler struct {
	docs   store.DocumentStore
	logger *slog.Logger
}

func NewSummaryHandler(docs store.DocumentStore, log *slog.Logger) *SummaryHandler {
	if docs == nil {
		panic("document store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SummaryHandler{
		docs:   docs,
		logger: log.With(slog.String("component", "summary_handler")),
	}
}

func (h *SummaryHandler) Handle(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var msg pipeline.SummaryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid summary payload: %w", err))
	}

	log = log.With(slog.String("document_id", msg.ID.String()))

	err := h.docs.SetSummary(ctx, msg.ID, msg.Summary)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("document no longer exists, dropping summary")
			return messaging.Skipped("document not found")
		}
		return messaging.FailedTransient(fmt.Errorf("persist summary: %w", err))
	}

	log.Info("stored document summary", slog.Int("summary_length", len(msg.Summary)))
	return messaging.Processed()
}
