// Package index implements the search-index maintenance stage. It
// consumes three queues: full upserts from the fan-out stage, partial
// metadata updates, and deletions.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// IndexDocument is the full document representation stored in the
// search index.
type IndexDocument struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	SizeBytes   int64     `json:"size_bytes"`
	Text        string    `json:"text"`
	Tags        []string  `json:"tags"`
}

// PartialDocument holds the metadata fields a partial update may
// change. Absent fields keep their indexed values.
type PartialDocument struct {
	Name  string   `json:"name"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags"`
}

// Repository is the search-index port. Upserts and partial updates are
// idempotent; Delete of a missing document succeeds.
type Repository interface {
	Upsert(ctx context.Context, doc IndexDocument) error
	PartialUpdate(ctx context.Context, id uuid.UUID, partial PartialDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Stage maintains the search index. Index failures are treated as
// transient; the broker decides between requeue and drop.
type Stage struct {
	repo   Repository
	logger *slog.Logger
}

func NewStage(repo Repository, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		repo:   repo,
		logger: log.With(slog.String("component", "index_stage")),
	}
}

// HandleUpsert indexes the full document, replacing any previous
// version under the same ID.
func (s *Stage) HandleUpsert(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result pipeline.ExtractionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid extraction result payload: %w", err))
	}

	doc := IndexDocument{
		ID:          result.ID,
		Name:        result.Name,
		ContentType: result.ContentType,
		UploadedAt:  result.UploadedAt,
		SizeBytes:   result.SizeBytes,
		Text:        result.Text,
		Tags:        result.Tags,
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return messaging.FailedTransient(fmt.Errorf("index upsert: %w", err))
	}

	log.Info("indexed document", slog.String("document_id", result.ID.String()))
	return messaging.Processed()
}

// HandlePartialUpdate merges metadata changes into the indexed
// document without touching its full text.
func (s *Stage) HandlePartialUpdate(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var upd pipeline.IndexPartialUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid partial update payload: %w", err))
	}

	partial := PartialDocument{Name: upd.Name, Title: upd.Title, Tags: upd.Tags}
	if err := s.repo.PartialUpdate(ctx, upd.ID, partial); err != nil {
		return messaging.FailedTransient(fmt.Errorf("index partial update: %w", err))
	}

	log.Info("updated indexed document", slog.String("document_id", upd.ID.String()))
	return messaging.Processed()
}

// HandleDelete removes the document from the index. Deleting a
// document the index never saw is a success.
func (s *Stage) HandleDelete(ctx context.Context, body []byte) messaging.Outcome {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var del pipeline.IndexDelete
	if err := json.Unmarshal(body, &del); err != nil {
		return messaging.FailedPermanent(fmt.Errorf("invalid delete payload: %w", err))
	}

	if err := s.repo.Delete(ctx, del.ID); err != nil {
		return messaging.FailedTransient(fmt.Errorf("index delete: %w", err))
	}

	log.Info("removed document from index", slog.String("document_id", del.ID.String()))
	return messaging.Processed()
}
