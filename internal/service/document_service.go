package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// UpdateRequest describes a metadata change to an existing document.
// Nil fields are left unchanged; a non-nil empty Tags slice clears the
// document's tags.
type UpdateRequest struct {
	Name  *string
	Title *string
	Tags  *[]string
}

// DocumentService covers the lifecycle of stored documents: metadata
// updates, downloads and deletion, each with the matching search-index
// maintenance message.
type DocumentService struct {
	docs        store.DocumentStore
	blobs       blob.Gateway
	bucket      string
	pub         messaging.Publisher
	updateQueue string
	deleteQueue string
	logger      *slog.Logger
}

// NewDocumentService creates the document lifecycle service.
func NewDocumentService(
	docs store.DocumentStore,
	blobs blob.Gateway,
	bucket string,
	pub messaging.Publisher,
	updateQueue, deleteQueue string,
	log *slog.Logger,
) *DocumentService {
	if docs == nil {
		panic("document store must not be nil")
	}
	if blobs == nil {
		panic("blob gateway must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &DocumentService{
		docs:        docs,
		blobs:       blobs,
		bucket:      bucket,
		pub:         pub,
		updateQueue: updateQueue,
		deleteQueue: deleteQueue,
		logger:      log.With(slog.String("component", "document_service")),
	}
}

// Get retrieves a document's metadata.
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// Download returns the document's metadata and its blob content. The
// caller must close the reader.
func (s *DocumentService) Download(ctx context.Context, id uuid.UUID) (*domain.Document, io.ReadCloser, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	key := blob.ObjectKey(doc.ID, doc.ContentType)
	rc, err := s.blobs.GetBlob(ctx, s.bucket, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blob for %s: %w", id, err)
	}
	return doc, rc, nil
}

// Update applies a metadata change, with validation and tag
// normalization, and queues a partial update for the search index.
func (s *DocumentService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).
		With(slog.String("document_id", id.String()))

	upd, err := validateUpdate(req)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	msg := pipeline.IndexPartialUpdate{
		ID:    doc.ID,
		Name:  doc.Name,
		Title: doc.Title,
		Tags:  doc.Tags,
	}
	if err := s.pub.PublishJSON(ctx, s.updateQueue, msg); err != nil {
		log.Error("failed to queue index update, index is stale",
			slog.String("error", err.Error()))
	}

	return doc, nil
}

// Delete removes the document record, its blob and, asynchronously,
// its index entry. The record goes first: once it is gone no new
// reader can find the document, and a leftover blob or index entry is
// cleaned up on the remaining steps.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).
		With(slog.String("document_id", id.String()))

	doc, err := s.docs.Delete(ctx, id)
	if err != nil {
		return err
	}

	key := blob.ObjectKey(doc.ID, doc.ContentType)
	if err := s.blobs.DeleteBlob(ctx, s.bucket, key); err != nil {
		log.Error("failed to delete blob, object orphaned",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	if err := s.pub.PublishJSON(ctx, s.deleteQueue, pipeline.IndexDelete{ID: id}); err != nil {
		log.Error("failed to queue index delete, index entry orphaned",
			slog.String("error", err.Error()))
	}

	log.Info("document deleted")
	return nil
}

// validateUpdate checks the requested changes against the domain
// bounds and normalizes tags.
func validateUpdate(req UpdateRequest) (store.DocumentUpdate, error) {
	var upd store.DocumentUpdate

	if req.Name != nil {
		name := *req.Name
		if name == "" {
			return upd, domain.ErrEmptyName
		}
		if len(name) > domain.NameMaxLength {
			return upd, domain.ErrNameTooLong
		}
		upd.Name = &name
	}
	if req.Title != nil {
		title := *req.Title
		if len(title) > domain.TitleMaxLength {
			return upd, domain.ErrTitleTooLong
		}
		upd.Title = &title
	}
	if req.Tags != nil {
		tags, err := domain.NormalizeTags(*req.Tags)
		if err != nil {
			return upd, err
		}
		upd.Tags = &tags
	}

	return upd, nil
}
