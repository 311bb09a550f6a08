package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// UploadRequest describes a document being uploaded.
type UploadRequest struct {
	Name        string
	ContentType string
	SizeBytes   int64
	Title       string
	Tags        []string
	Content     io.Reader
}

// UploadService orchestrates the document upload transaction: record
// creation, blob storage and pipeline kickoff. The record and the blob
// live in different systems, so a blob failure is compensated by
// deleting the record again.
type UploadService struct {
	docs         store.DocumentStore
	blobs        blob.Gateway
	bucket       string
	pub          messaging.Publisher
	extractQueue string
	logger       *slog.Logger
}

// NewUploadService creates the upload orchestrator.
func NewUploadService(
	docs store.DocumentStore,
	blobs blob.Gateway,
	bucket string,
	pub messaging.Publisher,
	extractQueue string,
	log *slog.Logger,
) *UploadService {
	if docs == nil {
		panic("document store must not be nil")
	}
	if blobs == nil {
		panic("blob gateway must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &UploadService{
		docs:         docs,
		blobs:        blobs,
		bucket:       bucket,
		pub:          pub,
		extractQueue: extractQueue,
		logger:       log.With(slog.String("component", "upload_service")),
	}
}

// Upload validates the request, persists the document record, stores
// the blob, and queues the extraction job. On blob-store failure the
// record is deleted again so no half-uploaded document remains; if
// that compensating delete fails too, the returned error wraps
// ErrCompensationFailed and both causes.
//
// A publish failure after record and blob both succeeded does NOT fail
// the upload: the document exists and is downloadable, it just misses
// pipeline processing until requeued.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	doc, err := domain.NewDocument(req.Name, req.ContentType, req.SizeBytes, req.Title, req.Tags)
	if err != nil {
		return nil, err
	}

	log = log.With(slog.String("document_id", doc.ID.String()))

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	key := blob.ObjectKey(doc.ID, doc.ContentType)
	if err := s.blobs.PutBlob(ctx, s.bucket, key, req.Content, doc.SizeBytes, doc.ContentType); err != nil {
		log.Error("blob store failed, compensating record creation",
			slog.String("error", err.Error()))

		if _, delErr := s.docs.Delete(ctx, doc.ID); delErr != nil {
			log.Error("compensating delete failed, document record orphaned",
				slog.String("error", delErr.Error()))
			return nil, fmt.Errorf("%w: %v", ErrCompensationFailed,
				errors.Join(err, delErr))
		}
		return nil, fmt.Errorf("failed to store document blob: %w", err)
	}

	job := pipeline.ExtractionJob{
		ID:          doc.ID,
		Name:        doc.Name,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		UploadedAt:  doc.UploadedAt,
		Tags:        doc.Tags,
	}
	if err := s.pub.PublishJSON(ctx, s.extractQueue, job); err != nil {
		log.Error("failed to queue extraction job, document uploaded but unprocessed",
			slog.String("error", err.Error()))
	} else {
		log.Info("document uploaded and queued for extraction",
			slog.String("queue", s.extractQueue))
	}

	return doc, nil
}
