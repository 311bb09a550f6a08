package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/pipeline"
)

const (
	testBucket       = "documents"
	testExtractQueue = "extract.in"
)

func validUploadRequest() UploadRequest {
	content := "plain text content"
	return UploadRequest{
		Name:        "notes.txt",
		ContentType: "text/plain",
		SizeBytes:   int64(len(content)),
		Title:       "Notes",
		Tags:        []string{"Personal", " personal "},
		Content:     strings.NewReader(content),
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	blobs := newFakeBlobGateway()
	pub := newFakePublisher()
	svc := NewUploadService(docs, blobs, testBucket, pub, testExtractQueue, slog.Default())

	doc, err := svc.Upload(context.Background(), validUploadRequest())
	require.NoError(t, err)

	// Record persisted with normalized tags.
	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"personal"}, stored.Tags)

	// Blob stored under the derived key.
	key := blob.ObjectKey(doc.ID, doc.ContentType)
	assert.Contains(t, blobs.objects, key)
	assert.Equal(t, "plain text content", string(blobs.objects[key]))

	// Extraction job queued.
	require.Len(t, pub.published[testExtractQueue], 1)
	var job pipeline.ExtractionJob
	require.NoError(t, json.Unmarshal(pub.published[testExtractQueue][0], &job))
	assert.Equal(t, doc.ID, job.ID)
	assert.Equal(t, doc.ContentType, job.ContentType)
}

func TestUploadValidationFailure(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	blobs := newFakeBlobGateway()
	pub := newFakePublisher()
	svc := NewUploadService(docs, blobs, testBucket, pub, testExtractQueue, slog.Default())

	req := validUploadRequest()
	req.Name = ""

	_, err := svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Nothing was persisted anywhere.
	assert.Empty(t, docs.docs)
	assert.Empty(t, blobs.objects)
	assert.Empty(t, pub.published)
}

func TestUploadBlobFailureCompensates(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	blobs := newFakeBlobGateway()
	blobs.putErr = errors.New("object store down")
	pub := newFakePublisher()
	svc := NewUploadService(docs, blobs, testBucket, pub, testExtractQueue, slog.Default())

	_, err := svc.Upload(context.Background(), validUploadRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCompensationFailed)

	// Exactly one compensating delete, and the record is gone.
	assert.Equal(t, 1, docs.deleteCalls)
	assert.Empty(t, docs.docs)
	assert.Empty(t, pub.published)
}

func TestUploadCompensationFailure(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	blobs := newFakeBlobGateway()
	blobs.putErr = errors.New("object store down")
	docs.deleteErr = errors.New("database down")
	svc := NewUploadService(docs, blobs, testBucket, newFakePublisher(), testExtractQueue, slog.Default())

	_, err := svc.Upload(context.Background(), validUploadRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.Contains(t, err.Error(), "object store down")
	assert.Contains(t, err.Error(), "database down")
}

func TestUploadPublishFailureDoesNotFailUpload(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	blobs := newFakeBlobGateway()
	pub := newFakePublisher()
	pub.err = errors.New("broker gone")
	svc := NewUploadService(docs, blobs, testBucket, pub, testExtractQueue, slog.Default())

	doc, err := svc.Upload(context.Background(), validUploadRequest())
	require.NoError(t, err)

	// Document and blob both exist even though no job was queued.
	_, err = docs.GetByID(context.Background(), doc.ID)
	assert.NoError(t, err)
	assert.Contains(t, blobs.objects, blob.ObjectKey(doc.ID, doc.ContentType))
}
