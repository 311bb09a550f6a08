// Package minio implements the blob.Gateway interface on top of an
// S3-compatible object store.
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/config"
)

// BlobStore stores document blobs in an S3-compatible object store.
type BlobStore struct {
	client *minio.Client
	logger *slog.Logger
}

// NewBlobStore connects to the object store described by cfg.
func NewBlobStore(cfg config.BlobConfig, log *slog.Logger) (*BlobStore, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &BlobStore{
		client: client,
		logger: log.With(slog.String("component", "blob_store")),
	}, nil
}

// Ensure BlobStore implements blob.Gateway
var _ blob.Gateway = (*BlobStore)(nil)

// EnsureBucket creates the bucket if it does not exist yet.
func (s *BlobStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	s.logger.Info("created bucket", slog.String("bucket", bucket))
	return nil
}

// PutBlob implements blob.Gateway.PutBlob
func (s *BlobStore) PutBlob(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	size int64,
	contentType string,
) error {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store blob %q: %w", key, err)
	}
	return nil
}

// GetBlob implements blob.Gateway.GetBlob. Reads from the returned
// reader fail with blob.ErrNotFound when the object does not exist.
func (s *BlobStore) GetBlob(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	// GetObject is lazy; Stat forces the existence check so callers
	// get ErrNotFound here instead of on first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapObjectError(key, err)
	}
	return obj, nil
}

// DeleteBlob implements blob.Gateway.DeleteBlob. Deleting a missing
// blob is a success.
func (s *BlobStore) DeleteBlob(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

// ExistsBlob implements blob.Gateway.ExistsBlob
func (s *BlobStore) ExistsBlob(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob %q: %w", key, err)
	}
	return true, nil
}

func mapObjectError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return fmt.Errorf("failed to fetch blob %q: %w", key, err)
}
