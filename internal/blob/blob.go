// Package blob defines the narrow contract the pipeline uses to talk
// to the object store, plus the deterministic key scheme shared by the
// upload path and the extraction stage.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("blob not found")

// Gateway is the narrow interface over the object store. Implemented
// by the MinIO client wrapper in platform/minio; consumers depend on
// this interface only.
type Gateway interface {
	// PutBlob stores size bytes read from r under bucket/key.
	PutBlob(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// GetBlob opens the object for reading. The caller must close the
	// returned reader. Returns ErrNotFound if the object does not exist.
	GetBlob(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// DeleteBlob removes the object. Deleting a missing object is not
	// an error.
	DeleteBlob(ctx context.Context, bucket, key string) error

	// ExistsBlob reports whether the object exists.
	ExistsBlob(ctx context.Context, bucket, key string) (bool, error)
}

// ObjectKey derives the deterministic object key for a document:
// the document ID followed by the extension for its content type.
func ObjectKey(id uuid.UUID, contentType string) string {
	return id.String() + ExtensionForContentType(contentType)
}

// ExtensionForContentType maps a MIME type to a file extension.
// Unknown types fall back to a generic binary extension.
func ExtensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
