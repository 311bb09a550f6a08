package domain

import (
	"time"

	"github.com/google/uuid"
)

// Validation bounds for documents and tags.
const (
	NameMaxLength  = 127
	TitleMaxLength = 100
	TagMinLength   = 2
	TagMaxLength   = 30

	// SizeBytesMax is the largest accepted document size (50 MiB).
	SizeBytesMax = 50 * 1024 * 1024
)

// Document represents an uploaded file tracked by the system. The binary
// content itself lives in the blob store under a key derived from the
// document ID and content type; the pipeline correlates all of its
// messages by the document ID.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`

	// Title is optional and may be empty.
	Title string `json:"title,omitempty"`

	// Summary is set asynchronously once the summarization stage has
	// processed the document. Empty until then.
	Summary string `json:"summary,omitempty"`

	// Tags holds the normalized tag names referencing this document.
	Tags []string `json:"tags"`
}

// NewDocument creates a new Document with a generated ID and the upload
// timestamp set to now (UTC). Tags are normalized and deduplicated.
// Returns a validation error if any field is out of bounds.
func NewDocument(name, contentType string, sizeBytes int64, title string, tags []string) (*Document, error) {
	normalized, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:          uuid.New(),
		Name:        name,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		UploadedAt:  time.Now().UTC(),
		Title:       title,
		Tags:        normalized,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
// Returns an error if any field fails validation.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}

	if isBlank(d.Name) {
		return ErrEmptyName
	}
	if len(d.Name) > NameMaxLength {
		return ErrNameTooLong
	}

	if isBlank(d.ContentType) {
		return ErrEmptyContentType
	}

	if d.SizeBytes == 0 {
		return ErrEmptyDocument
	}
	if d.SizeBytes < 0 {
		return ErrInvalidSize
	}
	if d.SizeBytes > SizeBytesMax {
		return ErrDocumentTooLarge
	}

	if len(d.Title) > TitleMaxLength {
		return ErrTitleTooLong
	}

	for _, tag := range d.Tags {
		if err := validateTag(tag); err != nil {
			return err
		}
	}

	return nil
}

// SetSummary records the summary produced by the pipeline.
func (d *Document) SetSummary(summary string) {
	d.Summary = summary
}
