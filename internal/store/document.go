package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/docpipe/internal/domain"
)

// DocumentUpdate describes a partial mutation of a document. Nil
// fields are left unchanged. Tags, when set, replaces the whole tag
// association set (an empty slice clears all tags).
type DocumentUpdate struct {
	Name  *string
	Title *string
	Tags  *[]string
}

// DocumentStore defines the persistence operations for documents and
// their tag associations. Mutations that shrink a document's tag set
// (Update, Delete) run the tag reference-count GC within the same
// transaction: tags no longer referenced by any other document are
// deleted before the transaction commits.
type DocumentStore interface {
	// Create saves a new document together with its tag associations,
	// inserting tag rows that do not exist yet.
	// Returns ErrDocumentExists if the ID is already taken.
	Create(ctx context.Context, doc *domain.Document) error

	// GetByID retrieves a document with its tags.
	// Returns ErrDocumentNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// Exists reports whether a document with the given ID exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Update applies the partial update and returns the updated
	// document. Returns ErrDocumentNotFound if it does not exist.
	Update(ctx context.Context, id uuid.UUID, update DocumentUpdate) (*domain.Document, error)

	// Delete removes the document and its tag associations, returning
	// the document as it was before deletion.
	// Returns ErrDocumentNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// SetSummary stores the pipeline-produced summary on an existing
	// document. Returns ErrDocumentNotFound if it does not exist; it
	// never creates a document.
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error

	// GetTags returns the normalized tag names currently associated
	// with the document. Returns ErrDocumentNotFound if it does not exist.
	GetTags(ctx context.Context, id uuid.UUID) ([]string, error)
}
