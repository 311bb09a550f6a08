package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// PostgresDocumentStore implements the store.DocumentStore interface
// using a PostgreSQL database as the storage backend. Mutations that
// shrink a document's tag set run the tag garbage collection inside
// the same transaction as the mutation.
type PostgresDocumentStore struct {
	db *sql.DB
}

// NewPostgresDocumentStore creates a new PostgreSQL implementation of
// the DocumentStore interface. It accepts a database connection that
// should be initialized and managed by the caller.
func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	if db == nil {
		panic("db must not be nil")
	}
	return &PostgresDocumentStore{db: db}
}

// Ensure PostgresDocumentStore implements store.DocumentStore
var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// Create implements store.DocumentStore.Create
func (s *PostgresDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	log := logger.FromContext(ctx)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			INSERT INTO documents (id, name, content_type, size_bytes, uploaded_at, title, summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			doc.ID,
			doc.Name,
			doc.ContentType,
			doc.SizeBytes,
			doc.UploadedAt,
			doc.Title,
			doc.Summary,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return fmt.Errorf("%w: %v", store.ErrDocumentExists, err)
			}
			return MapError(err)
		}

		return associateTags(ctx, tx, doc.ID, doc.Tags)
	})
	if err != nil {
		log.Error("failed to create document",
			"document_id", doc.ID,
			"error", err)
		return err
	}

	log.Debug("created document",
		"document_id", doc.ID,
		"tag_count", len(doc.Tags))
	return nil
}

// GetByID implements store.DocumentStore.GetByID
func (s *PostgresDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := getDocument(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	tags, err := getTagNames(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	doc.Tags = tags
	return doc, nil
}

// Exists implements store.DocumentStore.Exists
func (s *PostgresDocumentStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// Update implements store.DocumentStore.Update. The tag garbage
// collection for tags dropped by the update runs in the same
// transaction as the update itself.
func (s *PostgresDocumentStore) Update(
	ctx context.Context,
	id uuid.UUID,
	update store.DocumentUpdate,
) (*domain.Document, error) {
	log := logger.FromContext(ctx)

	var updated *domain.Document
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		doc, err := getDocumentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldTags, err := getTagNames(ctx, tx, id)
		if err != nil {
			return err
		}
		doc.Tags = oldTags

		if update.Name != nil {
			doc.Name = *update.Name
		}
		if update.Title != nil {
			doc.Title = *update.Title
		}

		query := `
			UPDATE documents
			SET name = $1, title = $2
			WHERE id = $3
		`
		if _, err := tx.ExecContext(ctx, query, doc.Name, doc.Title, id); err != nil {
			return MapError(err)
		}

		if update.Tags != nil {
			newTags := *update.Tags
			removed := difference(oldTags, newTags)

			if err := clearTagAssociations(ctx, tx, id); err != nil {
				return err
			}
			if err := associateTags(ctx, tx, id, newTags); err != nil {
				return err
			}
			if err := collectOrphanTags(ctx, tx, removed); err != nil {
				return err
			}
			doc.Tags = newTags
		}

		updated = doc
		return nil
	})
	if err != nil {
		log.Error("failed to update document",
			"document_id", id,
			"error", err)
		return nil, err
	}

	return updated, nil
}

// Delete implements store.DocumentStore.Delete. All tags of the
// deleted document become garbage collection candidates; those no
// longer referenced by any other document are removed before the
// transaction commits.
func (s *PostgresDocumentStore) Delete(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	log := logger.FromContext(ctx)

	var deleted *domain.Document
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		doc, err := getDocumentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		tags, err := getTagNames(ctx, tx, id)
		if err != nil {
			return err
		}
		doc.Tags = tags

		if err := clearTagAssociations(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
			return MapError(err)
		}
		if err := collectOrphanTags(ctx, tx, tags); err != nil {
			return err
		}

		deleted = doc
		return nil
	})
	if err != nil {
		log.Error("failed to delete document",
			"document_id", id,
			"error", err)
		return nil, err
	}

	log.Debug("deleted document", "document_id", id)
	return deleted, nil
}

// SetSummary implements store.DocumentStore.SetSummary
func (s *PostgresDocumentStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET summary = $1 WHERE id = $2`,
		summary, id)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrDocumentNotFound
	}
	return nil
}

// GetTags implements store.DocumentStore.GetTags
func (s *PostgresDocumentStore) GetTags(ctx context.Context, id uuid.UUID) ([]string, error) {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrDocumentNotFound
	}
	return getTagNames(ctx, s.db, id)
}

// getDocument loads the document row without its tags.
func getDocument(ctx context.Context, q store.DBTX, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, name, content_type, size_bytes, uploaded_at, title, summary
		FROM documents
		WHERE id = $1
	`
	return scanDocument(q.QueryRowContext(ctx, query, id))
}

// getDocumentForUpdate loads the document row with a row lock held for
// the rest of the transaction.
func getDocumentForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, name, content_type, size_bytes, uploaded_at, title, summary
		FROM documents
		WHERE id = $1
		FOR UPDATE
	`
	return scanDocument(tx.QueryRowContext(ctx, query, id))
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.UploadedAt,
		&doc.Title,
		&doc.Summary,
	)
	if err != nil {
		if mapped := MapError(err); store.IsNotFoundError(mapped) {
			return nil, store.ErrDocumentNotFound
		}
		return nil, MapError(err)
	}
	return &doc, nil
}

func getTagNames(ctx context.Context, q store.DBTX, id uuid.UUID) ([]string, error) {
	query := `
		SELECT tag_name
		FROM document_tags
		WHERE document_id = $1
		ORDER BY tag_name
	`
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, MapError(err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tags, nil
}

// associateTags upserts the tag rows and links them to the document.
func associateTags(ctx context.Context, tx *sql.Tx, id uuid.UUID, tags []string) error {
	for _, name := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			name)
		if err != nil {
			return MapError(err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO document_tags (document_id, tag_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, name)
		if err != nil {
			return MapError(err)
		}
	}
	return nil
}

func clearTagAssociations(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_tags WHERE document_id = $1`, id); err != nil {
		return MapError(err)
	}
	return nil
}

// collectOrphanTags deletes each candidate tag that no remaining
// document references. Only the given candidates are examined; tags
// untouched by the current mutation are never scanned.
func collectOrphanTags(ctx context.Context, tx *sql.Tx, candidates []string) error {
	log := logger.FromContext(ctx)

	query := `
		DELETE FROM tags
		WHERE name = $1
		  AND NOT EXISTS (SELECT 1 FROM document_tags WHERE tag_name = $1)
	`
	for _, name := range candidates {
		result, err := tx.ExecContext(ctx, query, name)
		if err != nil {
			return MapError(err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			log.Debug("garbage collected tag", slog.String("tag", name))
		}
	}
	return nil
}

// difference returns the elements of a that are not in b.
func difference(a, b []string) []string {
	keep := make(map[string]struct{}, len(b))
	for _, s := range b {
		keep[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := keep[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
