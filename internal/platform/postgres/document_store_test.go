package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/store"
)

func newMockStore(t *testing.T) (*PostgresDocumentStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresDocumentStore(db), mock
}

func documentRow(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "content_type", "size_bytes", "uploaded_at", "title", "summary"}).
		AddRow(id, "doc.pdf", "application/pdf", int64(1024), time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), "Title", "")
}

func tagRows(tags ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"tag_name"})
	for _, tag := range tags {
		rows.AddRow(tag)
	}
	return rows
}

func TestGetByID(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("FROM documents").WithArgs(id).WillReturnRows(documentRow(id))
	mock.ExpectQuery("FROM document_tags").WithArgs(id).WillReturnRows(tagRows("invoice", "legal"))

	doc, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, []string{"invoice", "legal"}, doc.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	// An empty result set maps to the document-specific not-found error.
	mock.ExpectQuery("FROM documents").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "content_type", "size_bytes", "uploaded_at", "title", "summary"}))

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSummary(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE documents SET summary").
		WithArgs("a summary", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.SetSummary(context.Background(), id, "a summary"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSummaryNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE documents SET summary").
		WithArgs("a summary", id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetSummary(context.Background(), id, "a summary")
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsDocumentAndTags(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	doc, err := domain.NewDocument("doc.pdf", "application/pdf", 1024, "Title", []string{"invoice"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.Name, doc.ContentType, doc.SizeBytes, doc.UploadedAt, doc.Title, doc.Summary).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tags").
		WithArgs("invoice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_tags").
		WithArgs(doc.ID, "invoice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Create(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRunsTagGCInSameTransaction(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnRows(documentRow(id))
	mock.ExpectQuery("FROM document_tags").WithArgs(id).WillReturnRows(tagRows("invoice", "legal"))
	mock.ExpectExec("DELETE FROM document_tags").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM documents").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Both former tags are GC candidates; "invoice" is still referenced
	// by another document, "legal" is not.
	mock.ExpectExec("DELETE FROM tags").
		WithArgs("invoice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM tags").
		WithArgs("legal").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := s.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice", "legal"}, doc.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCollectsOnlyRemovedTags(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	newTags := []string{"invoice", "archive"}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnRows(documentRow(id))
	mock.ExpectQuery("FROM document_tags").WithArgs(id).WillReturnRows(tagRows("invoice", "legal"))
	mock.ExpectExec("UPDATE documents").
		WithArgs("renamed.pdf", "Title", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM document_tags").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO tags").
		WithArgs("invoice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO document_tags").
		WithArgs(id, "invoice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tags").
		WithArgs("archive").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_tags").
		WithArgs(id, "archive").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Only "legal" was removed, so only "legal" is a GC candidate.
	mock.ExpectExec("DELETE FROM tags").
		WithArgs("legal").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name := "renamed.pdf"
	doc, err := s.Update(context.Background(), id, store.DocumentUpdate{Name: &name, Tags: &newTags})
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", doc.Name)
	assert.Equal(t, newTags, doc.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotFoundRollsBack(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "content_type", "size_bytes", "uploaded_at", "title", "summary"}))
	mock.ExpectRollback()

	name := "x.pdf"
	_, err := s.Update(context.Background(), id, store.DocumentUpdate{Name: &name})
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
