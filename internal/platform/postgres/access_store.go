package postgres

import (
	"context"

	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/platform/logger"
	"github.com/phrazzld/docpipe/internal/store"
)

// PostgresAccessStore implements the store.AccessStore interface using
// a PostgreSQL database as the storage backend.
type PostgresAccessStore struct {
	db store.DBTX
}

// NewPostgresAccessStore creates a new PostgreSQL implementation of
// the AccessStore interface.
func NewPostgresAccessStore(db store.DBTX) *PostgresAccessStore {
	if db == nil {
		panic("db must not be nil")
	}
	return &PostgresAccessStore{db: db}
}

// Ensure PostgresAccessStore implements store.AccessStore
var _ store.AccessStore = (*PostgresAccessStore)(nil)

// UpsertAbsolute implements store.AccessStore.UpsertAbsolute. The
// stored count is overwritten, not accumulated, so re-ingesting the
// same statistics file leaves the table unchanged.
func (s *PostgresAccessStore) UpsertAbsolute(ctx context.Context, a domain.DailyAccess) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO document_daily_access (document_id, access_date, access_type, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, access_date, access_type)
		DO UPDATE SET count = EXCLUDED.count
	`
	_, err := s.db.ExecContext(ctx, query,
		a.DocumentID,
		a.Date,
		string(a.Type),
		a.Count,
	)
	if err != nil {
		log.Error("failed to upsert daily access aggregate",
			"document_id", a.DocumentID,
			"access_date", a.Date,
			"access_type", a.Type,
			"error", err)
		return MapError(err)
	}
	return nil
}
