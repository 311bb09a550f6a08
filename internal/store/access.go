package store

import (
	"context"

	"github.com/phrazzld/docpipe/internal/domain"
)

// AccessStore persists daily access aggregates produced by the batch
// ingestion job.
type AccessStore interface {
	// UpsertAbsolute inserts the aggregate or, if a row already exists
	// for (document, date, type), overwrites its count with the given
	// value. It never accumulates: re-ingesting the same file twice
	// leaves the stored counts unchanged.
	UpsertAbsolute(ctx context.Context, a domain.DailyAccess) error
}
