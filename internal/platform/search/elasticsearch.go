// Package search implements the index.Repository interface on top of
// Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/phrazzld/docpipe/internal/config"
	"github.com/phrazzld/docpipe/internal/pipeline/index"
)

// ElasticsearchRepository maintains document records in an
// Elasticsearch index.
type ElasticsearchRepository struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// NewElasticsearchRepository creates a repository writing to the index
// named in cfg.
func NewElasticsearchRepository(cfg config.SearchConfig, log *slog.Logger) (*ElasticsearchRepository, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	return &ElasticsearchRepository{
		client:    client,
		indexName: cfg.IndexName,
		logger:    log.With(slog.String("component", "search_repository")),
	}, nil
}

// Ensure ElasticsearchRepository implements index.Repository
var _ index.Repository = (*ElasticsearchRepository)(nil)

// Upsert implements index.Repository.Upsert. The document is stored
// whole under its ID, replacing any previous version.
func (r *ElasticsearchRepository) Upsert(ctx context.Context, doc index.IndexDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal index document: %w", err)
	}

	res, err := r.client.Index(
		r.indexName,
		bytes.NewReader(body),
		r.client.Index.WithDocumentID(doc.ID.String()),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer closeResponse(res)

	if res.IsError() {
		return fmt.Errorf("index request for %s returned %s", doc.ID, res.Status())
	}
	return nil
}

// PartialUpdate implements index.Repository.PartialUpdate. Only the
// given metadata fields are merged; the indexed text is untouched.
func (r *ElasticsearchRepository) PartialUpdate(
	ctx context.Context,
	id uuid.UUID,
	partial index.PartialDocument,
) error {
	body, err := json.Marshal(map[string]any{"doc": partial})
	if err != nil {
		return fmt.Errorf("failed to marshal partial update: %w", err)
	}

	res, err := r.client.Update(
		r.indexName,
		id.String(),
		bytes.NewReader(body),
		r.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update request failed: %w", err)
	}
	defer closeResponse(res)

	if res.IsError() {
		return fmt.Errorf("update request for %s returned %s", id, res.Status())
	}
	return nil
}

// Delete implements index.Repository.Delete. A 404 means the document
// was never indexed, which counts as success.
func (r *ElasticsearchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.client.Delete(
		r.indexName,
		id.String(),
		r.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer closeResponse(res)

	if res.StatusCode == http.StatusNotFound {
		r.logger.Debug("document not in index, delete is a no-op",
			slog.String("document_id", id.String()))
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("delete request for %s returned %s", id, res.Status())
	}
	return nil
}

func closeResponse(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
