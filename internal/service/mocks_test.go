package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/phrazzld/docpipe/internal/blob"
	"github.com/phrazzld/docpipe/internal/domain"
	"github.com/phrazzld/docpipe/internal/store"
)

// fakeDocumentStore is an in-memory store.DocumentStore with
// injectable failures and call counters.
type fakeDocumentStore struct {
	docs map[uuid.UUID]*domain.Document

	createErr     error
	updateErr     error
	deleteErr     error
	setSummaryErr error

	deleteCalls int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[uuid.UUID]*domain.Document)}
}

func (f *fakeDocumentStore) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.docs[doc.ID]; ok {
		return store.ErrDocumentExists
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.docs[id]
	return ok, nil
}

func (f *fakeDocumentStore) Update(_ context.Context, id uuid.UUID, update store.DocumentUpdate) (*domain.Document, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	if update.Name != nil {
		doc.Name = *update.Name
	}
	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.Tags != nil {
		doc.Tags = *update.Tags
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	delete(f.docs, id)
	return doc, nil
}

func (f *fakeDocumentStore) SetSummary(_ context.Context, id uuid.UUID, summary string) error {
	if f.setSummaryErr != nil {
		return f.setSummaryErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return store.ErrDocumentNotFound
	}
	doc.Summary = summary
	return nil
}

func (f *fakeDocumentStore) GetTags(_ context.Context, id uuid.UUID) ([]string, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return doc.Tags, nil
}

var _ store.DocumentStore = (*fakeDocumentStore)(nil)

// fakeBlobGateway is an in-memory blob.Gateway with injectable
// failures.
type fakeBlobGateway struct {
	objects map[string][]byte

	putErr    error
	deleteErr error
}

func newFakeBlobGateway() *fakeBlobGateway {
	return &fakeBlobGateway{objects: make(map[string][]byte)}
}

func (f *fakeBlobGateway) PutBlob(_ context.Context, _, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobGateway) GetBlob(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobGateway) DeleteBlob(_ context.Context, _, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobGateway) ExistsBlob(_ context.Context, _, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

var _ blob.Gateway = (*fakeBlobGateway)(nil)

// fakePublisher records publishes per queue.
type fakePublisher struct {
	published map[string][][]byte
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][][]byte)}
}

func (p *fakePublisher) Publish(_ context.Context, queue string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published[queue] = append(p.published[queue], body)
	return nil
}

func (p *fakePublisher) PublishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, queue, body)
}
