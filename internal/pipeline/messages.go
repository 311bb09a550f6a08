// Package pipeline defines the immutable message payloads exchanged
// between the processing stages. Every message carries the document ID
// as its correlation identity; a message is owned by whichever queue
// currently holds it and is never mutated in flight.
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionJob starts the pipeline for a freshly uploaded document.
// Published by the upload orchestrator, consumed by the extraction stage.
type ExtractionJob struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Tags        []string  `json:"tags"`
}

// ExtractionResult is an ExtractionJob plus the extracted text.
// Published by the extraction stage, fanned out to the summarization
// and indexing stages. The fan-out republishes the serialized bytes
// verbatim so both branches see identical input.
type ExtractionResult struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Text        string    `json:"text"`
	Tags        []string  `json:"tags"`
}

// SummaryMessage carries a generated document summary back for
// persistence. Its consumer only updates existing documents; an
// unknown ID is skipped, never created.
type SummaryMessage struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Summary string    `json:"summary"`
}

// IndexPartialUpdate merges metadata changes into an indexed document
// without touching its indexed full text.
type IndexPartialUpdate struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Title string    `json:"title,omitempty"`
	Tags  []string  `json:"tags"`
}

// IndexDelete removes a document from the search index.
type IndexDelete struct {
	ID uuid.UUID `json:"id"`
}
