package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewDocument(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument("report.pdf", "application/pdf", 2048, "Quarterly Report", []string{"Finance", " finance ", "q3"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if doc.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if doc.Name != "report.pdf" {
		t.Errorf("Expected name report.pdf, got %s", doc.Name)
	}
	if doc.UploadedAt.IsZero() {
		t.Error("Expected non-zero UploadedAt time")
	}
	if doc.UploadedAt.Location() != doc.UploadedAt.UTC().Location() {
		t.Error("Expected UploadedAt in UTC")
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "finance" || doc.Tags[1] != "q3" {
		t.Errorf("Expected normalized deduplicated tags [finance q3], got %v", doc.Tags)
	}
	if doc.Summary != "" {
		t.Errorf("Expected empty summary on a new document, got %q", doc.Summary)
	}
}

func TestNewDocumentValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		docName     string
		contentType string
		sizeBytes   int64
		title       string
		tags        []string
		wantErr     error
	}{
		{"empty name", "", "application/pdf", 10, "", nil, ErrEmptyName},
		{"blank name", "   ", "application/pdf", 10, "", nil, ErrEmptyName},
		{"name too long", strings.Repeat("a", NameMaxLength+1), "application/pdf", 10, "", nil, ErrNameTooLong},
		{"empty content type", "doc.pdf", "", 10, "", nil, ErrEmptyContentType},
		{"zero size", "doc.pdf", "application/pdf", 0, "", nil, ErrEmptyDocument},
		{"negative size", "doc.pdf", "application/pdf", -1, "", nil, ErrInvalidSize},
		{"too large", "doc.pdf", "application/pdf", SizeBytesMax + 1, "", nil, ErrDocumentTooLarge},
		{"title too long", "doc.pdf", "application/pdf", 10, strings.Repeat("t", TitleMaxLength+1), nil, ErrTitleTooLong},
		{"tag too short", "doc.pdf", "application/pdf", 10, "", []string{"a"}, ErrTagTooShort},
		{"tag too long", "doc.pdf", "application/pdf", 10, "", []string{strings.Repeat("x", TagMaxLength+1)}, ErrTagTooLong},
		{"empty tag", "doc.pdf", "application/pdf", 10, "", []string{"  "}, ErrEmptyTag},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDocument(tc.docName, tc.contentType, tc.sizeBytes, tc.title, tc.tags)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected error to wrap ErrValidation, got %v", err)
			}
		})
	}

	// Boundary values are accepted.
	if _, err := NewDocument(strings.Repeat("n", NameMaxLength), "text/plain", SizeBytesMax, strings.Repeat("t", TitleMaxLength), []string{"ab", strings.Repeat("z", TagMaxLength)}); err != nil {
		t.Errorf("Expected boundary values to pass validation, got %v", err)
	}
}

func TestSetSummary(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument("notes.txt", "text/plain", 64, "", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	doc.SetSummary("short summary")
	if doc.Summary != "short summary" {
		t.Errorf("Expected summary to be set, got %q", doc.Summary)
	}
}
