package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTag("  Invoice ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "invoice" {
		t.Errorf("Expected invoice, got %s", got)
	}

	if _, err := NormalizeTag("   "); !errors.Is(err, ErrEmptyTag) {
		t.Errorf("Expected ErrEmptyTag, got %v", err)
	}
	if _, err := NormalizeTag("x"); !errors.Is(err, ErrTagTooShort) {
		t.Errorf("Expected ErrTagTooShort, got %v", err)
	}
}

func TestNormalizeTagsDeduplicates(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTags([]string{"Invoice", " invoice ", "Important"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"invoice", "important"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeTagsEmpty(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTags(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty slice, got %v", got)
	}
}

func TestNormalizeTagsFailsWhole(t *testing.T) {
	t.Parallel()

	if _, err := NormalizeTags([]string{"valid", "x"}); !errors.Is(err, ErrTagTooShort) {
		t.Errorf("Expected ErrTagTooShort, got %v", err)
	}
}
