// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// Specific validation errors below wrap it so callers can match the
	// whole class with errors.Is(err, ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrEmptyName is returned when a document name is missing or blank.
	ErrEmptyName = fmt.Errorf("%w: document name required", ErrValidation)

	// ErrNameTooLong is returned when a document name exceeds NameMaxLength.
	ErrNameTooLong = fmt.Errorf("%w: document name exceeds %d characters", ErrValidation, NameMaxLength)

	// ErrEmptyContentType is returned when a document has no content type.
	ErrEmptyContentType = fmt.Errorf("%w: content type required", ErrValidation)

	// ErrEmptyDocument is returned when a document has zero size.
	ErrEmptyDocument = fmt.Errorf("%w: document is empty", ErrValidation)

	// ErrInvalidSize is returned when a document size is negative.
	ErrInvalidSize = fmt.Errorf("%w: document size invalid", ErrValidation)

	// ErrDocumentTooLarge is returned when a document exceeds SizeBytesMax.
	ErrDocumentTooLarge = fmt.Errorf("%w: document exceeds %d bytes", ErrValidation, SizeBytesMax)

	// ErrTitleTooLong is returned when a title exceeds TitleMaxLength.
	ErrTitleTooLong = fmt.Errorf("%w: title exceeds %d characters", ErrValidation, TitleMaxLength)

	// ErrEmptyTag is returned when a tag name is missing or blank.
	ErrEmptyTag = fmt.Errorf("%w: tag name required", ErrValidation)

	// ErrTagTooShort is returned when a tag is shorter than TagMinLength.
	ErrTagTooShort = fmt.Errorf("%w: tag shorter than %d characters", ErrValidation, TagMinLength)

	// ErrTagTooLong is returned when a tag exceeds TagMaxLength.
	ErrTagTooLong = fmt.Errorf("%w: tag exceeds %d characters", ErrValidation, TagMaxLength)

	// ErrEmptyDocumentID is returned when a document ID is the zero UUID.
	ErrEmptyDocumentID = fmt.Errorf("%w: document ID cannot be empty", ErrValidation)

	// ErrInvalidAccessType is returned when an access type is not one of
	// upload, update, download.
	ErrInvalidAccessType = fmt.Errorf("%w: invalid access type", ErrValidation)
)
