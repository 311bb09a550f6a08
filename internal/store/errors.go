package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or when it references an entity that does not exist.
	// Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction
	// cannot be started or committed. Errors from the function running
	// inside the transaction are returned as-is.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDocumentNotFound indicates that the requested document does not
	// exist in the store.
	ErrDocumentNotFound = fmt.Errorf("%w: document", ErrNotFound)

	// ErrDocumentExists indicates that a document with the given ID
	// already exists.
	ErrDocumentExists = fmt.Errorf("%w: document", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error,
// including the entity-specific variants.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
