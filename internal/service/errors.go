package service

import "errors"

// Service-level errors shared across the document services.
var (
	// ErrCompensationFailed indicates that an upload failed AND the
	// compensating record delete failed too, leaving an orphaned
	// document record without a blob. The joined error carries both
	// causes; the orphan needs operator attention.
	ErrCompensationFailed = errors.New("upload compensation failed, orphaned document record")
)
