package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccessType classifies an access-log event.
type AccessType string

// Possible access types recorded by the batch aggregator.
const (
	AccessUpload   AccessType = "upload"
	AccessUpdate   AccessType = "update"
	AccessDownload AccessType = "download"
)

// ParseAccessType parses a raw access type string (case-insensitive,
// surrounding whitespace ignored). Returns ErrInvalidAccessType for
// anything other than upload, update or download.
func ParseAccessType(raw string) (AccessType, error) {
	switch AccessType(strings.ToLower(strings.TrimSpace(raw))) {
	case AccessUpload:
		return AccessUpload, nil
	case AccessUpdate:
		return AccessUpdate, nil
	case AccessDownload:
		return AccessDownload, nil
	default:
		return "", ErrInvalidAccessType
	}
}

// DailyAccess is an aggregate of access events for one document on one
// UTC calendar day. Count is absolute: it is the total for that day as
// of the last successful ingestion, never an increment.
type DailyAccess struct {
	DocumentID uuid.UUID
	Date       time.Time // UTC midnight
	Type       AccessType
	Count      int
}

// DayUTC truncates a timestamp to its UTC calendar date (midnight UTC).
func DayUTC(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
