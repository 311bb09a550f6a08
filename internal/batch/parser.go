// Package batch ingests access-statistics XML files dropped by
// external systems, aggregates them into daily per-document counts and
// persists the aggregates idempotently.
package batch

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/docpipe/internal/domain"
)

// statisticsFile mirrors the XML drop format:
//
//	<accessStatistics>
//	  <event documentId="..." type="download" at="2026-01-10T14:03:22Z"/>
//	</accessStatistics>
type statisticsFile struct {
	XMLName xml.Name   `xml:"accessStatistics"`
	Events  []rawEvent `xml:"event"`
}

type rawEvent struct {
	DocumentID string `xml:"documentId,attr"`
	Type       string `xml:"type,attr"`
	At         string `xml:"at,attr"`
}

// aggregateKey identifies one daily aggregate bucket.
type aggregateKey struct {
	DocumentID uuid.UUID
	Date       time.Time
	Type       domain.AccessType
}

// ParseStatistics parses a whole statistics file and aggregates its
// events into daily per-document counts. Parsing is strict: one
// malformed event fails the whole file, so a file is either ingested
// completely or not at all.
func ParseStatistics(r io.Reader) ([]domain.DailyAccess, error) {
	var file statisticsFile
	if err := xml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("malformed statistics XML: %w", err)
	}

	counts := make(map[aggregateKey]int)
	for i, ev := range file.Events {
		id, err := uuid.Parse(ev.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("event %d: invalid document id %q: %w", i+1, ev.DocumentID, err)
		}
		accessType, err := domain.ParseAccessType(ev.Type)
		if err != nil {
			return nil, fmt.Errorf("event %d: invalid access type %q: %w", i+1, ev.Type, err)
		}
		at, err := time.Parse(time.RFC3339, ev.At)
		if err != nil {
			return nil, fmt.Errorf("event %d: invalid timestamp %q: %w", i+1, ev.At, err)
		}

		key := aggregateKey{
			DocumentID: id,
			Date:       domain.DayUTC(at),
			Type:       accessType,
		}
		counts[key]++
	}

	aggregates := make([]domain.DailyAccess, 0, len(counts))
	for key, count := range counts {
		aggregates = append(aggregates, domain.DailyAccess{
			DocumentID: key.DocumentID,
			Date:       key.Date,
			Type:       key.Type,
			Count:      count,
		})
	}

	// Deterministic order keeps ingestion logs and tests stable.
	sort.Slice(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID.String() < b.DocumentID.String()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Type < b.Type
	})

	return aggregates, nil
}
