package model

import (
	"context"
	"time"
)

// RawListing is one job card as scraped from the search results page.
type RawListing struct {
	URL        string // detail page link
	Title      string // job title
	Company    string // company name
	Location   string // location string
	PostedDate string // ISO YYYY-MM-DD, as delivered by the source
}

// RequirementSet holds the user's acceptance criteria. Nil/empty fields mean
// "no constraint".
type RequirementSet struct {
	RecencyDays         *int
	Locations           []string
	Companies           []string
	DegreeRequired      *bool
	SimilarityThreshold float64
}

// Degree levels reported by the generation-backed extractor.
const (
	DegreeNone = iota
	DegreeAssociate
	DegreeBachelor
	DegreeMaster
	DegreeDoctorate
)

// ExtractedAttributes is the structured shape produced by the LLM extractor.
// Every field is optional; a nil field means the model did not provide a
// usable value.
type ExtractedAttributes struct {
	Field        *string
	DegreeLevel  *int
	StartDate    *time.Time
	Duration     *string
	Requirements []string
}

// Sections maps a recovered heading to the list items that follow it.
type Sections map[string][]string

// Extraction holds the output of exactly one extraction strategy. The two
// shapes are never merged: at most one of Attributes and Sections is set.
type Extraction struct {
	Attributes *ExtractedAttributes
	Sections   Sections
}

// IsEmpty reports whether neither strategy contributed anything.
func (e Extraction) IsEmpty() bool {
	return e.Attributes == nil && len(e.Sections) == 0
}

// ExtractionMode selects which extractor, if any, enriches accepted listings.
type ExtractionMode string

const (
	ModeNone     ExtractionMode = "none"
	ModeSections ExtractionMode = "sections"
	ModeLLM      ExtractionMode = "llm"
)

// Valid reports whether m is one of the known modes.
func (m ExtractionMode) Valid() bool {
	switch m {
	case ModeNone, ModeSections, ModeLLM:
		return true
	}
	return false
}

// JobRecord is a listing that passed filtering, enriched with whatever the
// configured extractor produced. Written once, never mutated.
type JobRecord struct {
	RawListing
	Extraction
}

// ListingSource produces the listings visible for one search session, in
// presentation order.
type ListingSource interface {
	Listings(ctx context.Context) ([]RawListing, error)
}

// DescriptionFetcher retrieves the unstructured description of a listing.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, url string) (string, error)
}

// DescriptionExtractor turns a description into structured attributes.
type DescriptionExtractor interface {
	Extract(ctx context.Context, description string) (Extraction, error)
}

// RecordSink is an append-only destination for finished records.
type RecordSink interface {
	Append(ctx context.Context, rec JobRecord) error
	Close() error
}

// SeenStore tracks which listing URLs have already been recorded.
type SeenStore interface {
	HasSeen(url string) (bool, error)
	MarkSeen(url string) error
	Cleanup(olderThan time.Duration) error
}

// Notifier sends notifications for newly accepted records.
type Notifier interface {
	Notify(records []JobRecord) error
}
