package filter

import (
	"fmt"
	"time"

	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/similarity"
)

// RequirementFilter evaluates raw listings against a fixed requirement set.
// Matching is fuzzy: locations and companies pass when their similarity ratio
// to any target reaches the set's threshold. Empty target lists pass all.
type RequirementFilter struct {
	req model.RequirementSet
}

// NewRequirementFilter returns a filter bound to req for the whole run.
func NewRequirementFilter(req model.RequirementSet) *RequirementFilter {
	return &RequirementFilter{req: req}
}

// Evaluate applies the recency, location and company rules in that order;
// the first failing rule names the reject reason.
func (f *RequirementFilter) Evaluate(listing model.RawListing, now time.Time) (model.FilterDecision, error) {
	return Evaluate(listing, f.req, now)
}

// Evaluate is the pure form of RequirementFilter.Evaluate. The degree
// requirement is not checked here: it depends on the description and is
// applied after extraction.
func Evaluate(listing model.RawListing, req model.RequirementSet, now time.Time) (model.FilterDecision, error) {
	if req.RecencyDays != nil {
		posted, err := time.Parse(model.DateLayout, listing.PostedDate)
		if err != nil {
			return model.FilterDecision{}, fmt.Errorf("listing %s: %w: %q", listing.URL, model.ErrMalformedDate, listing.PostedDate)
		}
		if daysBetween(posted, now) > *req.RecencyDays {
			return model.Reject(model.ReasonStale), nil
		}
	}

	if !similarity.MatchesAny(listing.Location, req.Locations, req.SimilarityThreshold) {
		return model.Reject(model.ReasonLocationMismatch), nil
	}

	if !similarity.MatchesAny(listing.Company, req.Companies, req.SimilarityThreshold) {
		return model.Reject(model.ReasonCompanyMismatch), nil
	}

	return model.Accept(), nil
}

// daysBetween counts whole calendar days from posted to now, ignoring the
// time of day on now.
func daysBetween(posted, now time.Time) int {
	from := time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
