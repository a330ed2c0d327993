package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

func intPtr(n int) *int { return &n }

func listing(company, location, posted string) model.RawListing {
	return model.RawListing{
		URL:        "https://example.com/jobs/1",
		Title:      "Software Engineer Intern",
		Company:    company,
		Location:   location,
		PostedDate: posted,
	}
}

var now = time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		req        model.RequirementSet
		listing    model.RawListing
		wantAccept bool
		wantReason model.RejectReason
	}{
		{
			name:       "no constraints accepts everything",
			req:        model.RequirementSet{SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Anywhere", "not-a-date"),
			wantAccept: true,
		},
		{
			name:       "posted nine days ago is stale",
			req:        model.RequirementSet{RecencyDays: intPtr(7), SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Remote", "2024-06-01"),
			wantReason: model.ReasonStale,
		},
		{
			name:       "posted five days ago is fresh",
			req:        model.RequirementSet{RecencyDays: intPtr(7), SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Remote", "2024-06-05"),
			wantAccept: true,
		},
		{
			name:       "exactly at the recency boundary is fresh",
			req:        model.RequirementSet{RecencyDays: intPtr(7), SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Remote", "2024-06-03"),
			wantAccept: true,
		},
		{
			name:       "spelled-out state misses abbreviation",
			req:        model.RequirementSet{Locations: []string{"Seattle, WA"}, SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Seattle, Washington", "2024-06-05"),
			wantReason: model.ReasonLocationMismatch,
		},
		{
			name:       "exact location matches",
			req:        model.RequirementSet{Locations: []string{"Seattle, WA"}, SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Seattle, WA", "2024-06-05"),
			wantAccept: true,
		},
		{
			name:       "company mismatch",
			req:        model.RequirementSet{Companies: []string{"Microsoft", "Amazon"}, SimilarityThreshold: 0.8},
			listing:    listing("Acme", "Seattle, WA", "2024-06-05"),
			wantReason: model.ReasonCompanyMismatch,
		},
		{
			name:       "fuzzy company match",
			req:        model.RequirementSet{Companies: []string{"Amazon"}, SimilarityThreshold: 0.8},
			listing:    listing("Amazon.", "Seattle, WA", "2024-06-05"),
			wantAccept: true,
		},
		{
			name: "stale reported before location",
			req: model.RequirementSet{
				RecencyDays:         intPtr(1),
				Locations:           []string{"Boston, MA"},
				SimilarityThreshold: 0.8,
			},
			listing:    listing("Acme", "Seattle, WA", "2024-06-01"),
			wantReason: model.ReasonStale,
		},
		{
			name: "location reported before company",
			req: model.RequirementSet{
				Locations:           []string{"Boston, MA"},
				Companies:           []string{"Microsoft"},
				SimilarityThreshold: 0.8,
			},
			listing:    listing("Acme", "Seattle, WA", "2024-06-05"),
			wantReason: model.ReasonLocationMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.listing, tt.req, now)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Accepted != tt.wantAccept {
				t.Errorf("Accepted = %v, want %v", got.Accepted, tt.wantAccept)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_MalformedDateIsError(t *testing.T) {
	req := model.RequirementSet{RecencyDays: intPtr(7), SimilarityThreshold: 0.8}

	_, err := Evaluate(listing("Acme", "Remote", "06/01/2024"), req, now)
	if !errors.Is(err, model.ErrMalformedDate) {
		t.Fatalf("err = %v, want ErrMalformedDate", err)
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	req := model.RequirementSet{
		RecencyDays:         intPtr(7),
		Locations:           []string{"Seattle, WA"},
		SimilarityThreshold: 0.8,
	}
	l := listing("Acme", "Seattle, Washington", "2024-06-05")

	first, err := Evaluate(l, req, now)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := NewRequirementFilter(req).Evaluate(l, now)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}
