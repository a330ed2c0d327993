package retry

import (
	"context"

	"github.com/vpr16/jobminer/internal/model"
)

// DescriptionFetcher is a decorator that retries transient description fetch
// failures before giving up.
type DescriptionFetcher struct {
	inner   model.DescriptionFetcher
	retrier *Retrier
}

// NewDescriptionFetcher wraps inner with retry logic.
func NewDescriptionFetcher(inner model.DescriptionFetcher, retrier *Retrier) *DescriptionFetcher {
	return &DescriptionFetcher{inner: inner, retrier: retrier}
}

func (f *DescriptionFetcher) FetchDescription(ctx context.Context, url string) (string, error) {
	var desc string
	err := f.retrier.Do(ctx, "fetch description", func(ctx context.Context) error {
		var err error
		desc, err = f.inner.FetchDescription(ctx, url)
		return err
	})
	if err != nil {
		return "", err
	}
	return desc, nil
}

// ListingSource is a decorator that retries a failed listing page load.
type ListingSource struct {
	inner   model.ListingSource
	retrier *Retrier
}

// NewListingSource wraps inner with retry logic.
func NewListingSource(inner model.ListingSource, retrier *Retrier) *ListingSource {
	return &ListingSource{inner: inner, retrier: retrier}
}

func (s *ListingSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	var listings []model.RawListing
	err := s.retrier.Do(ctx, "fetch listings", func(ctx context.Context) error {
		var err error
		listings, err = s.inner.Listings(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}
