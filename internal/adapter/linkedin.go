package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/retry"
)

const (
	// DefaultBaseURL is the public job site root.
	DefaultBaseURL = "https://www.linkedin.com"

	guestSearchPath = "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	searchPagePath  = "/jobs/search"
	userAgent       = "Mozilla/5.0 (X11; Linux x86_64) jobminer/1.0"
)

// SearchURL builds the full search page URL for browser-driven sources.
func SearchURL(baseURL, query string) string {
	return strings.TrimRight(baseURL, "/") + searchPagePath + "?keywords=" + url.QueryEscape(query)
}

// LinkedInSource pulls listings from the public guest pagination endpoint.
// Each scroll of the search page corresponds to one more page here, so
// numScrolls+1 pages are requested in total.
type LinkedInSource struct {
	baseURL    string
	query      string
	numScrolls int
	client     *http.Client
	logger     *slog.Logger
}

// NewLinkedInSource creates a guest-endpoint listing source.
func NewLinkedInSource(baseURL, query string, numScrolls int, client *http.Client, logger *slog.Logger) *LinkedInSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LinkedInSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		query:      query,
		numScrolls: numScrolls,
		client:     client,
		logger:     discardLogger(logger),
	}
}

// Listings fetches pages until numScrolls+1 pages were read or a page comes
// back empty. Listings are deduplicated by URL, first occurrence wins.
func (s *LinkedInSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("linkedin listings: invalid base url: %w", err)
	}

	var (
		listings []model.RawListing
		seen     = make(map[string]bool)
		start    int
	)
	for page := 0; page <= s.numScrolls; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := fmt.Sprintf("%s%s?keywords=%s&start=%s",
			s.baseURL, guestSearchPath, url.QueryEscape(s.query), strconv.Itoa(start))
		cards, err := s.fetchPage(ctx, pageURL, base)
		if err != nil {
			return nil, fmt.Errorf("linkedin listings page %d: %w", page, err)
		}
		s.logger.Debug("listing page fetched", "page", page, "start", start, "cards", len(cards))
		if len(cards) == 0 {
			break
		}
		start += len(cards)

		for _, c := range cards {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			listings = append(listings, c)
		}
	}
	return listings, nil
}

func (s *LinkedInSource) fetchPage(ctx context.Context, pageURL string, base *url.URL) ([]model.RawListing, error) {
	body, err := get(ctx, s.client, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseListingCards(body, base)
}

// HTTPDescriptionFetcher downloads a posting page and returns the markup of
// its description block.
type HTTPDescriptionFetcher struct {
	client *http.Client
}

// NewHTTPDescriptionFetcher creates a fetcher using client.
func NewHTTPDescriptionFetcher(client *http.Client) *HTTPDescriptionFetcher {
	return &HTTPDescriptionFetcher{client: client}
}

// FetchDescription implements model.DescriptionFetcher. A page without a
// recognizable description block yields "" and a nil error.
func (f *HTTPDescriptionFetcher) FetchDescription(ctx context.Context, listingURL string) (string, error) {
	body, err := get(ctx, f.client, listingURL, "text/html")
	if err != nil {
		return "", fmt.Errorf("fetch description %s: %w", listingURL, err)
	}
	defer body.Close()
	return ParseDescription(body)
}

// get performs a GET and returns the body of a 200 response. Other statuses
// are reported as *model.HTTPError so the retrier can classify them.
func get(ctx context.Context, client *http.Client, rawURL, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return resp.Body, nil
}
