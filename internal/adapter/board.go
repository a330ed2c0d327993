package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

// Public board API roots.
const (
	GreenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	LeverBaseURL      = "https://api.lever.co/v0/postings"
)

// boardDescriptions keeps the descriptions a board API returns alongside its
// listings, so fetching one later costs no request.
type boardDescriptions struct {
	mu    sync.RWMutex
	byURL map[string]string
}

func (d *boardDescriptions) store(url, description string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byURL == nil {
		d.byURL = make(map[string]string)
	}
	d.byURL[url] = description
}

// FetchDescription implements model.DescriptionFetcher for listings returned
// by the most recent Listings call.
func (d *boardDescriptions) FetchDescription(_ context.Context, url string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.byURL[url]
	if !ok {
		return "", fmt.Errorf("no description for %s", url)
	}
	return desc, nil
}

// matchesQuery reports whether every word of query occurs in title, ignoring
// case. Board APIs have no search, so the query is applied here.
func matchesQuery(title, query string) bool {
	title = strings.ToLower(title)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(title, word) {
			return false
		}
	}
	return true
}

type greenhouseJob struct {
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	FirstPublished string             `json:"first_published"`
	UpdatedAt      string             `json:"updated_at"`
	Content        string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseSource lists the jobs of one Greenhouse board whose titles match
// the query. It also serves their descriptions.
type GreenhouseSource struct {
	boardDescriptions
	baseURL     string
	boardToken  string
	companyName string
	query       string
	client      *http.Client
	logger      *slog.Logger
}

// NewGreenhouseSource creates a source for a Greenhouse board. An empty
// baseURL selects the public boards API.
func NewGreenhouseSource(baseURL, boardToken, companyName, query string, client *http.Client, logger *slog.Logger) *GreenhouseSource {
	if baseURL == "" {
		baseURL = GreenhouseBaseURL
	}
	return &GreenhouseSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		boardToken:  boardToken,
		companyName: companyName,
		query:       query,
		client:      client,
		logger:      discardLogger(logger),
	}
}

// Listings implements model.ListingSource.
func (s *GreenhouseSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", s.baseURL, s.boardToken)
	body, err := get(ctx, s.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", s.boardToken, err)
	}
	defer body.Close()

	var resp greenhouseResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", s.boardToken, err)
	}

	var listings []model.RawListing
	for _, gj := range resp.Jobs {
		if gj.AbsoluteURL == "" || !matchesQuery(gj.Title, s.query) {
			continue
		}
		posted := gj.FirstPublished
		if posted == "" {
			posted = gj.UpdatedAt
		}
		listings = append(listings, model.RawListing{
			URL:        gj.AbsoluteURL,
			Title:      strings.TrimSpace(gj.Title),
			Company:    s.companyName,
			Location:   strings.TrimSpace(gj.Location.Name),
			PostedDate: rfc3339Date(posted),
		})
		// Greenhouse escapes the markup inside content.
		s.store(gj.AbsoluteURL, html.UnescapeString(gj.Content))
	}

	s.logger.Debug("greenhouse board fetched", "board", s.boardToken, "jobs", len(resp.Jobs), "matched", len(listings))
	return listings, nil
}

type leverList struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

type leverCategories struct {
	Location     string   `json:"location"`
	AllLocations []string `json:"allLocations"`
}

type leverJob struct {
	Text        string          `json:"text"`
	Description string          `json:"description"`
	Lists       []leverList     `json:"lists"`
	Additional  string          `json:"additional"`
	Categories  leverCategories `json:"categories"`
	CreatedAt   int64           `json:"createdAt"`
	HostedURL   string          `json:"hostedUrl"`
}

// descriptionHTML joins the posting's description, titled lists and closing
// text into one document the section extractor understands.
func (lj leverJob) descriptionHTML() string {
	var b strings.Builder
	b.WriteString(lj.Description)
	for _, l := range lj.Lists {
		fmt.Fprintf(&b, "<h3>%s:</h3><ul>%s</ul>", l.Text, l.Content)
	}
	b.WriteString(lj.Additional)
	return b.String()
}

// LeverSource lists the postings of one Lever company whose titles match the
// query. It also serves their descriptions.
type LeverSource struct {
	boardDescriptions
	baseURL     string
	companySlug string
	companyName string
	query       string
	client      *http.Client
	logger      *slog.Logger
}

// NewLeverSource creates a source for a Lever company. An empty baseURL
// selects the public postings API.
func NewLeverSource(baseURL, companySlug, companyName, query string, client *http.Client, logger *slog.Logger) *LeverSource {
	if baseURL == "" {
		baseURL = LeverBaseURL
	}
	return &LeverSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		companySlug: companySlug,
		companyName: companyName,
		query:       query,
		client:      client,
		logger:      discardLogger(logger),
	}
}

// Listings implements model.ListingSource.
func (s *LeverSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	url := fmt.Sprintf("%s/%s?mode=json", s.baseURL, s.companySlug)
	body, err := get(ctx, s.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", s.companySlug, err)
	}
	defer body.Close()

	var jobs []leverJob
	if err := json.NewDecoder(body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", s.companySlug, err)
	}

	var listings []model.RawListing
	for _, lj := range jobs {
		if lj.HostedURL == "" || !matchesQuery(lj.Text, s.query) {
			continue
		}
		// Prefer allLocations if available
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}
		var posted string
		if lj.CreatedAt > 0 {
			posted = time.UnixMilli(lj.CreatedAt).UTC().Format(model.DateLayout)
		}
		listings = append(listings, model.RawListing{
			URL:        lj.HostedURL,
			Title:      strings.TrimSpace(lj.Text),
			Company:    s.companyName,
			Location:   location,
			PostedDate: posted,
		})
		s.store(lj.HostedURL, lj.descriptionHTML())
	}

	s.logger.Debug("lever postings fetched", "company", s.companySlug, "jobs", len(jobs), "matched", len(listings))
	return listings, nil
}

// rfc3339Date converts an RFC 3339 timestamp to a calendar date in its own
// offset. Unparseable input is passed through so the filter reports it.
func rfc3339Date(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format(model.DateLayout)
}
