package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/playwright-community/playwright-go"

	"github.com/vpr16/jobminer/internal/model"
)

const (
	scrollScript       = `window.scrollTo(0, document.body.scrollHeight); true`
	defaultScrollPause = 2 * time.Second
	navigationTimeout  = 30 * time.Second
)

// BrowserOptions configures the browser-driven listing sources.
type BrowserOptions struct {
	BaseURL     string
	Query       string
	NumScrolls  int
	ScrollPause time.Duration
	Headless    bool
}

func (o BrowserOptions) withDefaults() BrowserOptions {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.ScrollPause <= 0 {
		o.ScrollPause = defaultScrollPause
	}
	if o.NumScrolls < 0 {
		o.NumScrolls = 0
	}
	return o
}

func parseRenderedPage(html, baseURL string) ([]model.RawListing, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return ParseListingCards(strings.NewReader(html), base)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// PlaywrightSource loads the search page in Chromium through Playwright,
// scrolls it NumScrolls times to trigger lazy loading, then parses the
// rendered HTML.
type PlaywrightSource struct {
	opts   BrowserOptions
	logger *slog.Logger
}

// NewPlaywrightSource creates a Playwright-backed listing source. The
// Playwright driver and browsers must already be installed.
func NewPlaywrightSource(opts BrowserOptions, logger *slog.Logger) *PlaywrightSource {
	return &PlaywrightSource{opts: opts.withDefaults(), logger: discardLogger(logger)}
}

// Listings implements model.ListingSource.
func (s *PlaywrightSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright: start driver: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("playwright: launch chromium: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("playwright: new page: %w", err)
	}

	searchURL := SearchURL(s.opts.BaseURL, s.opts.Query)
	s.logger.Info("opening search page", "url", searchURL, "engine", "playwright")
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("playwright: load search page: %w", err)
	}

	for i := 0; i < s.opts.NumScrolls; i++ {
		if _, err := page.Evaluate(scrollScript); err != nil {
			return nil, fmt.Errorf("playwright: scroll %d: %w", i+1, err)
		}
		if err := sleepCtx(ctx, s.opts.ScrollPause); err != nil {
			return nil, err
		}
		s.logger.Debug("scrolled", "n", i+1)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("playwright: read page content: %w", err)
	}
	return parseRenderedPage(html, s.opts.BaseURL)
}

// ChromedpSource is the Chrome DevTools Protocol equivalent of
// PlaywrightSource. It needs a local Chrome or Chromium binary.
type ChromedpSource struct {
	opts   BrowserOptions
	logger *slog.Logger
}

// NewChromedpSource creates a chromedp-backed listing source.
func NewChromedpSource(opts BrowserOptions, logger *slog.Logger) *ChromedpSource {
	return &ChromedpSource{opts: opts.withDefaults(), logger: discardLogger(logger)}
}

// Listings implements model.ListingSource.
func (s *ChromedpSource) Listings(ctx context.Context) ([]model.RawListing, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	searchURL := SearchURL(s.opts.BaseURL, s.opts.Query)
	s.logger.Info("opening search page", "url", searchURL, "engine", "chromedp")

	actions := []chromedp.Action{chromedp.Navigate(searchURL)}
	for i := 0; i < s.opts.NumScrolls; i++ {
		var scrolled bool
		actions = append(actions,
			chromedp.Evaluate(scrollScript, &scrolled),
			chromedp.Sleep(s.opts.ScrollPause),
		)
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("chromedp: %w", err)
	}
	return parseRenderedPage(html, s.opts.BaseURL)
}
