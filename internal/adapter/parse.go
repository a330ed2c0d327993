package adapter

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vpr16/jobminer/internal/model"
)

const (
	resultsListSelector = "ul.jobs-search__results-list > li"
	cardLinkSelector    = "a.base-card__full-link"
	titleSelector       = "h3.base-search-card__title, h3"
	companySelector     = "h4.base-search-card__subtitle, h4"
	locationSelector    = ".job-search-card__location"
	metadataSelector    = ".base-search-card__metadata span"
	postedSelector      = "time[datetime]"
)

// descriptionSelectors are tried in order against a posting page.
var descriptionSelectors = []string{
	"section.show-more-less-html .show-more-less-html__markup",
	"section.show-more-less-html div",
	"div.description__text",
}

// ParseListingCards extracts one RawListing per job card in a search results
// document. The same markup is served by the guest pagination endpoint (bare
// <li> fragments) and by the full search page, so every source shares this
// parser. Cards without a link are skipped. base resolves relative hrefs and
// may be nil.
func ParseListingCards(r io.Reader, base *url.URL) ([]model.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing cards: %w", err)
	}

	cards := doc.Find(resultsListSelector)
	if cards.Length() == 0 {
		cards = doc.Find("li")
	}

	listings := make([]model.RawListing, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		listing, ok := parseCard(card, base)
		if ok {
			listings = append(listings, listing)
		}
	})
	return listings, nil
}

func parseCard(card *goquery.Selection, base *url.URL) (model.RawListing, bool) {
	link := card.Find(cardLinkSelector).First()
	if link.Length() == 0 {
		link = card.Find("a[href]").First()
	}
	href, _ := link.Attr("href")
	jobURL := canonicalURL(base, href)
	if jobURL == "" {
		return model.RawListing{}, false
	}

	title := extractText(card.Find(titleSelector).First().Text())
	if title == "" {
		return model.RawListing{}, false
	}

	location := extractText(card.Find(locationSelector).First().Text())
	if location == "" {
		location = extractText(card.Find(metadataSelector).First().Text())
	}

	return model.RawListing{
		URL:        jobURL,
		Title:      title,
		Company:    extractText(card.Find(companySelector).First().Text()),
		Location:   location,
		PostedDate: strings.TrimSpace(card.Find(postedSelector).First().AttrOr("datetime", "")),
	}, true
}

// ParseDescription returns the inner HTML of the description block of a
// posting page, or "" when none of the known containers is present. Markup
// is kept so the section extractor can see list structure.
func ParseDescription(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse description: %w", err)
	}
	for _, sel := range descriptionSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		inner, err := node.Html()
		if err != nil {
			return "", fmt.Errorf("parse description: %w", err)
		}
		if strings.TrimSpace(inner) != "" {
			return strings.TrimSpace(inner), nil
		}
	}
	return "", nil
}
