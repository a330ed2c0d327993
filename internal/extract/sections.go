// Package extract holds the rule-based description extractor: it recovers
// the bulleted sections ("Requirements", "Qualifications", ...) that job
// postings typically render as HTML lists under a short heading.
//
// This is a heuristic over posting markup, not an HTML parser.
package extract

import (
	"context"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/vpr16/jobminer/internal/model"
)

var (
	lineBreakRegex = regexp.MustCompile(`(?i)<br\s*/?>`)
	listOpenRegex  = regexp.MustCompile(`(?i)<(?:ul|ol)\b[^>]*>`)
	listTagRegex   = regexp.MustCompile(`(?i)<(/?)(?:ul|ol)\b[^>]*>`)
	listItemRegex  = regexp.MustCompile(`(?is)<li\b[^>]*>(.*?)</li>`)
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
)

// SectionExtractor implements model.DescriptionExtractor with ExtractSections.
type SectionExtractor struct{}

// NewSectionExtractor returns the rule-based extractor.
func NewSectionExtractor() *SectionExtractor {
	return &SectionExtractor{}
}

// Extract never fails; descriptions without lists yield an empty extraction.
func (SectionExtractor) Extract(_ context.Context, description string) (model.Extraction, error) {
	sections := ExtractSections(description)
	if len(sections) == 0 {
		return model.Extraction{}, nil
	}
	return model.Extraction{Sections: sections}, nil
}

// ExtractSections maps each list's heading to its items in document order.
// Lists with no items produce no entry. A heading seen twice collects the
// items of both lists.
func ExtractSections(description string) model.Sections {
	text := normalizeWhitespace(description)
	sections := model.Sections{}

	pos := 0
	for pos < len(text) {
		loc := listOpenRegex.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		end := matchingListClose(text, start)

		if items := listItems(text[start:end]); len(items) > 0 {
			title := recoverTitle(text[:start])
			sections[title] = append(sections[title], items...)
		}
		pos = end
	}

	return sections
}

// normalizeWhitespace turns line-break markup and runs of whitespace into
// single spaces.
func normalizeWhitespace(s string) string {
	s = lineBreakRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// matchingListClose returns the offset just past the tag closing the list
// that opens at start. Nested lists are depth-counted. An unclosed list runs
// to the end of text.
func matchingListClose(text string, start int) int {
	depth := 0
	for _, m := range listTagRegex.FindAllStringSubmatchIndex(text[start:], -1) {
		closing := m[3] > m[2]
		if closing {
			depth--
		} else {
			depth++
		}
		if depth == 0 {
			return start + m[1]
		}
	}
	return len(text)
}

func listItems(region string) []string {
	var items []string
	for _, m := range listItemRegex.FindAllStringSubmatch(region, -1) {
		if item := cleanText(m[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// cleanText unescapes entities, strips tags and collapses whitespace.
func cleanText(s string) string {
	plain := htmlTagRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(plain)), " ")
}

type scanState int

const (
	skippingMarkup scanState = iota // stepping over tags and spaces that hug the list
	scanningTitle                   // collecting heading runes right to left
	boundaryFound
)

// recoverTitle walks backward from the end of prefix and returns the heading
// that introduces a list. Tags directly before the list are skipped; the
// heading then runs back to the previous '>' or to a '.' that has at least two
// runes before it. Without a boundary the whole prefix is the heading, which
// may be empty.
func recoverTitle(prefix string) string {
	r := []rune(prefix)
	var span []rune

	state := skippingMarkup
	for i := len(r) - 1; i >= 0 && state != boundaryFound; {
		c := r[i]
		switch state {
		case skippingMarkup:
			switch {
			case unicode.IsSpace(c):
				i--
			case c == '>':
				open := lastIndexRune(r[:i], '<')
				if open < 0 {
					state = boundaryFound
					continue
				}
				i = open - 1
			default:
				state = scanningTitle
			}
		case scanningTitle:
			if c == '>' || (c == '.' && i >= 2) {
				state = boundaryFound
				continue
			}
			span = append(span, c)
			i--
		}
	}

	for i, j := 0, len(span)-1; i < j; i, j = i+1, j-1 {
		span[i], span[j] = span[j], span[i]
	}

	title := strings.TrimSpace(string(span))
	title = strings.TrimSpace(strings.TrimSuffix(title, ":"))
	return html.UnescapeString(title)
}

func lastIndexRune(r []rune, target rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == target {
			return i
		}
	}
	return -1
}
