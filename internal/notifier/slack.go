package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

const (
	slackMessageGap = 500 * time.Millisecond
	maxSummaryItems = 3
)

var degreeNames = map[int]string{
	model.DegreeNone:      "None",
	model.DegreeAssociate: "Associate",
	model.DegreeBachelor:  "Bachelor",
	model.DegreeMaster:    "Master",
	model.DegreeDoctorate: "Doctorate",
}

// SlackNotifier sends job alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	gap        time.Duration
}

// NewSlackNotifier returns a notifier that posts each record to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		gap:        slackMessageGap,
	}
}

// Notify sends each record as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(records []model.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	failures := 0
	for i, r := range records {
		if i > 0 {
			time.Sleep(s.gap)
		}

		if err := s.sendMessage(r); err != nil {
			s.logger.Error("slack notification failed", "company", r.Company, "title", r.Title, "error", err)
			failures++
		}
	}

	if failures == len(records) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Debug("slack notifications complete", "sent", len(records)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(r model.JobRecord) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy record to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	field := "Integration test"
	test := model.JobRecord{
		RawListing: model.RawListing{
			URL:        "https://www.linkedin.com/jobs/",
			Title:      "Test Notification",
			Company:    "JobMiner",
			Location:   "Everywhere",
			PostedDate: time.Now().UTC().Format(model.DateLayout),
		},
		Extraction: model.Extraction{Attributes: &model.ExtractedAttributes{
			Field:        &field,
			Requirements: []string{"Webhook reachable"},
		}},
	}
	return n.Notify([]model.JobRecord{test})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func buildPayload(r model.JobRecord) slackPayload {
	posted := r.PostedDate
	if posted == "" {
		posted = "Unknown"
	}

	degree := "Unknown"
	field := ""
	if a := r.Attributes; a != nil {
		if a.DegreeLevel != nil {
			if name, ok := degreeNames[*a.DegreeLevel]; ok {
				degree = name
			}
		}
		if a.Field != nil {
			field = *a.Field
		}
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "📌 " + r.Company + ": " + r.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + orDash(r.Company)},
				{Type: "mrkdwn", Text: "*Location:*\n" + orDash(r.Location)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Degree:*\n" + degree},
			},
		},
	}

	if summary := extractionSummary(r.Extraction, field); summary != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: summary},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Listing"},
					URL:   r.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}

// extractionSummary renders a short mrkdwn block from whichever extraction
// the record carries, or "" when there is nothing to show.
func extractionSummary(e model.Extraction, field string) string {
	var lines []string
	if field != "" {
		lines = append(lines, "*Field:* "+field)
	}

	var items []string
	if e.Attributes != nil {
		items = e.Attributes.Requirements
	} else if len(e.Sections) > 0 {
		titles := make([]string, 0, len(e.Sections))
		for t := range e.Sections {
			titles = append(titles, t)
		}
		sort.Strings(titles)
		lines = append(lines, "*Sections:* "+strings.Join(titles, ", "))
	}
	if len(items) > maxSummaryItems {
		items = items[:maxSummaryItems]
	}
	for _, it := range items {
		lines = append(lines, "• "+it)
	}
	return strings.Join(lines, "\n")
}
