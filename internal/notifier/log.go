package notifier

import (
	"log/slog"

	"github.com/vpr16/jobminer/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new records to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each record via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record with company, title, location, URL and, when
// known, the posted date and extracted field. Never fails.
func (n *LogNotifier) Notify(records []model.JobRecord) error {
	for _, r := range records {
		args := []any{"company", r.Company, "title", r.Title, "location", r.Location, "url", r.URL}
		if r.PostedDate != "" {
			args = append(args, "posted", r.PostedDate)
		}
		if r.Attributes != nil && r.Attributes.Field != nil {
			args = append(args, "field", *r.Attributes.Field)
		}
		if len(r.Sections) > 0 {
			args = append(args, "sections", len(r.Sections))
		}
		n.logger.Info("new job", args...)
	}
	return nil
}
