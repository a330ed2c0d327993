package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DateLayout is the ISO calendar date format used for posted and start dates.
const DateLayout = "2006-01-02"

// RecordColumns is the fixed column order every sink writes, regardless of
// which extraction strategy produced the record.
var RecordColumns = []string{
	"url",
	"title",
	"company",
	"location",
	"posted_date",
	"field",
	"degree",
	"start_date",
	"duration",
	"requirements",
	"sections",
}

// RequirementsSeparator joins requirement strings into a single cell.
const RequirementsSeparator = "; "

// Row flattens the record into RecordColumns order. Absent values are
// written as empty strings.
func (r JobRecord) Row() []string {
	row := []string{r.URL, r.Title, r.Company, r.Location, r.PostedDate, "", "", "", "", "", ""}

	if a := r.Attributes; a != nil {
		if a.Field != nil {
			row[5] = *a.Field
		}
		if a.DegreeLevel != nil {
			row[6] = strconv.Itoa(*a.DegreeLevel)
		}
		if a.StartDate != nil {
			row[7] = a.StartDate.Format(DateLayout)
		}
		if a.Duration != nil {
			row[8] = *a.Duration
		}
		row[9] = strings.Join(a.Requirements, RequirementsSeparator)
	}

	if len(r.Sections) > 0 {
		// json.Marshal sorts map keys, so the cell is stable across runs.
		if b, err := json.Marshal(r.Sections); err == nil {
			row[10] = string(b)
		}
	}

	return row
}
