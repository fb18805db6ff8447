package schedule

import (
	"context"
	"strings"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
)

const maxListedDuplicates = 5

// Validate parses path fully. Input failures are errors; duplicate sync ids
// and inverted planned dates are warnings.
func (p *Parser) Validate(ctx context.Context, path string) *app.ValidationResult {
	res := &app.ValidationResult{}
	doc, err := p.Read(ctx, path, nil)
	if err != nil {
		res.AddError("%v", err)
		return res
	}
	res.AddInfo("%d rows parsed (%s)", len(doc.Rows), doc.Encoding)
	if doc.Stats.Dropped > 0 {
		res.AddInfo("%d rows without a sync id were skipped", doc.Stats.Dropped)
	}
	if doc.Stats.Failed > 0 {
		res.AddWarning("%d rows could not be parsed", doc.Stats.Failed)
	}
	CheckRows(doc.Rows, res)
	return res
}

// CheckRows adds row-consistency warnings to res.
func CheckRows(rows []*domain.ScheduleRow, res *app.ValidationResult) {
	if len(rows) == 0 {
		res.AddWarning("no valid schedule rows")
		return
	}

	if dups := DuplicateSyncIDs(rows); len(dups) > 0 {
		listed := dups
		if len(listed) > maxListedDuplicates {
			listed = listed[:maxListedDuplicates]
		}
		msg := "duplicate SyncIDs: " + strings.Join(listed, ", ")
		if extra := len(dups) - len(listed); extra > 0 {
			res.AddWarning("%s (and %d more)", msg, extra)
		} else {
			res.AddWarning("%s", msg)
		}
	}

	noDates := 0
	for _, r := range rows {
		if r.DatesInverted() {
			res.AddWarning("line %d (%s): planned start %s is after planned end %s",
				r.LineNumber, r.SyncID,
				r.PlannedStart.Format("2006-01-02"), r.PlannedEnd.Format("2006-01-02"))
		}
		if !r.HasDates() {
			noDates++
		}
	}
	if noDates > 0 {
		res.AddWarning("%d rows have no planned dates", noDates)
	}
}

// DuplicateSyncIDs returns each sync id that appears more than once, in
// order of first repetition.
func DuplicateSyncIDs(rows []*domain.ScheduleRow) []string {
	seen := make(map[string]int, len(rows))
	var dups []string
	for _, r := range rows {
		seen[r.SyncID]++
		if seen[r.SyncID] == 2 {
			dups = append(dups, r.SyncID)
		}
	}
	return dups
}
