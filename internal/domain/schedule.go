package domain

import (
	"time"

	"github.com/keboola/go-utils/pkg/orderedmap"
)

// ScheduleRow is one normalized schedule entry. The parser creates it, the
// matcher sets MatchStatus and MatchedNodeID, and later stages only read it.
type ScheduleRow struct {
	SyncID   string
	TaskName string

	PlannedStart *time.Time
	PlannedEnd   *time.Time
	ActualStart  *time.Time
	ActualEnd    *time.Time

	Cost            *float64
	DurationDays    int
	ProgressPercent *float64
	TaskType        TaskType
	SetLevel        string
	ParentSet       string

	// CustomProperties holds unmapped columns keyed by the original header
	// text, in header order. Values are strings.
	CustomProperties *orderedmap.OrderedMap

	MatchStatus   MatchStatus
	MatchedNodeID *NodeIdentity
	MatchError    string

	// LineNumber is the 1-based line in the source file.
	LineNumber int
}

// NewScheduleRow returns an unmatched row with the default task type.
func NewScheduleRow(syncID string) *ScheduleRow {
	return &ScheduleRow{
		SyncID:           syncID,
		TaskType:         TaskConstruct,
		CustomProperties: orderedmap.New(),
		MatchStatus:      MatchUnmatched,
	}
}

// HasDates reports whether at least one planned date is set.
func (r *ScheduleRow) HasDates() bool {
	return r.PlannedStart != nil || r.PlannedEnd != nil
}

// IsValid requires a sync id, at least one planned date, and start <= end
// when both are present.
func (r *ScheduleRow) IsValid() bool {
	if r.SyncID == "" || !r.HasDates() {
		return false
	}
	if r.PlannedStart != nil && r.PlannedEnd != nil && r.PlannedStart.After(*r.PlannedEnd) {
		return false
	}
	return true
}

// DatesInverted reports a planned start after the planned end.
func (r *ScheduleRow) DatesInverted() bool {
	return r.PlannedStart != nil && r.PlannedEnd != nil && r.PlannedStart.After(*r.PlannedEnd)
}

// PlannedDurationDays returns whole days between the planned dates, or 0.
func (r *ScheduleRow) PlannedDurationDays() int {
	if r.PlannedStart == nil || r.PlannedEnd == nil {
		return 0
	}
	return int(r.PlannedEnd.Sub(*r.PlannedStart).Hours() / 24)
}

func (r *ScheduleRow) IsMatched() bool {
	return r.MatchStatus == MatchMatched && r.MatchedNodeID != nil
}

// DisplayName is the task display name: the task name, or the sync id.
func (r *ScheduleRow) DisplayName() string {
	return CoalesceStr(r.TaskName, r.SyncID)
}

// CustomProperty returns a custom column value by its header text.
func (r *ScheduleRow) CustomProperty(header string) (string, bool) {
	if r.CustomProperties == nil {
		return "", false
	}
	v, ok := r.CustomProperties.Get(header)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// CustomPropertyKeys returns custom column headers in file order.
func (r *ScheduleRow) CustomPropertyKeys() []string {
	if r.CustomProperties == nil {
		return nil
	}
	return r.CustomProperties.Keys()
}

// ResetMatch clears matcher output so a row can be matched again.
func (r *ScheduleRow) ResetMatch() {
	r.MatchStatus = MatchUnmatched
	r.MatchedNodeID = nil
	r.MatchError = ""
}
