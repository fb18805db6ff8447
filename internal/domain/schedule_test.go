package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestScheduleRow_IsValid(t *testing.T) {
	cases := []struct {
		name  string
		row   ScheduleRow
		valid bool
	}{
		{"no sync id", ScheduleRow{PlannedStart: day(2024, 1, 1)}, false},
		{"no dates", ScheduleRow{SyncID: "A1"}, false},
		{"start only", ScheduleRow{SyncID: "A1", PlannedStart: day(2024, 1, 1)}, true},
		{"end only", ScheduleRow{SyncID: "A1", PlannedEnd: day(2024, 1, 1)}, true},
		{"ordered", ScheduleRow{SyncID: "A1", PlannedStart: day(2024, 1, 1), PlannedEnd: day(2024, 1, 5)}, true},
		{"inverted", ScheduleRow{SyncID: "A1", PlannedStart: day(2024, 1, 5), PlannedEnd: day(2024, 1, 1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.row.IsValid())
		})
	}
}

func TestScheduleRow_PlannedDurationDays(t *testing.T) {
	row := ScheduleRow{PlannedStart: day(2024, 1, 1), PlannedEnd: day(2024, 1, 5)}
	assert.Equal(t, 4, row.PlannedDurationDays())

	row.PlannedEnd = nil
	assert.Equal(t, 0, row.PlannedDurationDays())
}

func TestScheduleRow_DisplayNameFallsBackToSyncID(t *testing.T) {
	row := NewScheduleRow("W-100")
	assert.Equal(t, "W-100", row.DisplayName())
	row.TaskName = "Wall"
	assert.Equal(t, "Wall", row.DisplayName())
}

func TestScheduleRow_CustomPropertiesKeepOrder(t *testing.T) {
	row := NewScheduleRow("A1")
	row.CustomProperties.Set("Zeta", "1")
	row.CustomProperties.Set("Alpha", "2")

	assert.Equal(t, []string{"Zeta", "Alpha"}, row.CustomPropertyKeys())
	v, ok := row.CustomProperty("Alpha")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = row.CustomProperty("missing")
	assert.False(t, ok)
}

func TestParseTaskType(t *testing.T) {
	cases := map[string]TaskType{
		"":                       TaskConstruct,
		"Construct":              TaskConstruct,
		"DEMOLISH":               TaskDemolish,
		"temporary":              TaskTemporary,
		"시공":                     TaskConstruct,
		"철거":                     TaskDemolish,
		"가설":                     TaskTemporary,
		"Wall removal":           TaskDemolish,
		"temporary construction": TaskTemporary,
		"building works":         TaskConstruct,
		"벽체 해체 작업":               TaskDemolish,
		"painting":               TaskConstruct,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseTaskType(in), "input=%q", in)
	}
}

func TestMatchResult_MatchRate(t *testing.T) {
	var empty MatchResult
	assert.Equal(t, 0.0, empty.MatchRate())

	r := &MatchResult{}
	for _, status := range []MatchStatus{MatchMatched, MatchMatched, MatchNotFound, MatchError} {
		r.Record(&ScheduleRow{SyncID: string(status), MatchStatus: status})
	}
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Matched)
	assert.Equal(t, 1, r.NotFound)
	assert.Equal(t, 1, r.Errors)
	assert.InDelta(t, 50.0, r.MatchRate(), 0.001)
	assert.Equal(t, []string{"not_found", "error"}, r.UnmatchedIDs)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"ZoneA", "L1"}, SplitPath("ZoneA/L1"))
	assert.Equal(t, []string{"ZoneA", "L1"}, SplitPath(` ZoneA \ L1 `))
	assert.Empty(t, SplitPath("//"))
}
