package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/schedule"
	"github.com/alexanderramin/awp4d/internal/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsMessage(msgs []string, part string) bool {
	for _, m := range msgs {
		if strings.Contains(m, part) {
			return true
		}
	}
	return false
}

func TestValidatePreConditions_Errors(t *testing.T) {
	emptyFile := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o644))
	validCSV := testutil.WriteCSV(t, scheduleCSV...)

	tests := []struct {
		name    string
		path    string
		noModel bool
		noDoc   bool
		mutate  func(*app.PipelineOptions)
		want    string
	}{
		{name: "no active document", path: validCSV, noDoc: true, want: "no active document"},
		{name: "no models", path: validCSV, noModel: true, want: "no models loaded"},
		{name: "empty path", path: " ", want: "no schedule file given"},
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.csv"), want: "schedule file not found"},
		{name: "empty file", path: emptyFile, want: "schedule file is empty"},
		{name: "no valid rows", path: testutil.WriteCSV(t, "SyncID,TaskName", "A-100,Wall"), want: "no valid schedule rows"},
		{name: "missing sync id column", path: testutil.WriteCSV(t, "TaskName,PlannedStartDate", "Wall,2025-03-03"), want: "required column"},
		{name: "invalid options", path: validCSV, mutate: func(o *app.PipelineOptions) { o.BatchSize = 0 }, want: "invalid option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var svc ValidationService
			switch {
			case tt.noDoc:
				svc = NewValidationService(nil, schedule.NewParser())
			case tt.noModel:
				_, session := testutil.NewTestSession(t)
				svc = NewValidationService(session, schedule.NewParser())
			default:
				env := newSiteEnv(t)
				svc = NewValidationService(env.session, schedule.NewParser())
			}
			opts := testOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}

			res := svc.ValidatePreConditions(context.Background(), tt.path, opts)
			assert.False(t, res.IsValid())
			assert.True(t, containsMessage(res.Errors, tt.want), "errors: %v", res.Errors)
			assert.ErrorIs(t, res.Err(), app.ErrValidation)
		})
	}
}

func TestValidatePreConditions_Warnings(t *testing.T) {
	env := newSiteEnv(t)
	path := testutil.WriteCSV(t,
		"SyncID,PlannedStartDate,PlannedEndDate",
		"A-100,2025-03-03,2025-03-07",
		"A-100,2025-03-10,2025-03-14",
		"B-200,2025-03-20,2025-03-10",
	)
	svc := NewValidationService(env.session.WithoutTasks(), schedule.NewParser())

	res := svc.ValidatePreConditions(context.Background(), path, testOptions())
	assert.True(t, res.IsValid(), "errors: %v", res.Errors)
	assert.True(t, containsMessage(res.Warnings, "duplicate SyncIDs: A-100"), "warnings: %v", res.Warnings)
	assert.True(t, containsMessage(res.Warnings, "planned start 2025-03-20 is after planned end 2025-03-10"))
	assert.True(t, containsMessage(res.Warnings, "no task list"))
}

func TestValidatePreConditions_Valid(t *testing.T) {
	env := newSiteEnv(t)
	svc := NewValidationService(env.session, schedule.NewParser())

	res := svc.ValidatePreConditions(context.Background(), testutil.WriteCSV(t, scheduleCSV...), testOptions())
	assert.True(t, res.IsValid(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
	assert.True(t, containsMessage(res.Info, "5 rows, 5 valid"))
}

func TestValidatePostConditions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewValidationService(nil, schedule.NewParser(), WithClock(clock))
	opts := testOptions()

	t.Run("clean run", func(t *testing.T) {
		result := &app.PipelineResult{
			StartTime: clock.Now(),
			Match:     &domain.MatchResult{Total: 10, Matched: 10},
			Write:     &domain.PropertyWriteResult{Total: 10, Success: 10},
			Sets:      domain.NewSelectionSetResult(),
			Tasks:     &domain.TaskResult{TaskCount: 10, LinkedCount: 10},
		}
		res := svc.ValidatePostConditions(context.Background(), result, opts)
		assert.True(t, res.IsValid())
		assert.Empty(t, res.Warnings)
	})

	t.Run("every warning", func(t *testing.T) {
		start := clock.Now()
		clock.Advance(6 * time.Minute)
		sets := domain.NewSelectionSetResult()
		sets.FailedSets = []domain.FailedSet{{Key: "Zone B", Reason: "boom"}}
		result := &app.PipelineResult{
			StartTime: start,
			Match:     &domain.MatchResult{Total: 10, Matched: 5},
			Write:     &domain.PropertyWriteResult{Total: 5, Success: 4, Failed: 1},
			Sets:      sets,
			Tasks: &domain.TaskResult{
				TaskCount:     4,
				UnlinkedCount: 2,
				FailedTasks:   []domain.FailedItem{{SyncID: "A-1", Reason: "boom"}},
			},
		}

		res := svc.ValidatePostConditions(context.Background(), result, opts)
		assert.True(t, res.IsValid(), "post-validation never blocks")
		for _, want := range []string{
			"match rate 50.0% is below the minimum 80.0%",
			"1 of 5 property writes failed",
			"1 selection sets failed",
			"1 tasks failed",
			"2 tasks are not linked",
			"run took 6m0s",
		} {
			assert.True(t, containsMessage(res.Warnings, want), "missing %q in %v", want, res.Warnings)
		}
	})
}

func TestValidateEnvironment(t *testing.T) {
	t.Run("loaded document", func(t *testing.T) {
		env := newSiteEnv(t)
		rep := NewValidationService(env.session, schedule.NewParser()).ValidateEnvironment(context.Background())
		assert.True(t, rep.Validation.IsValid())
		assert.Equal(t, 1, rep.Models)
		assert.Equal(t, 6, rep.Nodes)
		assert.Equal(t, 5, rep.GeometryNodes)
		assert.Zero(t, rep.Tasks)
	})

	t.Run("empty document", func(t *testing.T) {
		_, session := testutil.NewTestSession(t)
		rep := NewValidationService(session.WithoutTasks(), schedule.NewParser()).ValidateEnvironment(context.Background())
		assert.True(t, containsMessage(rep.Validation.Errors, "no models loaded"))
		assert.True(t, containsMessage(rep.Validation.Warnings, "no task list"))
	})

	t.Run("no document", func(t *testing.T) {
		rep := NewValidationService(nil, schedule.NewParser()).ValidateEnvironment(context.Background())
		assert.Equal(t, []string{"no active document"}, rep.Validation.Errors)
	})
}
