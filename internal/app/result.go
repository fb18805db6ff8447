package app

import (
	"fmt"
	"time"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/progress"
)

type LogLevel string

const (
	LogDebug   LogLevel = "Debug"
	LogInfo    LogLevel = "Info"
	LogWarning LogLevel = "Warning"
	LogError   LogLevel = "Error"
)

// LogEntry is one audit record of a pipeline run.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Stage     progress.Stage
	Message   string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] [%s] [%s] %s", e.Timestamp.Format("15:04:05.000"), e.Level, e.Stage, e.Message)
}

// PipelineRequest is the input of one orchestrator run.
type PipelineRequest struct {
	CSVPath  string
	Options  PipelineOptions
	Progress progress.Sink
}

// PipelineResult accumulates everything a run produced.
type PipelineResult struct {
	Success      bool
	Stage        PipelineStage
	ErrorMessage string
	Err          *PipelineError

	StartTime time.Time
	EndTime   time.Time

	OptionsHash string

	Rows           []*domain.ScheduleRow
	PreValidation  *ValidationResult
	Match          *domain.MatchResult
	Write          *domain.PropertyWriteResult
	Sets           *domain.SelectionSetResult
	Tasks          *domain.TaskResult
	PostValidation *ValidationResult

	Logs []LogEntry
}

func (r *PipelineResult) Elapsed() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Log appends an audit entry.
func (r *PipelineResult) Log(at time.Time, level LogLevel, stage progress.Stage, format string, args ...any) {
	r.Logs = append(r.Logs, LogEntry{
		Timestamp: at,
		Level:     level,
		Stage:     stage,
		Message:   fmt.Sprintf(format, args...),
	})
}

// LogsAt filters audit entries by minimum severity.
func (r *PipelineResult) LogsAt(min LogLevel) []LogEntry {
	rank := map[LogLevel]int{LogDebug: 0, LogInfo: 1, LogWarning: 2, LogError: 3}
	var out []LogEntry
	for _, e := range r.Logs {
		if rank[e.Level] >= rank[min] {
			out = append(out, e)
		}
	}
	return out
}

// Summary is a one-line outcome description.
func (r *PipelineResult) Summary() string {
	if r.Success {
		return fmt.Sprintf("pipeline completed in %s", r.Elapsed().Round(time.Millisecond))
	}
	if r.Stage == StageCancelled {
		return "pipeline cancelled"
	}
	return fmt.Sprintf("pipeline failed at %s: %s", r.failedAt(), r.ErrorMessage)
}

func (r *PipelineResult) failedAt() PipelineStage {
	if r.Err != nil && r.Err.Stage != "" {
		return r.Err.Stage
	}
	return r.Stage
}

// ValidationResult collects errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []string
	Warnings []string
	Info     []string
}

func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) AddError(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) AddWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) AddInfo(format string, args ...any) {
	v.Info = append(v.Info, fmt.Sprintf(format, args...))
}

// Merge appends other's entries.
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
	v.Info = append(v.Info, other.Info...)
}

// Err returns nil when valid, otherwise an error wrapping ErrValidation.
func (v *ValidationResult) Err() error {
	if v.IsValid() {
		return nil
	}
	msg := fmt.Sprintf("validation failed (%d errors):", len(v.Errors))
	for _, e := range v.Errors {
		msg += "\n  - " + e
	}
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

// EnvironmentReport describes the loaded document.
type EnvironmentReport struct {
	Models         int
	Nodes          int
	GeometryNodes  int
	SelectionItems int
	Tasks          int
	Validation     *ValidationResult
}

// MatchPreview is the outcome of a non-mutating match test.
type MatchPreview struct {
	Rows         int
	Match        *domain.MatchResult
	SampleMisses []string
}

// ClearReport counts items removed by ClearExistingData.
type ClearReport struct {
	SelectionItems int
	Tasks          int
}
