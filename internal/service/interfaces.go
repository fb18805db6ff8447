package service

import (
	"context"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/importer"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/schedule"
)

type MatchService interface {
	// MatchAll matches every row against the model tree and records the
	// outcome on the row. A cancelled context stops the batch between rows.
	MatchAll(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (*domain.MatchResult, error)
	FindBySyncID(ctx context.Context, syncID string, opts app.PipelineOptions) (*Match, error)
	FindBySyncIDCached(ctx context.Context, syncID string, opts app.PipelineOptions) (*Match, error)
	BuildPropertyCache(ctx context.Context, opts app.PipelineOptions) error
	ClearCache()
	CacheStats() CacheStats
}

type PropertyWriteService interface {
	WriteBatch(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (*domain.PropertyWriteResult, error)
	ReadScheduleProperties(ctx context.Context, nodeKey int64, internalName string) (*domain.CustomCategory, error)
}

type SelectionSetService interface {
	CreateHierarchicalSets(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (*domain.SelectionSetResult, error)
	ClearSelectionSets(ctx context.Context, rootName string) (int, error)
	ListSets(ctx context.Context, rootName string) ([]domain.SelectionEntry, error)
}

type TaskService interface {
	CreateTasks(ctx context.Context, rows []*domain.ScheduleRow, syncIDToGroup map[string]string, opts app.PipelineOptions, sink progress.Sink) (*domain.TaskResult, error)
	ListTasks(ctx context.Context) ([]domain.TaskSummary, error)
	FindBySyncID(ctx context.Context, syncID string) (*domain.TaskSummary, error)
	Summarize(ctx context.Context) (*domain.TaskLinkSummary, error)
	ClearTasks(ctx context.Context, rootName string) (int, error)
}

type ValidationService interface {
	ValidatePreConditions(ctx context.Context, csvPath string, opts app.PipelineOptions) *app.ValidationResult
	ValidatePostConditions(ctx context.Context, result *app.PipelineResult, opts app.PipelineOptions) *app.ValidationResult
	ValidateEnvironment(ctx context.Context) *app.EnvironmentReport
}

type PipelineService interface {
	// Run executes the whole pipeline. It never returns nil and never
	// panics; failures are reported on the result.
	Run(ctx context.Context, req app.PipelineRequest) *app.PipelineResult
	ClearExistingData(ctx context.Context, opts app.PipelineOptions) (*app.ClearReport, error)
	PreviewCsv(ctx context.Context, path string, maxRows int) (*schedule.Preview, error)
	ValidateCsv(ctx context.Context, path string) *app.ValidationResult
	TestMatching(ctx context.Context, path string, opts app.PipelineOptions) (*app.MatchPreview, error)
	ValidateEnvironment(ctx context.Context) *app.EnvironmentReport
	ClearAllCaches()
}

type ModelImportService interface {
	ImportModel(ctx context.Context, filePath string) (*ImportResult, error)
	ImportModelFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error)
	ResetModel(ctx context.Context) (int, error)
}

// Match is the outcome of a single sync id lookup.
type Match struct {
	Node domain.ModelNode
	ID   domain.NodeIdentity
	// Candidates counts every node that carried the value; more than one
	// means the pick was made by tie-break.
	Candidates int
	Property   domain.PropertyKey
}

type CacheStats struct {
	MatchEntries       int
	PropertyValues     int
	PropertyCacheBuilt bool
}

type ImportResult struct {
	Models     int
	Nodes      int
	Properties int
}
