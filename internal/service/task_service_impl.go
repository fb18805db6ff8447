package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/grouping"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
)

var errNoTaskList = errors.New("document has no task list")

type taskService struct {
	tasks      repository.TaskRepository
	selections repository.SelectionRepository
	resolver   *identity.Resolver
	cfg        serviceConfig

	searchWarning sync.Once
}

// NewTaskService builds the task service. tasks may be nil for documents
// without a task list; every operation then fails.
func NewTaskService(tasks repository.TaskRepository, selections repository.SelectionRepository, resolver *identity.Resolver, opts ...Option) TaskService {
	return &taskService{
		tasks:      tasks,
		selections: selections,
		resolver:   resolver,
		cfg:        newServiceConfig(opts),
	}
}

func (s *taskService) CreateTasks(ctx context.Context, rows []*domain.ScheduleRow, syncIDToGroup map[string]string, opts app.PipelineOptions, sink progress.Sink) (result *domain.TaskResult, err error) {
	run := startUseCase(useCaseCreateTasks, s.cfg.observer, s.cfg.clock)
	result = &domain.TaskResult{}
	defer func() {
		run.set("link_mode", string(opts.LinkMode))
		run.set("tasks", result.TaskCount)
		run.set("linked", result.LinkedCount)
		run.set("unlinked", result.UnlinkedCount)
		run.set("failed", len(result.FailedTasks))
		run.finish(ctx, err)
	}()

	if s.tasks == nil {
		return result, app.Wrapf(app.ErrTask, errNoTaskList, "creating tasks")
	}

	eligible := make([]*domain.ScheduleRow, 0, len(rows))
	for _, r := range rows {
		if r.IsMatched() && r.PlannedStart != nil {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		result.FailedTasks = append(result.FailedTasks, domain.FailedItem{Reason: "no matched rows with a planned start"})
		return result, nil
	}

	tree, err := s.tasks.WorkingCopy(ctx)
	if err != nil {
		return result, app.Wrapf(app.ErrTask, err, "loading task working copy")
	}
	if removed := tree.RemoveRoot(opts.TaskRootFolder); removed > 0 {
		s.cfg.logger.Debug("replacing existing task root", "root", opts.TaskRootFolder, "removed", removed)
	}
	root := &domain.TaskNode{Kind: domain.TaskNodeFolder, Name: opts.TaskRootFolder}
	tree.Roots = append(tree.Roots, root)
	folders := map[string]*domain.TaskNode{"": root}
	if opts.HierarchicalTasks {
		eligible = inFolderOrder(eligible)
	}

	rep := newItemReporter(sink, progress.StageTaskCreation, len(eligible))
	for i, row := range eligible {
		if checkpoint(i, opts.BatchSize) {
			if err := ctx.Err(); err != nil {
				return result, s.savePartial(ctx, tree, folders, result, err)
			}
		}

		spec := BuildTaskSpec(row, syncIDToGroup, opts)
		parent, folderPath := root, opts.TaskRootFolder
		if opts.HierarchicalTasks {
			parent, folderPath = taskFolder(folders, root, domain.SplitPath(row.ParentSet))
		}

		members, linkErr := s.link(ctx, spec, opts)
		if linkErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, s.savePartial(ctx, tree, folders, result, ctxErr)
			}
			result.FailedTasks = append(result.FailedTasks, domain.FailedItem{SyncID: row.SyncID, Reason: linkErr.Error()})
			rep.report(i, spec.Name, false, linkErr.Error())
			s.cfg.logger.Warn("task creation failed", "sync_id", row.SyncID, "error", linkErr)
			continue
		}

		parent.Add(&domain.TaskNode{
			Kind:         domain.TaskNodeTask,
			Name:         spec.Name,
			SyncID:       spec.SyncID,
			TaskType:     spec.TaskType,
			PlannedStart: spec.PlannedStart,
			PlannedEnd:   spec.PlannedEnd,
			ActualStart:  spec.ActualStart,
			ActualEnd:    spec.ActualEnd,
			Members:      members,
		})
		result.TaskCount++
		if len(members) > 0 {
			result.LinkedCount++
		} else {
			result.UnlinkedCount++
		}
		result.CreatedTasks = append(result.CreatedTasks, domain.CreatedTask{
			Name:        spec.Name,
			SyncID:      spec.SyncID,
			FolderPath:  folderPath,
			MemberCount: len(members),
		})
		rep.report(i, spec.Name, true, "")
	}
	result.FolderCount = len(folders)

	if err := s.tasks.Replace(ctx, tree); err != nil {
		return result, app.Wrapf(app.ErrTask, err, "saving task tree")
	}
	return result, nil
}

// savePartial keeps the tasks built before ctx was cancelled. The save runs
// detached from ctx so the cancellation itself does not abort it. The
// returned error is always cause, joined with any save failure.
func (s *taskService) savePartial(ctx context.Context, tree *domain.TaskTree, folders map[string]*domain.TaskNode, result *domain.TaskResult, cause error) error {
	result.FolderCount = len(folders)
	if err := s.tasks.Replace(context.WithoutCancel(ctx), tree); err != nil {
		s.cfg.logger.Warn("saving partial task tree failed", "tasks", result.TaskCount, "error", err)
		result.TaskCount, result.LinkedCount, result.UnlinkedCount = 0, 0, 0
		result.CreatedTasks = nil
		return errors.Join(cause, app.Wrapf(app.ErrTask, err, "saving partial task tree"))
	}
	s.cfg.logger.Info("task creation cancelled, kept partial task tree", "tasks", result.TaskCount)
	return cause
}

// inFolderOrder groups rows by task folder, folders in first-seen order.
func inFolderOrder(rows []*domain.ScheduleRow) []*domain.ScheduleRow {
	buckets := grouping.BucketBy(rows, func(r *domain.ScheduleRow) string {
		return strings.Join(domain.SplitPath(r.ParentSet), "/")
	})
	out := make([]*domain.ScheduleRow, 0, len(rows))
	for _, b := range buckets {
		out = append(out, b.Rows...)
	}
	return out
}

// BuildTaskSpec describes the task created for row.
func BuildTaskSpec(row *domain.ScheduleRow, syncIDToGroup map[string]string, opts app.PipelineOptions) domain.TaskSpec {
	taskType := row.TaskType
	if taskType == "" {
		taskType = opts.DefaultTaskType
	}
	return domain.TaskSpec{
		Name:         row.DisplayName(),
		SyncID:       row.SyncID,
		PlannedStart: row.PlannedStart,
		PlannedEnd:   row.PlannedEnd,
		ActualStart:  row.ActualStart,
		ActualEnd:    row.ActualEnd,
		TaskType:     taskType,
		LinkGroup:    syncIDToGroup[row.SyncID],
		LinkNode:     row.MatchedNodeID,
	}
}

// taskFolder returns the folder for segments below root, creating missing
// folders. The cache is keyed by cumulative path.
func taskFolder(folders map[string]*domain.TaskNode, root *domain.TaskNode, segments []string) (*domain.TaskNode, string) {
	parent := root
	path := ""
	for _, seg := range segments {
		path = joinPath(path, seg)
		f, ok := folders[path]
		if !ok {
			f = parent.Add(&domain.TaskNode{Kind: domain.TaskNodeFolder, Name: seg})
			folders[path] = f
		}
		parent = f
	}
	return parent, joinPath(root.Name, path)
}

// link returns the member node keys for spec. Missing link targets leave
// the task unlinked; only store failures are errors.
func (s *taskService) link(ctx context.Context, spec domain.TaskSpec, opts app.PipelineOptions) ([]int64, error) {
	switch opts.LinkMode {
	case domain.LinkSelectionSet:
		if spec.LinkGroup == "" {
			return nil, nil
		}
		set, err := s.selections.FindSetByName(ctx, opts.SelectionSetRootFolder, spec.LinkGroup)
		if errors.Is(err, repository.ErrNotFound) {
			s.cfg.logger.Warn("task group not found, leaving task unlinked", "sync_id", spec.SyncID, "group", spec.LinkGroup)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("linking group %s: %w", spec.LinkGroup, err)
		}
		return append([]int64(nil), set.Members...), nil

	case domain.LinkExplicit:
		if spec.LinkNode == nil {
			return nil, nil
		}
		node, err := s.resolver.Locate(ctx, *spec.LinkNode)
		if errors.Is(err, identity.ErrNodeNotFound) {
			s.cfg.logger.Warn("matched node not located, leaving task unlinked", "sync_id", spec.SyncID)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("linking node: %w", err)
		}
		return []int64{node.Key}, nil

	case domain.LinkSearch:
		s.searchWarning.Do(func() {
			s.cfg.logger.Warn("search link mode is not available, tasks are left unlinked")
		})
		return nil, nil
	}
	return nil, fmt.Errorf("unknown link mode %q", opts.LinkMode)
}

func (s *taskService) ListTasks(ctx context.Context) ([]domain.TaskSummary, error) {
	tree, err := s.workingCopy(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Summaries(), nil
}

func (s *taskService) FindBySyncID(ctx context.Context, syncID string) (*domain.TaskSummary, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].SyncID == syncID {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", syncID, repository.ErrNotFound)
}

func (s *taskService) Summarize(ctx context.Context) (*domain.TaskLinkSummary, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	sum := &domain.TaskLinkSummary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Linked {
			sum.Linked++
		} else {
			sum.Unlinked++
		}
	}
	return sum, nil
}

// ClearTasks removes the root folder named rootName with its descendants.
func (s *taskService) ClearTasks(ctx context.Context, rootName string) (int, error) {
	tree, err := s.workingCopy(ctx)
	if err != nil {
		return 0, err
	}
	removed := tree.RemoveRoot(rootName)
	if removed == 0 {
		return 0, nil
	}
	if err := s.tasks.Replace(ctx, tree); err != nil {
		return 0, fmt.Errorf("clearing tasks under %s: %w", rootName, err)
	}
	return removed, nil
}

func (s *taskService) workingCopy(ctx context.Context) (*domain.TaskTree, error) {
	if s.tasks == nil {
		return nil, errNoTaskList
	}
	tree, err := s.tasks.WorkingCopy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading task tree: %w", err)
	}
	return tree, nil
}
