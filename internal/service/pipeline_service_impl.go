package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/schedule"
)

// maxSampleMisses bounds the unmatched sync ids listed by TestMatching.
const maxSampleMisses = 20

type pipelineService struct {
	session    *repository.ModelSession
	parser     *schedule.Parser
	resolver   *identity.Resolver
	matcher    MatchService
	writer     PropertyWriteService
	sets       SelectionSetService
	tasks      TaskService
	validation ValidationService
	cfg        serviceConfig
}

// NewPipelineService wires every stage service onto session. A nil parser
// gets a default one; a nil session yields runs that fail validation.
func NewPipelineService(session *repository.ModelSession, parser *schedule.Parser, opts ...Option) PipelineService {
	cfg := newServiceConfig(opts)
	if parser == nil {
		parser = schedule.NewParser(schedule.WithLogger(cfg.logger))
	}
	s := &pipelineService{
		session:    session,
		parser:     parser,
		validation: NewValidationService(session, parser, opts...),
		cfg:        cfg,
	}
	if session == nil {
		return s
	}
	s.resolver = identity.NewResolver(session.Tree, identity.WithLogger(cfg.logger))
	s.matcher = NewMatchService(session.Tree, s.resolver, opts...)
	s.writer = NewPropertyWriteService(session.Properties, s.resolver, opts...)
	s.sets = NewSelectionSetService(session.Selections, s.resolver, opts...)
	s.tasks = NewTaskService(session.Tasks, session.Selections, s.resolver, opts...)
	return s
}

// pipelineRun is the mutable state of one Run call.
type pipelineRun struct {
	s    *pipelineService
	ctx  context.Context
	res  *app.PipelineResult
	opts app.PipelineOptions
	sink progress.Sink
}

func (s *pipelineService) Run(ctx context.Context, req app.PipelineRequest) (res *app.PipelineResult) {
	opts := req.Options
	res = &app.PipelineResult{
		Stage:       app.StagePending,
		StartTime:   s.cfg.clock.Now(),
		OptionsHash: opts.Hash(),
	}
	r := &pipelineRun{s: s, ctx: ctx, res: res, opts: opts, sink: progress.OrNoop(req.Progress)}
	uc := startUseCase(useCasePipelineRun, s.cfg.observer, s.cfg.clock)

	defer func() {
		if p := recover(); p != nil {
			s.cfg.logger.Error("pipeline panicked", "stage", res.Stage, "panic", p)
			r.fail(app.ErrKindInternal, fmt.Sprintf("unexpected failure: %v", p), nil)
		}
		if res.EndTime.IsZero() {
			res.EndTime = s.cfg.clock.Now()
		}
		uc.set("stage", string(res.Stage))
		uc.set("success", res.Success)
		uc.set("rows", len(res.Rows))
		uc.set("match_rate", res.Match.MatchRate())
		var err error
		if res.Err != nil {
			err = res.Err
		}
		uc.finish(ctx, err)
	}()

	r.execute(req.CSVPath)
	return res
}

func (r *pipelineRun) execute(csvPath string) {
	s, ctx, res, opts := r.s, r.ctx, r.res, r.opts

	if opts.EnablePreValidation {
		if !r.enter(app.StageValidating, "validating preconditions") {
			return
		}
		pre := s.validation.ValidatePreConditions(ctx, csvPath, opts)
		res.PreValidation = pre
		for _, w := range pre.Warnings {
			r.log(app.LogWarning, "%s", w)
		}
		if !pre.IsValid() {
			r.fail(app.ErrKindValidation, "pre-validation failed", pre.Err())
			return
		}
	} else {
		if s.session == nil {
			r.fail(app.ErrKindValidation, "no active document", nil)
			return
		}
		if err := opts.Validate(); err != nil {
			r.fail(app.ErrKindValidation, "invalid options", err)
			return
		}
	}

	if !r.enter(app.StageParsingCsv, "parsing schedule") {
		return
	}
	rows, err := s.parser.ParseFile(ctx, csvPath, r.sink)
	res.Rows = rows
	if err != nil {
		r.stageError(app.ErrKindInput, "parsing schedule failed", err)
		return
	}
	if len(rows) == 0 {
		r.fail(app.ErrKindInput, "schedule has no rows", nil)
		return
	}
	r.log(app.LogInfo, "%d rows parsed", len(rows))

	if !r.enter(app.StageMatching, "matching rows to model objects") {
		return
	}
	match, err := s.matcher.MatchAll(ctx, rows, opts, r.sink)
	res.Match = match
	if err != nil {
		r.stageError(app.ErrKindMatch, "matching failed", err)
		return
	}
	r.log(app.LogInfo, "matched %d of %d rows (%.1f%%)", match.Matched, match.Total, match.MatchRate())
	if rate := match.MatchRate(); rate < opts.MinMatchSuccessRate {
		msg := fmt.Sprintf("match rate %.1f%% is below the minimum %.1f%%", rate, opts.MinMatchSuccessRate)
		if !opts.ContinueOnError {
			r.fail(app.ErrKindMatch, msg, nil)
			return
		}
		r.log(app.LogWarning, "%s", msg)
	}

	if opts.DryRun {
		r.complete("dry run complete")
		return
	}

	if opts.EnablePropertyWrite && !r.writeProperties(rows) {
		return
	}

	groups := map[string]string{}
	if opts.EnableSelectionSets {
		sets, ok := r.createSets(rows)
		if !ok {
			return
		}
		groups = sets.SyncIDToGroup
	}

	if opts.EnableTaskCreation {
		if !s.session.HasTasks() {
			r.log(app.LogWarning, "document has no task list, skipping task creation")
		} else if !r.createTasks(rows, groups) {
			return
		}
	}

	if opts.EnablePostValidation {
		if !r.enter(app.StagePostValidating, "validating results") {
			return
		}
		post := s.validation.ValidatePostConditions(ctx, res, opts)
		res.PostValidation = post
		for _, w := range post.Warnings {
			r.log(app.LogWarning, "%s", w)
		}
	}

	r.complete("pipeline complete")
}

func (r *pipelineRun) writeProperties(rows []*domain.ScheduleRow) bool {
	if !r.enter(app.StageWritingProperties, "writing schedule properties") {
		return false
	}
	w, err := r.s.writer.WriteBatch(r.ctx, rows, r.opts, r.sink)
	r.res.Write = w
	if err != nil {
		r.stageError(app.ErrKindWrite, "writing properties failed", err)
		return false
	}
	r.log(app.LogInfo, "wrote properties on %d nodes, %d skipped, %d failed", w.Success, w.Skipped, w.Failed)
	if w.Failed > 0 {
		msg := fmt.Sprintf("%d property writes failed", w.Failed)
		if !r.opts.ContinueOnError {
			r.fail(app.ErrKindWrite, msg, nil)
			return false
		}
		r.log(app.LogWarning, "%s", msg)
	}
	return true
}

func (r *pipelineRun) createSets(rows []*domain.ScheduleRow) (*domain.SelectionSetResult, bool) {
	if !r.enter(app.StageCreatingGroups, "creating selection sets") {
		return nil, false
	}
	sets, err := r.s.sets.CreateHierarchicalSets(r.ctx, rows, r.opts, r.sink)
	r.res.Sets = sets
	if err != nil {
		r.stageError(app.ErrKindGroup, "creating selection sets failed", err)
		return nil, false
	}
	r.log(app.LogInfo, "created %d selection sets in %d folders", sets.SetCount, sets.FolderCount)
	if n := len(sets.FailedSets); n > 0 {
		msg := fmt.Sprintf("%d selection sets failed", n)
		if !r.opts.ContinueOnError {
			r.fail(app.ErrKindGroup, msg, nil)
			return nil, false
		}
		r.log(app.LogWarning, "%s", msg)
	}
	return sets, true
}

func (r *pipelineRun) createTasks(rows []*domain.ScheduleRow, groups map[string]string) bool {
	if !r.enter(app.StageCreatingTasks, "creating tasks") {
		return false
	}
	tasks, err := r.s.tasks.CreateTasks(r.ctx, rows, groups, r.opts, r.sink)
	r.res.Tasks = tasks
	if err != nil {
		r.stageError(app.ErrKindTask, "creating tasks failed", err)
		return false
	}
	r.log(app.LogInfo, "created %d tasks, %d linked, %d unlinked", tasks.TaskCount, tasks.LinkedCount, tasks.UnlinkedCount)
	if n := len(tasks.FailedTasks); n > 0 {
		msg := fmt.Sprintf("%d tasks failed", n)
		if !r.opts.ContinueOnError {
			r.fail(app.ErrKindTask, msg, nil)
			return false
		}
		r.log(app.LogWarning, "%s", msg)
	}
	return true
}

// enter moves the run to stage after checking for cancellation.
func (r *pipelineRun) enter(stage app.PipelineStage, msg string) bool {
	if err := r.ctx.Err(); err != nil {
		r.cancel(err)
		return false
	}
	next, err := app.Transition(r.res.Stage, stage)
	if err != nil {
		r.fail(app.ErrKindInternal, "invalid stage transition", err)
		return false
	}
	r.res.Stage = next
	r.sink.Phase(progress.Phase{Stage: stage.Tag(), Percentage: stage.Percentage(), Message: msg})
	r.log(app.LogInfo, "%s", msg)
	r.s.cfg.logger.Debug("pipeline stage", "stage", stage)
	return true
}

// stageError ends the run after a stage returned err. Cancellation wins
// over the stage's own kind; sentinel-wrapped errors keep their kind.
func (r *pipelineRun) stageError(kind app.ErrorKind, msg string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.cancel(err)
		return
	}
	if k := app.ClassifyError(err); k != app.ErrKindInternal {
		kind = k
	}
	r.fail(kind, msg, err)
}

func (r *pipelineRun) fail(kind app.ErrorKind, msg string, err error) {
	stage := r.res.Stage
	pe := app.NewPipelineError(kind, stage, msg, err)
	r.res.Err = pe
	r.res.ErrorMessage = msg
	if err != nil {
		r.res.ErrorMessage = msg + ": " + err.Error()
	}
	r.res.Success = false
	if !stage.IsTerminal() {
		r.res.Stage = app.StageFailed
	}
	r.res.EndTime = r.s.cfg.clock.Now()
	r.sink.Phase(progress.Phase{Stage: stage.Tag(), Percentage: stage.Percentage(), Message: "failed: " + r.res.ErrorMessage})
	r.logAt(stage, app.LogError, "%s", r.res.ErrorMessage)
}

func (r *pipelineRun) cancel(err error) {
	stage := r.res.Stage
	if !stage.IsTerminal() {
		r.res.Stage = app.StageCancelled
	}
	r.res.Success = false
	r.res.Err = app.NewPipelineError(app.ErrKindCancelled, stage, "pipeline cancelled", err)
	r.res.ErrorMessage = "pipeline cancelled"
	r.res.EndTime = r.s.cfg.clock.Now()
	r.sink.Phase(progress.Phase{Stage: stage.Tag(), Percentage: stage.Percentage(), Message: "cancelled"})
	r.logAt(stage, app.LogWarning, "pipeline cancelled during %s", stage)
}

func (r *pipelineRun) complete(msg string) {
	next, err := app.Transition(r.res.Stage, app.StageComplete)
	if err != nil {
		r.fail(app.ErrKindInternal, "invalid stage transition", err)
		return
	}
	r.res.Stage = next
	r.res.Success = true
	r.res.EndTime = r.s.cfg.clock.Now()
	r.sink.Phase(progress.Phase{Stage: progress.StageComplete, Percentage: 100, Message: msg})
	r.log(app.LogInfo, "%s in %s", msg, r.res.Elapsed())
}

func (r *pipelineRun) log(level app.LogLevel, format string, args ...any) {
	r.logAt(r.res.Stage, level, format, args...)
}

func (r *pipelineRun) logAt(stage app.PipelineStage, level app.LogLevel, format string, args ...any) {
	r.res.Log(r.s.cfg.clock.Now(), level, stage.Tag(), format, args...)
}

func (s *pipelineService) ClearExistingData(ctx context.Context, opts app.PipelineOptions) (*app.ClearReport, error) {
	if s.session == nil {
		return nil, errNoActiveDocument
	}
	rep := &app.ClearReport{}
	n, err := s.sets.ClearSelectionSets(ctx, opts.SelectionSetRootFolder)
	if err != nil {
		return rep, err
	}
	rep.SelectionItems = n
	if s.session.HasTasks() {
		n, err := s.tasks.ClearTasks(ctx, opts.TaskRootFolder)
		if err != nil {
			return rep, err
		}
		rep.Tasks = n
	}
	s.cfg.logger.Info("cleared existing data", "selection_items", rep.SelectionItems, "tasks", rep.Tasks)
	return rep, nil
}

func (s *pipelineService) PreviewCsv(ctx context.Context, path string, maxRows int) (*schedule.Preview, error) {
	return s.parser.Preview(ctx, path, maxRows)
}

func (s *pipelineService) ValidateCsv(ctx context.Context, path string) *app.ValidationResult {
	return s.parser.Validate(ctx, path)
}

// TestMatching parses path and matches every row without writing anything
// to the document.
func (s *pipelineService) TestMatching(ctx context.Context, path string, opts app.PipelineOptions) (*app.MatchPreview, error) {
	if s.session == nil {
		return nil, errNoActiveDocument
	}
	rows, err := s.parser.ParseFile(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	m, err := s.matcher.MatchAll(ctx, rows, opts, nil)
	if err != nil {
		return nil, err
	}
	misses := m.UnmatchedIDs
	if len(misses) > maxSampleMisses {
		misses = misses[:maxSampleMisses]
	}
	return &app.MatchPreview{
		Rows:         len(rows),
		Match:        m,
		SampleMisses: append([]string(nil), misses...),
	}, nil
}

func (s *pipelineService) ValidateEnvironment(ctx context.Context) *app.EnvironmentReport {
	return s.validation.ValidateEnvironment(ctx)
}

// ClearAllCaches drops the matcher and identity caches, as needed after
// the model document changes.
func (s *pipelineService) ClearAllCaches() {
	if s.matcher != nil {
		s.matcher.ClearCache()
	}
	if s.resolver != nil {
		s.resolver.ClearCache()
	}
}

var errNoActiveDocument = errors.New("no active document")
