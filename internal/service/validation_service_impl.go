package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/schedule"
	"github.com/dustin/go-humanize"
)

// largeFileThreshold is the schedule size above which pre-validation warns.
const largeFileThreshold = 10 * 1024 * 1024

type validationService struct {
	session *repository.ModelSession
	parser  *schedule.Parser
	cfg     serviceConfig
}

func NewValidationService(session *repository.ModelSession, parser *schedule.Parser, opts ...Option) ValidationService {
	return &validationService{
		session: session,
		parser:  parser,
		cfg:     newServiceConfig(opts),
	}
}

func (s *validationService) ValidatePreConditions(ctx context.Context, csvPath string, opts app.PipelineOptions) *app.ValidationResult {
	res := &app.ValidationResult{}

	s.checkDocument(ctx, res)
	for _, e := range opts.ValidationErrors() {
		res.AddError("invalid option %v", e)
	}
	s.checkScheduleFile(ctx, csvPath, res)

	if opts.EnableTaskCreation && s.session != nil && !s.session.HasTasks() {
		res.AddWarning("task creation is enabled but the document has no task list")
	}
	return res
}

func (s *validationService) checkDocument(ctx context.Context, res *app.ValidationResult) {
	if s.session == nil || s.session.Tree == nil {
		res.AddError("no active document")
		return
	}
	counts, err := s.session.Tree.CountNodes(ctx)
	if err != nil {
		res.AddError("reading model document: %v", err)
		return
	}
	if counts.Models == 0 {
		res.AddError("no models loaded")
		return
	}
	res.AddInfo("%d models, %s nodes loaded", counts.Models, humanize.Comma(int64(counts.Nodes)))
}

func (s *validationService) checkScheduleFile(ctx context.Context, path string, res *app.ValidationResult) {
	if strings.TrimSpace(path) == "" {
		res.AddError("no schedule file given")
		return
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.AddError("schedule file not found: %s", path)
		return
	case err != nil:
		res.AddError("reading schedule file: %v", err)
		return
	case info.IsDir():
		res.AddError("schedule path is a directory: %s", path)
		return
	case info.Size() == 0:
		res.AddError("schedule file is empty: %s", path)
		return
	case info.Size() > largeFileThreshold:
		res.AddWarning("schedule file is large (%s), parsing may be slow", humanize.Bytes(uint64(info.Size())))
	}

	doc, err := s.parser.Read(ctx, path, nil)
	if err != nil {
		res.AddError("%v", err)
		return
	}
	if doc.Stats.Failed > 0 {
		res.AddWarning("%d rows could not be parsed", doc.Stats.Failed)
	}
	valid := 0
	for _, r := range doc.Rows {
		if r.IsValid() {
			valid++
		}
	}
	if valid == 0 {
		res.AddError("no valid schedule rows")
		return
	}
	res.AddInfo("%d rows, %d valid", len(doc.Rows), valid)
	schedule.CheckRows(doc.Rows, res)
}

func (s *validationService) ValidatePostConditions(ctx context.Context, result *app.PipelineResult, opts app.PipelineOptions) *app.ValidationResult {
	res := &app.ValidationResult{}
	if result == nil {
		return res
	}

	if m := result.Match; m != nil {
		if rate := m.MatchRate(); rate < opts.MinMatchSuccessRate {
			res.AddWarning("match rate %.1f%% is below the minimum %.1f%%", rate, opts.MinMatchSuccessRate)
		}
	}
	if w := result.Write; w != nil && w.Failed > 0 {
		res.AddWarning("%d of %d property writes failed", w.Failed, w.Total)
	}
	if sets := result.Sets; sets != nil && len(sets.FailedSets) > 0 {
		res.AddWarning("%d selection sets failed", len(sets.FailedSets))
	}
	if t := result.Tasks; t != nil {
		if len(t.FailedTasks) > 0 {
			res.AddWarning("%d tasks failed", len(t.FailedTasks))
		}
		if t.UnlinkedCount > 0 {
			res.AddWarning("%d tasks are not linked to model objects", t.UnlinkedCount)
		}
	}
	if opts.SlowRunThreshold > 0 && !result.StartTime.IsZero() {
		if elapsed := s.cfg.clock.Since(result.StartTime); elapsed > opts.SlowRunThreshold {
			res.AddWarning("run took %s, longer than %s", elapsed.Round(1e6), opts.SlowRunThreshold)
		}
	}
	return res
}

func (s *validationService) ValidateEnvironment(ctx context.Context) *app.EnvironmentReport {
	rep := &app.EnvironmentReport{Validation: &app.ValidationResult{}}
	v := rep.Validation
	if s.session == nil || s.session.Tree == nil {
		v.AddError("no active document")
		return rep
	}

	counts, err := s.session.Tree.CountNodes(ctx)
	if err != nil {
		v.AddError("reading model document: %v", err)
		return rep
	}
	rep.Models, rep.Nodes, rep.GeometryNodes = counts.Models, counts.Nodes, counts.WithGeometry
	if counts.Models == 0 {
		v.AddError("no models loaded")
	}

	if s.session.Selections != nil {
		if n, err := s.session.Selections.Count(ctx); err != nil {
			v.AddError("counting selection items: %v", err)
		} else {
			rep.SelectionItems = n
		}
	}
	if !s.session.HasTasks() {
		v.AddWarning("document has no task list")
	} else if n, err := s.session.Tasks.Count(ctx); err != nil {
		v.AddError("counting tasks: %v", err)
	} else {
		rep.Tasks = n
	}
	return rep
}
