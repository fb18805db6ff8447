package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/cenkalti/backoff/v4"
)

const scheduleDateLayout = "2006-01-02"

var errNodeNotLocated = errors.New("node not found")

type propertyWriteService struct {
	props    repository.PropertyStore
	resolver *identity.Resolver
	cfg      serviceConfig
}

func NewPropertyWriteService(props repository.PropertyStore, resolver *identity.Resolver, opts ...Option) PropertyWriteService {
	return &propertyWriteService{
		props:    props,
		resolver: resolver,
		cfg:      newServiceConfig(opts),
	}
}

func (s *propertyWriteService) WriteBatch(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (result *domain.PropertyWriteResult, err error) {
	run := startUseCase(useCaseWriteProperties, s.cfg.observer, s.cfg.clock)
	result = &domain.PropertyWriteResult{Total: len(rows)}
	defer func() {
		run.set("total", result.Total)
		run.set("success", result.Success)
		run.set("skipped", result.Skipped)
		run.set("failed", result.Failed)
		run.finish(ctx, err)
	}()

	rep := newItemReporter(sink, progress.StagePropertyWrite, len(rows))
	for i, row := range rows {
		if checkpoint(i, opts.BatchSize) {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		if !row.IsMatched() {
			result.Skipped++
			rep.report(i, row.SyncID, false, "skipped: not matched")
			continue
		}

		writeErr := s.writeRow(ctx, row, opts)
		if writeErr == nil {
			result.Success++
			rep.report(i, row.SyncID, true, "")
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result.RecordFailure(row.SyncID, writeErr.Error())
		rep.report(i, row.SyncID, false, writeErr.Error())
		s.cfg.logger.Warn("property write failed", "sync_id", row.SyncID, "line", row.LineNumber, "error", writeErr)
		if !opts.ContinueOnError {
			return result, app.Wrapf(app.ErrWrite, writeErr, "writing properties for %s", row.SyncID)
		}
	}
	return result, nil
}

func (s *propertyWriteService) writeRow(ctx context.Context, row *domain.ScheduleRow, opts app.PipelineOptions) error {
	node, err := s.resolver.Locate(ctx, *row.MatchedNodeID)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.cfg.logger.Debug("matched node not located", "sync_id", row.SyncID, "error", err)
		return errNodeNotLocated
	}

	cat := ScheduleCategory(row, opts)
	attempt := 0
	err = backoff.RetryNotify(func() error {
		attempt++
		werr := s.props.WriteCategory(ctx, node.Key, cat)
		if werr == nil {
			return nil
		}
		if !s.cfg.isTransient(werr) {
			return backoff.Permanent(werr)
		}
		return werr
	}, retryPolicy(ctx, opts.RetryCount, opts.RetryDelay), func(werr error, delay time.Duration) {
		s.cfg.logger.Warn("transient property write failure, retrying",
			"sync_id", row.SyncID,
			"node", node.Key,
			"attempt", attempt,
			"delay", delay,
			"error", werr,
		)
	})
	if err == nil {
		return nil
	}
	if s.cfg.isTransient(err) {
		return fmt.Errorf("write failed after %d attempts: %w", attempt, err)
	}
	return err
}

func (s *propertyWriteService) ReadScheduleProperties(ctx context.Context, nodeKey int64, internalName string) (*domain.CustomCategory, error) {
	if internalName == "" {
		internalName = app.DefaultOptions().PropertyCategoryInternalName
	}
	cat, err := s.props.ReadCategory(ctx, nodeKey, internalName)
	if err != nil {
		return nil, fmt.Errorf("reading %s on node %d: %w", internalName, nodeKey, err)
	}
	return cat, nil
}

// ScheduleCategory builds the property category written for row. Empty
// optional values are left out; custom columns follow in header order.
func ScheduleCategory(row *domain.ScheduleRow, opts app.PipelineOptions) domain.CustomCategory {
	cat := domain.CustomCategory{
		DisplayName:  opts.PropertyCategoryName,
		InternalName: opts.PropertyCategoryInternalName,
	}
	add := func(name string, v domain.PropertyValue) {
		cat.Properties = append(cat.Properties, domain.CustomProperty{
			InternalName: name + "_Internal",
			DisplayName:  name,
			Value:        v,
		})
	}
	addDate := func(name string, t *time.Time) {
		if t != nil {
			add(name, domain.StringValue(t.Format(scheduleDateLayout)))
		}
	}
	addString := func(name, v string) {
		if v != "" {
			add(name, domain.StringValue(v))
		}
	}

	add("SyncID", domain.StringValue(row.SyncID))
	addString("TaskName", row.TaskName)
	addDate("PlannedStart", row.PlannedStart)
	addDate("PlannedEnd", row.PlannedEnd)
	addDate("ActualStart", row.ActualStart)
	addDate("ActualEnd", row.ActualEnd)
	if row.DurationDays > 0 {
		add("Duration", domain.IntValue(row.DurationDays))
	}
	if row.Cost != nil {
		add("Cost", domain.FloatValue(*row.Cost))
	}
	if p := domain.Float64FromPtrWithDefault(0, row.ProgressPercent); p > 0 {
		add("Progress", domain.FloatValue(p))
	}
	addString("TaskType", string(row.TaskType))
	addString("SetLevel", row.SetLevel)
	addString("ParentSet", row.ParentSet)

	for _, k := range row.CustomPropertyKeys() {
		v, _ := row.CustomProperty(k)
		cat.Properties = append(cat.Properties, domain.CustomProperty{
			InternalName: "Custom_" + k + "_Internal",
			DisplayName:  k,
			Value:        domain.StringValue(v),
		})
	}
	return cat
}
