package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// Use-case names reported to observers.
const (
	useCaseMatchAll            = "match_all"
	useCaseWriteProperties     = "write_properties"
	useCaseCreateSelectionSets = "create_selection_sets"
	useCaseCreateTasks         = "create_tasks"
	useCasePipelineRun         = "pipeline_run"
	useCaseImportModel         = "import_model"
)

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes service use-case events to the provided writer.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	// Fields are emitted in key order.
	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, event.Fields[k])
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "service_use_case", attrs...)
}

// RecordingObserver keeps every event in memory.
type RecordingObserver struct {
	Events []UseCaseEvent
}

func (o *RecordingObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.Events = append(o.Events, event)
}

// Named returns the recorded events with the given use-case name.
func (o *RecordingObserver) Named(name string) []UseCaseEvent {
	var out []UseCaseEvent
	for _, e := range o.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

// useCaseRun times one use case and reports it on finish.
type useCaseRun struct {
	name     string
	observer UseCaseObserver
	clock    clockwork.Clock
	started  time.Time
	fields   map[string]any
}

func startUseCase(name string, observer UseCaseObserver, clock clockwork.Clock) *useCaseRun {
	return &useCaseRun{
		name:     name,
		observer: observer,
		clock:    clock,
		started:  clock.Now(),
		fields:   make(map[string]any),
	}
}

func (u *useCaseRun) set(key string, value any) {
	u.fields[key] = value
}

func (u *useCaseRun) finish(ctx context.Context, err error) {
	u.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      u.name,
		StartedAt: u.started,
		Duration:  u.clock.Since(u.started),
		Success:   err == nil,
		Err:       err,
		Fields:    u.fields,
	})
}
