package service

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/progress"
)

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s: %w", msg, app.ErrValidation)
}

// itemReporter emits per-row progress for one stage.
type itemReporter struct {
	sink  progress.Sink
	stage progress.Stage
	total int
}

func newItemReporter(sink progress.Sink, stage progress.Stage, total int) itemReporter {
	return itemReporter{sink: progress.OrNoop(sink), stage: stage, total: total}
}

// report emits the event for the row at index. reason is set on failures.
func (r itemReporter) report(index int, item string, ok bool, reason string) {
	r.sink.Item(progress.Item{
		Stage:        r.stage,
		CurrentIndex: index + 1,
		TotalCount:   r.total,
		CurrentItem:  item,
		Success:      ok,
		Err:          reason,
	})
}

// matchedRows keeps rows with a resolved identity, in order.
func matchedRows(rows []*domain.ScheduleRow) []*domain.ScheduleRow {
	out := make([]*domain.ScheduleRow, 0, len(rows))
	for _, r := range rows {
		if r.IsMatched() {
			out = append(out, r)
		}
	}
	return out
}

// joinPath joins folder segments with "/".
func joinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// checkpoint reports whether a cancellation check is due before row i.
func checkpoint(i, interval int) bool {
	if interval <= 0 {
		interval = 1
	}
	return i%interval == 0
}
