// Package grouping partitions schedule rows into named buckets.
package grouping

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/domain"
)

const (
	KeyUngrouped   = "Ungrouped"
	KeyUnnamed     = "Unnamed"
	KeyNoStartDate = "NoStartDate"
)

// KeyFunc maps a row to its bucket key.
type KeyFunc func(*domain.ScheduleRow) string

var keyFuncs = map[domain.GroupingStrategy]KeyFunc{
	domain.GroupByParentSet:    byParentSet,
	domain.GroupByZone:         byZone,
	domain.GroupByZoneAndLevel: byZoneAndLevel,
	domain.GroupByTaskName:     byTaskName,
	domain.GroupByStartWeek:    byStartWeek,
	domain.GroupByTaskType:     byTaskType,
	domain.GroupNone:           bySyncID,
}

// KeyFor returns the key function of a strategy.
func KeyFor(s domain.GroupingStrategy) (KeyFunc, error) {
	fn, ok := keyFuncs[s]
	if !ok {
		return nil, fmt.Errorf("unknown grouping strategy %q", s)
	}
	return fn, nil
}

// Bucket groups rows by strategy. Buckets and the rows within them keep
// first-seen order, and every row lands in exactly one bucket.
func Bucket(rows []*domain.ScheduleRow, s domain.GroupingStrategy) ([]domain.GroupBucket, error) {
	fn, err := KeyFor(s)
	if err != nil {
		return nil, err
	}
	return BucketBy(rows, fn), nil
}

func BucketBy(rows []*domain.ScheduleRow, fn KeyFunc) []domain.GroupBucket {
	index := make(map[string]int)
	var buckets []domain.GroupBucket
	for _, r := range rows {
		key := fn(r)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, domain.GroupBucket{Key: key})
		}
		buckets[i].Rows = append(buckets[i].Rows, r)
	}
	return buckets
}

// pathStrategies produce keys that carry a ParentSet path.
var pathStrategies = map[domain.GroupingStrategy]bool{
	domain.GroupByParentSet:    true,
	domain.GroupByZone:         true,
	domain.GroupByZoneAndLevel: true,
}

// FolderSegments returns the folder path segments for a bucket key. Keys of
// the path strategies nest; any other key is a single segment, kept whole
// even when it contains a slash. The last segment names the set itself.
func FolderSegments(s domain.GroupingStrategy, key string) []string {
	if !pathStrategies[s] {
		if k := strings.TrimSpace(key); k != "" {
			return []string{k}
		}
		return []string{KeyUngrouped}
	}
	segs := domain.SplitPath(key)
	if len(segs) == 0 {
		return []string{KeyUngrouped}
	}
	return segs
}

func byParentSet(r *domain.ScheduleRow) string {
	if s := strings.TrimSpace(r.ParentSet); s != "" {
		return s
	}
	return KeyUngrouped
}

func byZone(r *domain.ScheduleRow) string {
	segs := domain.SplitPath(r.ParentSet)
	if len(segs) == 0 {
		return KeyUngrouped
	}
	return segs[0]
}

func byZoneAndLevel(r *domain.ScheduleRow) string {
	segs := domain.SplitPath(r.ParentSet)
	switch len(segs) {
	case 0:
		return KeyUngrouped
	case 1:
		return segs[0]
	}
	return segs[0] + "/" + segs[1]
}

func byTaskName(r *domain.ScheduleRow) string {
	if s := strings.TrimSpace(r.TaskName); s != "" {
		return s
	}
	return KeyUnnamed
}

func byStartWeek(r *domain.ScheduleRow) string {
	if r.PlannedStart == nil {
		return KeyNoStartDate
	}
	year, week := r.PlannedStart.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func byTaskType(r *domain.ScheduleRow) string {
	if r.TaskType == "" {
		return string(domain.TaskConstruct)
	}
	return string(r.TaskType)
}

func bySyncID(r *domain.ScheduleRow) string {
	return r.SyncID
}
