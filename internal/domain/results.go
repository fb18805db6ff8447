package domain

import "time"

// MatchResult aggregates matcher outcomes over one batch of rows.
type MatchResult struct {
	Total        int
	Matched      int
	NotFound     int
	Errors       int
	UnmatchedIDs []string
	CacheUsed    bool
	Elapsed      time.Duration
}

// MatchRate is the matched percentage in [0, 100]; 0 for an empty batch.
func (r *MatchResult) MatchRate() float64 {
	if r == nil || r.Total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(r.Total) * 100
}

// Record tallies one processed row.
func (r *MatchResult) Record(row *ScheduleRow) {
	r.Total++
	switch row.MatchStatus {
	case MatchMatched:
		r.Matched++
	case MatchNotFound:
		r.NotFound++
		r.UnmatchedIDs = append(r.UnmatchedIDs, row.SyncID)
	case MatchError:
		r.Errors++
		r.UnmatchedIDs = append(r.UnmatchedIDs, row.SyncID)
	}
}

type FailedItem struct {
	SyncID string
	Reason string
}

type PropertyWriteResult struct {
	Total       int
	Success     int
	Skipped     int
	Failed      int
	FailedItems []FailedItem
}

// RecordFailure tallies one failed write.
func (r *PropertyWriteResult) RecordFailure(syncID, reason string) {
	r.Failed++
	r.FailedItems = append(r.FailedItems, FailedItem{SyncID: syncID, Reason: reason})
}

// GroupBucket is one grouping key with its rows, plus the folder path and
// set name materialized for it.
type GroupBucket struct {
	Key        string
	Rows       []*ScheduleRow
	FolderPath string
	SetName    string
	ItemCount  int
}

type CreatedSet struct {
	Name       string
	FolderPath string
	ItemCount  int
}

type FailedSet struct {
	Key    string
	Reason string
}

type SelectionSetResult struct {
	SetCount       int
	FolderCount    int
	TotalItemCount int
	CreatedSets    []CreatedSet
	FailedSets     []FailedSet
	Buckets        []GroupBucket
	// SyncIDToGroup maps a row's sync id to the name of the set it landed in.
	SyncIDToGroup map[string]string
}

func NewSelectionSetResult() *SelectionSetResult {
	return &SelectionSetResult{SyncIDToGroup: make(map[string]string)}
}

// TaskSpec describes the task created for one schedule row.
type TaskSpec struct {
	Name         string
	SyncID       string
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	ActualStart  *time.Time
	ActualEnd    *time.Time
	TaskType     TaskType
	LinkGroup    string
	LinkNode     *NodeIdentity
}

type CreatedTask struct {
	Name        string
	SyncID      string
	FolderPath  string
	MemberCount int
}

type TaskResult struct {
	TaskCount     int
	FolderCount   int
	LinkedCount   int
	UnlinkedCount int
	CreatedTasks  []CreatedTask
	FailedTasks   []FailedItem
}

// TaskLinkSummary counts task linkage over the live task tree.
type TaskLinkSummary struct {
	Total    int
	Linked   int
	Unlinked int
}
