package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/domain"
)

// FormatTaskList renders tasks as a table ordered as stored.
func FormatTaskList(tasks []domain.TaskSummary) string {
	if len(tasks) == 0 {
		return Dim("No tasks.")
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.Path,
			t.SyncID,
			string(t.TaskType),
			DateOrDash(t.PlannedStart),
			DateOrDash(t.PlannedEnd),
			YesNo(t.Linked),
			Count(t.MemberCount),
		})
	}
	return RenderTable([]string{"TASK", "SYNC ID", "TYPE", "START", "END", "LINKED", "OBJECTS"}, rows)
}

// FormatTask renders one task in detail.
func FormatTask(t *domain.TaskSummary) string {
	return RenderBox(t.Name, RenderFields([]Field{
		{"Path", t.Path},
		{"Sync id", t.SyncID},
		{"Type", string(t.TaskType)},
		{"Planned start", DateOrDash(t.PlannedStart)},
		{"Planned end", DateOrDash(t.PlannedEnd)},
		{"Linked", YesNo(t.Linked)},
		{"Objects", Count(t.MemberCount)},
	}))
}

// FormatTaskLinkSummary renders linked and unlinked task counts.
func FormatTaskLinkSummary(s *domain.TaskLinkSummary) string {
	share := 0.0
	if s.Total > 0 {
		share = float64(s.Linked) / float64(s.Total)
	}
	return RenderBox("Tasks", RenderFields([]Field{
		{"Total", Count(s.Total)},
		{"Linked", Count(s.Linked)},
		{"Unlinked", Count(s.Unlinked)},
		{"Coverage", RenderProgress(share, 20)},
	}))
}

// FormatSelectionTree renders folders and sets under a root as a tree.
func FormatSelectionTree(entries []domain.SelectionEntry) string {
	if len(entries) == 0 {
		return Dim("No selection sets.")
	}
	paths := make([]string, len(entries))
	folders := make([]bool, len(entries))
	details := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
		folders[i] = e.Kind == domain.SelectionFolder
		if !folders[i] {
			details[i] = fmt.Sprintf("%s objects", Count(e.MemberCount))
		}
	}
	return RenderTree(TreeFromPaths(paths, folders, details))
}

// FormatCategory renders a custom property category as a table.
func FormatCategory(nodeKey int64, cat *domain.CustomCategory) string {
	rows := make([][]string, 0, len(cat.Properties))
	for _, p := range cat.Properties {
		rows = append(rows, []string{p.DisplayName, p.Value.Raw, Dim(string(p.Value.Type))})
	}
	title := fmt.Sprintf("%s on node %d", cat.DisplayName, nodeKey)
	return RenderBox(title, strings.TrimRight(RenderTable([]string{"PROPERTY", "VALUE", "TYPE"}, rows), "\n"))
}
