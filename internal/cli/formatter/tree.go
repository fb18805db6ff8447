package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem is a single node in a tree display.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	Folder bool
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeGap    = "   "
)

// TreeFromPaths turns pre-order slash-delimited paths into tree items.
// detail supplies the badge for the path at the same index, if any.
func TreeFromPaths(paths []string, folders []bool, detail []string) []TreeItem {
	items := make([]TreeItem, len(paths))
	depth := make([]int, len(paths))
	for i, p := range paths {
		segs := strings.Split(p, "/")
		depth[i] = len(segs) - 1
		items[i] = TreeItem{Title: segs[len(segs)-1], Level: depth[i]}
		if i < len(folders) {
			items[i].Folder = folders[i]
		}
		if i < len(detail) {
			items[i].Detail = detail[i]
		}
	}
	for i := range items {
		items[i].IsLast = true
		for j := i + 1; j < len(items); j++ {
			if depth[j] < depth[i] {
				break
			}
			if depth[j] == depth[i] {
				items[i].IsLast = false
				break
			}
		}
	}
	return items
}

// RenderTree renders items as an indented tree using box-drawing
// connectors. Folders are bold and detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type line struct {
		content string
		badge   string
	}
	lines := make([]line, len(items))
	maxWidth := 0
	// open[l] is true while an ancestor at level l still has siblings below.
	var open []bool

	for idx, item := range items {
		var prefix strings.Builder
		if item.Level > 0 {
			for l := 1; l < item.Level; l++ {
				if l < len(open) && open[l] {
					prefix.WriteString(treePipe)
				} else {
					prefix.WriteString(treeGap)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}
		for len(open) <= item.Level {
			open = append(open, false)
		}
		open[item.Level] = !item.IsLast

		title := item.Title
		if item.Folder {
			title = Bold(title)
		}
		content := prefix.String() + title
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render("[ " + item.Detail + " ]")
		}
		if w := lipgloss.Width(content); w > maxWidth {
			maxWidth = w
		}
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.content)
		if l.badge != "" {
			b.WriteString(strings.Repeat(" ", maxWidth-lipgloss.Width(l.content)+2))
			b.WriteString(l.badge)
		}
		b.WriteString("\n")
	}
	return b.String()
}
