package domain

import (
	"strings"
	"time"
)

// TaskNode is a folder or a simulation task in the task tree.
type TaskNode struct {
	ID       string
	Kind     TaskNodeKind
	Name     string
	SyncID   string
	TaskType TaskType

	PlannedStart *time.Time
	PlannedEnd   *time.Time
	ActualStart  *time.Time
	ActualEnd    *time.Time

	Members  []int64
	Children []*TaskNode
}

func (n *TaskNode) IsFolder() bool {
	return n.Kind == TaskNodeFolder
}

func (n *TaskNode) Linked() bool {
	return len(n.Members) > 0
}

// Add appends child and returns it.
func (n *TaskNode) Add(child *TaskNode) *TaskNode {
	n.Children = append(n.Children, child)
	return child
}

// ChildFolder returns the direct child folder named name, if any.
func (n *TaskNode) ChildFolder(name string) *TaskNode {
	for _, c := range n.Children {
		if c.IsFolder() && c.Name == name {
			return c
		}
	}
	return nil
}

// Clone deep-copies the subtree rooted at n.
func (n *TaskNode) Clone() *TaskNode {
	cp := *n
	cp.Members = append([]int64(nil), n.Members...)
	cp.PlannedStart = cloneTime(n.PlannedStart)
	cp.PlannedEnd = cloneTime(n.PlannedEnd)
	cp.ActualStart = cloneTime(n.ActualStart)
	cp.ActualEnd = cloneTime(n.ActualEnd)
	cp.Children = make([]*TaskNode, 0, len(n.Children))
	for _, c := range n.Children {
		cp.Children = append(cp.Children, c.Clone())
	}
	return &cp
}

// Size counts n and all of its descendants.
func (n *TaskNode) Size() int {
	count := 0
	stack := []*TaskNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, cur.Children...)
	}
	return count
}

// TaskTree is the document task list. The live tree is only ever replaced
// as a whole from a populated working copy.
type TaskTree struct {
	Roots []*TaskNode
}

// Clone returns an independent working copy.
func (t *TaskTree) Clone() *TaskTree {
	cp := &TaskTree{Roots: make([]*TaskNode, 0, len(t.Roots))}
	for _, r := range t.Roots {
		cp.Roots = append(cp.Roots, r.Clone())
	}
	return cp
}

// Root returns the top-level node named name, if any.
func (t *TaskTree) Root(name string) *TaskNode {
	for _, r := range t.Roots {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// RemoveRoot removes every top-level node named name and returns how many
// nodes were removed, descendants included.
func (t *TaskTree) RemoveRoot(name string) int {
	removed := 0
	kept := t.Roots[:0]
	for _, r := range t.Roots {
		if r.Name == name {
			removed += r.Size()
			continue
		}
		kept = append(kept, r)
	}
	t.Roots = kept
	return removed
}

// TaskVisit is passed to Walk callbacks.
type TaskVisit struct {
	Node   *TaskNode
	Path   string
	Parent *TaskNode
}

// Walk visits every node pre-order. Paths join names with "/".
func (t *TaskTree) Walk(fn func(v TaskVisit)) {
	type frame struct {
		node   *TaskNode
		parent *TaskNode
		prefix string
	}
	stack := make([]frame, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: t.Roots[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path := f.node.Name
		if f.prefix != "" {
			path = f.prefix + "/" + f.node.Name
		}
		fn(TaskVisit{Node: f.node, Path: path, Parent: f.parent})
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node, prefix: path})
		}
	}
}

// TaskSummary is a flattened, read-only view of one task.
type TaskSummary struct {
	Path         string
	Name         string
	SyncID       string
	TaskType     TaskType
	Linked       bool
	MemberCount  int
	PlannedStart *time.Time
	PlannedEnd   *time.Time
}

// Summaries flattens every non-folder node.
func (t *TaskTree) Summaries() []TaskSummary {
	var out []TaskSummary
	t.Walk(func(v TaskVisit) {
		if v.Node.IsFolder() {
			return
		}
		out = append(out, TaskSummary{
			Path:         v.Path,
			Name:         v.Node.Name,
			SyncID:       v.Node.SyncID,
			TaskType:     v.Node.TaskType,
			Linked:       v.Node.Linked(),
			MemberCount:  len(v.Node.Members),
			PlannedStart: v.Node.PlannedStart,
			PlannedEnd:   v.Node.PlannedEnd,
		})
	})
	return out
}

// SplitPath splits a slash or backslash delimited grouping path into
// trimmed, non-empty segments.
func SplitPath(p string) []string {
	fields := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	out := fields[:0]
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
