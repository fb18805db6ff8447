package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTaskTree() *TaskTree {
	root := &TaskNode{ID: "r", Kind: TaskNodeFolder, Name: "AWP 4D Tasks"}
	zone := root.Add(&TaskNode{ID: "z", Kind: TaskNodeFolder, Name: "ZoneA"})
	zone.Add(&TaskNode{ID: "t1", Kind: TaskNodeTask, Name: "Wall", SyncID: "A1", Members: []int64{1, 2}})
	root.Add(&TaskNode{ID: "t2", Kind: TaskNodeTask, Name: "Door", SyncID: "A2"})
	other := &TaskNode{ID: "o", Kind: TaskNodeFolder, Name: "Manual"}
	return &TaskTree{Roots: []*TaskNode{root, other}}
}

func TestTaskTree_CloneIsIndependent(t *testing.T) {
	live := sampleTaskTree()
	cp := live.Clone()

	cp.Roots[0].Children[0].Children[0].Members[0] = 99
	cp.Roots[0].Name = "changed"

	assert.Equal(t, int64(1), live.Roots[0].Children[0].Children[0].Members[0])
	assert.Equal(t, "AWP 4D Tasks", live.Roots[0].Name)
}

func TestTaskTree_RemoveRootCountsDescendants(t *testing.T) {
	tree := sampleTaskTree()
	removed := tree.RemoveRoot("AWP 4D Tasks")
	assert.Equal(t, 4, removed)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "Manual", tree.Roots[0].Name)
	assert.Equal(t, 0, tree.RemoveRoot("missing"))
}

func TestTaskTree_SummariesSkipFolders(t *testing.T) {
	got := sampleTaskTree().Summaries()
	require.Len(t, got, 2)
	assert.Equal(t, "AWP 4D Tasks/ZoneA/Wall", got[0].Path)
	assert.True(t, got[0].Linked)
	assert.Equal(t, 2, got[0].MemberCount)
	assert.Equal(t, "AWP 4D Tasks/Door", got[1].Path)
	assert.False(t, got[1].Linked)
}
