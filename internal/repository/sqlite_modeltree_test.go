package repository_test

import (
	"context"
	"testing"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(nodes []domain.ModelNode) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Key)
	}
	return out
}

func TestModelTree_RootsChildrenAndNode(t *testing.T) {
	database := testutil.NewTestDB(t)
	tree := repository.NewSQLiteModelTree(database)
	ctx := context.Background()

	b := testutil.NewTreeBuilder(t, tree)
	b.Model("a3f0c1de-0000-4000-8000-000000000001", "site.nwc")
	root := b.Root("Site")
	floor := b.Add(root, "Level 1", testutil.WithClassName("Layer"))
	wall := b.Add(floor, "Wall", testutil.WithInstanceID("W-1"), testutil.WithHidden())
	door := b.Add(floor, "Door", testutil.WithoutGeometry())

	models, err := tree.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "site.nwc", models[0].FileName)

	roots, err := tree.Roots(ctx, models[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{root.Key}, keysOf(roots))
	assert.True(t, roots[0].IsRoot())

	children, err := tree.Children(ctx, floor.Key)
	require.NoError(t, err)
	assert.Equal(t, []int64{wall.Key, door.Key}, keysOf(children))
	assert.Equal(t, 0, children[0].Position)
	assert.Equal(t, 1, children[1].Position)

	got, err := tree.Node(ctx, wall.Key)
	require.NoError(t, err)
	assert.Equal(t, "W-1", got.InstanceID)
	assert.True(t, got.Hidden)
	assert.True(t, got.HasGeometry)
	require.NotNil(t, got.ParentKey)
	assert.Equal(t, floor.Key, *got.ParentKey)

	_, err = tree.Node(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	counts, err := tree.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.NodeCounts{Models: 1, Nodes: 4, WithGeometry: 3}, counts)
}

func TestModelTree_PropertiesGroupedByCategory(t *testing.T) {
	database := testutil.NewTestDB(t)
	tree := repository.NewSQLiteModelTree(database)
	ctx := context.Background()

	b := testutil.NewTreeBuilder(t, tree)
	n := b.Root("Wall",
		testutil.WithProperty("Element", "Id", "101"),
		testutil.WithProperty("Item", "Name", "Basic Wall"),
		testutil.WithProperty("Element", "Category", "Walls"),
	)

	cats, err := tree.Properties(ctx, n.Key)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Element", cats[0].Name)
	require.Len(t, cats[0].Properties, 2)
	assert.Equal(t, "Walls", cats[0].Properties[1].Value)
	assert.Equal(t, "Item", cats[1].Name)

	v, ok := domain.FindProperty(cats, "element", "ID")
	assert.True(t, ok)
	assert.Equal(t, "101", v)
}

func TestModelTree_Search(t *testing.T) {
	database := testutil.NewTestDB(t)
	tree := repository.NewSQLiteModelTree(database)
	ctx := context.Background()

	b := testutil.NewTreeBuilder(t, tree)
	wall := b.Root("Wall", testutil.WithElementID("W-100"))
	slab := b.Root("Slab", testutil.WithElementID("S-200"))
	beam := b.Root("Beam", testutil.WithInternalProperty("Elem", "LcElement", "Ident", "LcId", "B-300"))

	tests := []struct {
		name string
		cond domain.PropertyCondition
		want []int64
	}{
		{"exact", domain.PropertyCondition{Category: "Element", Name: "Id", Value: "W-100"}, []int64{wall.Key}},
		{"case sensitive miss", domain.PropertyCondition{Category: "Element", Name: "Id", Value: "w-100"}, nil},
		{"ignore case", domain.PropertyCondition{Category: "Element", Name: "Id", Value: "w-100", IgnoreCase: true}, []int64{wall.Key}},
		{"ignore case trims", domain.PropertyCondition{Category: "Element", Name: "Id", Value: "  W-100 ", IgnoreCase: true}, []int64{wall.Key}},
		{"category and name ignore case", domain.PropertyCondition{Category: "element", Name: "ID", Value: "S-200"}, []int64{slab.Key}},
		{"internal names", domain.PropertyCondition{Category: "LcElement", Name: "LcId", Value: "B-300"}, []int64{beam.Key}},
		{"no match", domain.PropertyCondition{Category: "Element", Name: "Id", Value: "nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.Search(ctx, tt.cond)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, keysOf(got))
		})
	}
}

func TestModelTree_SearchOrdersAmbiguousMatches(t *testing.T) {
	database := testutil.NewTestDB(t)
	tree := repository.NewSQLiteModelTree(database)
	ctx := context.Background()

	b := testutil.NewTreeBuilder(t, tree)
	noID := b.Root("A", testutil.WithElementID("DUP"))
	later := b.Root("B", testutil.WithElementID("DUP"), testutil.WithInstanceID("bbb"))
	earlier := b.Root("C", testutil.WithElementID("DUP"), testutil.WithInstanceID("aaa"))
	noID2 := b.Root("D", testutil.WithElementID("DUP"))

	got, err := tree.Search(ctx, domain.PropertyCondition{Category: "Element", Name: "Id", Value: "DUP"})
	require.NoError(t, err)
	assert.Equal(t, []int64{earlier.Key, later.Key, noID.Key, noID2.Key}, keysOf(got))

	sorted := append([]domain.ModelNode(nil), got...)
	// Reverse, then sort in Go; both orders must agree.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	domain.SortMatchCandidates(sorted)
	assert.Equal(t, keysOf(got), keysOf(sorted))
}

func TestModelTree_DeleteModelsCascades(t *testing.T) {
	database := testutil.NewTestDB(t)
	tree := repository.NewSQLiteModelTree(database)
	ctx := context.Background()

	b := testutil.NewTreeBuilder(t, tree)
	b.Model("", "one.nwc")
	root := b.Root("Root", testutil.WithElementID("1"))
	b.Add(root, "Child", testutil.WithElementID("2"))
	b.Model("", "two.nwc")
	b.Root("Other")

	n, err := tree.DeleteModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := tree.CountNodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Nodes)

	var props int
	require.NoError(t, database.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_properties`).Scan(&props))
	assert.Zero(t, props)
}
