package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTree is a minimal in-memory Tree.
type memTree struct {
	models   []domain.Model
	nodes    map[int64]*domain.ModelNode
	props    map[int64][]domain.PropertyCategory
	nextKey  int64
	propErr  error
	propHits int
}

func newMemTree(models ...domain.Model) *memTree {
	return &memTree{
		models: models,
		nodes:  make(map[int64]*domain.ModelNode),
		props:  make(map[int64][]domain.PropertyCategory),
	}
}

// add appends a node under parent (or as a root of model when parent is 0).
func (t *memTree) add(modelID string, parent int64, name, instanceID string) int64 {
	t.nextKey++
	n := &domain.ModelNode{Key: t.nextKey, ModelID: modelID, DisplayName: name, InstanceID: instanceID}
	if parent != 0 {
		p := parent
		n.ParentKey = &p
		n.Position = len(t.childrenOf(&p))
	} else {
		n.Position = len(t.childrenOf(nil))
	}
	n.Ordinal = int(t.nextKey - 1)
	t.nodes[n.Key] = n
	return n.Key
}

func (t *memTree) childrenOf(parent *int64) []domain.ModelNode {
	var out []domain.ModelNode
	for _, n := range t.nodes {
		switch {
		case parent == nil && n.ParentKey == nil:
			out = append(out, *n)
		case parent != nil && n.ParentKey != nil && *n.ParentKey == *parent:
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (t *memTree) Models(context.Context) ([]domain.Model, error) { return t.models, nil }

func (t *memTree) Roots(_ context.Context, modelID string) ([]domain.ModelNode, error) {
	var out []domain.ModelNode
	for _, n := range t.childrenOf(nil) {
		if n.ModelID == modelID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *memTree) Children(_ context.Context, key int64) ([]domain.ModelNode, error) {
	return t.childrenOf(&key), nil
}

func (t *memTree) Node(_ context.Context, key int64) (*domain.ModelNode, error) {
	n, ok := t.nodes[key]
	if !ok {
		return nil, fmt.Errorf("node %d: missing", key)
	}
	cp := *n
	return &cp, nil
}

func (t *memTree) Properties(_ context.Context, key int64) ([]domain.PropertyCategory, error) {
	t.propHits++
	if t.propErr != nil {
		return nil, t.propErr
	}
	return t.props[key], nil
}

func (t *memTree) node(key int64) *domain.ModelNode {
	cp := *t.nodes[key]
	return &cp
}

var modelA = domain.Model{ID: "m1", SourceGUID: "a3f0c1de-0000-4000-8000-000000000001", FileName: "site.nwd"}

func floorTree() (*memTree, int64, int64) {
	tree := newMemTree(modelA)
	root := tree.add("m1", 0, "Root", "")
	floor := tree.add("m1", root, "Floor1", "")
	wall := tree.add("m1", floor, "Wall", "")
	door := tree.add("m1", floor, "Door", "")
	return tree, wall, door
}

func TestResolve_HierarchyIdentitiesAreDistinctAndReproducible(t *testing.T) {
	ctx := context.Background()
	tree, wall, door := floorTree()

	path, err := PathOf(ctx, tree, tree.node(wall))
	require.NoError(t, err)
	assert.Equal(t, "Root>Floor1>Wall", path)

	first := NewResolver(tree)
	wallID := first.Resolve(ctx, tree.node(wall), "")
	doorID := first.Resolve(ctx, tree.node(door), "")
	assert.NotEqual(t, wallID, doorID)
	assert.False(t, wallID.IsZero())

	second := NewResolver(tree)
	assert.Equal(t, wallID, second.Resolve(ctx, tree.node(wall), ""))
	assert.Equal(t, doorID, second.Resolve(ctx, tree.node(door), ""))

	assert.Equal(t, hash(modelA.SourceGUID+"|Root>Floor1>Wall"), wallID)
	assert.Equal(t, 2, first.Stats().BySource[domain.IdentityHierarchy])
}

func TestResolve_SameNamedSiblingsGetDistinctIdentities(t *testing.T) {
	ctx := context.Background()
	tree := newMemTree(modelA)
	root := tree.add("m1", 0, "Root", "")
	floor := tree.add("m1", root, "Floor1", "")
	w1 := tree.add("m1", floor, "Wall", "")
	w2 := tree.add("m1", floor, "Wall", "")
	door := tree.add("m1", floor, "Door", "")
	taken := tree.add("m1", floor, "Wall[1]", "")

	tests := []struct {
		key  int64
		want string
	}{
		{w1, "Root>Floor1>Wall[2]"},
		{w2, "Root>Floor1>Wall[3]"},
		{door, "Root>Floor1>Door"},
		{taken, "Root>Floor1>Wall[1]"},
	}
	for _, tt := range tests {
		p, err := PathOf(ctx, tree, tree.node(tt.key))
		require.NoError(t, err)
		assert.Equal(t, tt.want, p)
	}

	r := NewResolver(tree)
	id1 := r.Resolve(ctx, tree.node(w1), "")
	id2 := r.Resolve(ctx, tree.node(w2), "")
	assert.NotEqual(t, id1, id2)

	located := NewResolver(tree)
	n, err := located.Locate(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, w1, n.Key)
	n, err = located.Locate(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, w2, n.Key)
}

func TestSiblingSegments_SuffixesOnlyDuplicates(t *testing.T) {
	tree := newMemTree(modelA)
	siblings := []domain.ModelNode{
		{Key: 1, DisplayName: "Beam", Position: 0},
		{Key: 2, DisplayName: "Slab", Position: 1},
		{Key: 3, DisplayName: "Beam", Position: 2},
		{Key: 4, Position: 3},
		{Key: 5, Position: 4},
	}
	segs, err := siblingSegments(context.Background(), tree, siblings, "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beam[1]", "Slab", "Beam[2]"}, segs[:3])
	assert.NotEqual(t, segs[3], segs[4], "unnamed siblings fall back to distinct structural names")
}

func TestResolve_IdempotentAndMemoized(t *testing.T) {
	ctx := context.Background()
	tree, wall, _ := floorTree()
	r := NewResolver(tree)

	a := r.Resolve(ctx, tree.node(wall), "")
	hits := tree.propHits
	b := r.Resolve(ctx, tree.node(wall), "")
	assert.Equal(t, a, b)
	assert.Equal(t, hits, tree.propHits, "memo hit does not touch the tree")
	assert.Equal(t, 1, r.Stats().Resolved)

	r.ClearCache()
	assert.Equal(t, 0, r.Stats().Resolved)
	assert.Equal(t, a, r.Resolve(ctx, tree.node(wall), ""))
}

func TestResolve_SourcePrecedence(t *testing.T) {
	ctx := context.Background()
	guid := "5e0a9a57-9d3c-4ac4-8f4e-2b8c0f6a1d11"

	tests := []struct {
		name       string
		instanceID string
		props      []domain.PropertyCategory
		wantSource domain.IdentitySource
		want       func() domain.NodeIdentity
	}{
		{
			name:       "native uuid",
			instanceID: guid,
			props:      []domain.PropertyCategory{{Name: "Element", Properties: []domain.Property{{Name: "Id", Value: "77"}}}},
			wantSource: domain.IdentityNative,
			want:       func() domain.NodeIdentity { return domain.NodeIdentity(uuid.MustParse(guid)) },
		},
		{
			name:       "native non-uuid",
			instanceID: "H-1029",
			wantSource: domain.IdentityNative,
			want:       func() domain.NodeIdentity { return hash("native|H-1029") },
		},
		{
			name:       "item guid",
			props:      []domain.PropertyCategory{{Name: "item", Properties: []domain.Property{{Name: "guid", Value: guid}}}},
			wantSource: domain.IdentityItemGUID,
			want:       func() domain.NodeIdentity { return domain.NodeIdentity(uuid.MustParse(guid)) },
		},
		{
			name: "nil item guid falls through to authoring",
			props: []domain.PropertyCategory{
				{Name: "Item", Properties: []domain.Property{{Name: "GUID", Value: uuid.Nil.String()}}},
				{Name: "Element", Properties: []domain.Property{{Name: "Id", Value: "318842"}}},
			},
			wantSource: domain.IdentityAuthoring,
			want:       func() domain.NodeIdentity { return hash(modelA.SourceGUID + "|Revit:318842") },
		},
		{
			name:       "autocad handle",
			props:      []domain.PropertyCategory{{Name: "Entity Handle", Properties: []domain.Property{{Name: "Value", Value: "2F9"}}}},
			wantSource: domain.IdentityAuthoring,
			want:       func() domain.NodeIdentity { return hash(modelA.SourceGUID + "|AutoCAD:2F9") },
		},
		{
			name:       "ifc global id",
			props:      []domain.PropertyCategory{{Name: "IFC", Properties: []domain.Property{{Name: "GlobalId", Value: "3vB2YO$MX4xv5uCqZZG05x"}}}},
			wantSource: domain.IdentityAuthoring,
			want:       func() domain.NodeIdentity { return hash(modelA.SourceGUID + "|IFC:3vB2YO$MX4xv5uCqZZG05x") },
		},
		{
			name:       "hierarchy",
			wantSource: domain.IdentityHierarchy,
			want:       func() domain.NodeIdentity { return hash(modelA.SourceGUID + "|Root>Leaf") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newMemTree(modelA)
			root := tree.add("m1", 0, "Root", "")
			leaf := tree.add("m1", root, "Leaf", tt.instanceID)
			tree.props[leaf] = tt.props

			res := NewResolver(tree).ResolveWithSource(ctx, tree.node(leaf), "")
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.want(), res.ID)
		})
	}
}

func TestResolve_PathHintOverridesAncestorWalk(t *testing.T) {
	ctx := context.Background()
	tree, wall, _ := floorTree()
	id := NewResolver(tree).Resolve(ctx, tree.node(wall), "Custom>Path")
	assert.Equal(t, hash(modelA.SourceGUID+"|Custom>Path"), id)
}

func TestResolve_PropertyErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	tree, wall, _ := floorTree()
	tree.propErr = errors.New("host busy")

	res := NewResolver(tree).ResolveWithSource(ctx, tree.node(wall), "")
	assert.Equal(t, domain.IdentityHierarchy, res.Source)
	assert.Equal(t, hash(modelA.SourceGUID+"|Root>Floor1>Wall"), res.ID)
}

func TestSegmentName_Fallbacks(t *testing.T) {
	props := []domain.PropertyCategory{{Name: "Item", Properties: []domain.Property{{Name: "Name", Value: "Slab"}}}}

	assert.Equal(t, "Wall", SegmentName(&domain.ModelNode{DisplayName: " Wall "}, props, "0/0"))
	assert.Equal(t, "Slab", SegmentName(&domain.ModelNode{}, props, "0/0"))
	assert.Equal(t, "IfcWall", SegmentName(&domain.ModelNode{ClassName: "IfcWall"}, nil, "0/0"))
	assert.Equal(t, "X-9", SegmentName(&domain.ModelNode{InstanceID: "X-9"}, nil, "0/0"))

	a := SegmentName(&domain.ModelNode{}, nil, "0/1/2")
	b := SegmentName(&domain.ModelNode{}, nil, "0/1/3")
	assert.Regexp(t, `^node#[0-9a-f]{16}$`, a)
	assert.NotEqual(t, a, b)
}

func TestLocate(t *testing.T) {
	ctx := context.Background()
	tree, wall, door := floorTree()

	wallID := NewResolver(tree).Resolve(ctx, tree.node(wall), "")

	r := NewResolver(tree)
	n, err := r.Locate(ctx, wallID)
	require.NoError(t, err)
	assert.Equal(t, wall, n.Key)

	doorID := r.Resolve(ctx, tree.node(door), "")
	n, err = r.Locate(ctx, doorID)
	require.NoError(t, err)
	assert.Equal(t, door, n.Key)

	_, err = r.Locate(ctx, hash("nowhere"))
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestWalk_PreOrderAcrossModels(t *testing.T) {
	ctx := context.Background()
	modelB := domain.Model{ID: "m2", SourceGUID: "b", Position: 1}
	tree := newMemTree(modelA, modelB)
	r1 := tree.add("m1", 0, "A", "")
	a1 := tree.add("m1", r1, "A1", "")
	tree.add("m1", a1, "A1x", "")
	tree.add("m1", r1, "A2", "")
	tree.add("m2", 0, "B", "")

	var paths []string
	var depths []int
	err := Walk(ctx, tree, func(v Visit) error {
		paths = append(paths, v.Path)
		depths = append(depths, v.Depth)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A>A1", "A>A1>A1x", "A>A2", "B"}, paths)
	assert.Equal(t, []int{0, 1, 2, 1, 0}, depths)

	paths = nil
	err = Walk(ctx, tree, func(v Visit) error {
		paths = append(paths, v.Path)
		if v.Node.DisplayName == "A1" {
			return SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A>A1", "A>A2", "B"}, paths)
}

func TestWalk_PathsMatchPathOf(t *testing.T) {
	ctx := context.Background()
	tree := newMemTree(modelA)
	root := tree.add("m1", 0, "", "")
	mid := tree.add("m1", root, "", "")
	tree.add("m1", mid, "Leaf", "")
	tree.add("m1", mid, "Leaf", "")
	tree.add("m1", root, "", "")

	seen := make(map[string]int64)
	err := Walk(ctx, tree, func(v Visit) error {
		p, err := PathOf(ctx, tree, &v.Node)
		require.NoError(t, err)
		assert.Equal(t, p, v.Path)
		_, dup := seen[v.Path]
		assert.False(t, dup, "path %s visited twice", v.Path)
		seen[v.Path] = v.Node.Key
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 5)
}

func TestWalk_DeepTreeAndCancellation(t *testing.T) {
	tree := newMemTree(modelA)
	parent := tree.add("m1", 0, "n0", "")
	for i := 1; i < 2000; i++ {
		parent = tree.add("m1", parent, fmt.Sprintf("n%d", i), "")
	}

	count := 0
	require.NoError(t, Walk(context.Background(), tree, func(Visit) error {
		count++
		return nil
	}))
	assert.Equal(t, 2000, count)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, tree, func(Visit) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
