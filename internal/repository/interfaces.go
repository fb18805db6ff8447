package repository

import (
	"context"

	"github.com/alexanderramin/awp4d/internal/domain"
)

// ModelTree is read access to the loaded model document.
type ModelTree interface {
	Models(ctx context.Context) ([]domain.Model, error)
	Roots(ctx context.Context, modelID string) ([]domain.ModelNode, error)
	Children(ctx context.Context, parentKey int64) ([]domain.ModelNode, error)
	Node(ctx context.Context, key int64) (*domain.ModelNode, error)
	Properties(ctx context.Context, key int64) ([]domain.PropertyCategory, error)
	// Search returns nodes holding a property equal to cond.Value, ordered
	// by domain.SortMatchCandidates.
	Search(ctx context.Context, cond domain.PropertyCondition) ([]domain.ModelNode, error)
	CountNodes(ctx context.Context) (NodeCounts, error)
}

type NodeCounts struct {
	Models       int
	Nodes        int
	WithGeometry int
}

// ModelWriter loads model documents into the store.
type ModelWriter interface {
	CreateModel(ctx context.Context, m *domain.Model) error
	InsertNode(ctx context.Context, n *domain.ModelNode) (int64, error)
	InsertProperties(ctx context.Context, nodeKey int64, cats []domain.PropertyCategory) error
	DeleteModels(ctx context.Context) (int, error)
}

// PropertyStore reads and writes custom property categories on nodes.
type PropertyStore interface {
	// WriteCategory overwrites the category with the same internal name.
	WriteCategory(ctx context.Context, nodeKey int64, cat domain.CustomCategory) error
	ReadCategory(ctx context.Context, nodeKey int64, internalName string) (*domain.CustomCategory, error)
}

// SelectionRepository manages the folder and selection set tree.
type SelectionRepository interface {
	// EnsureFolder returns the folder named name under parentID, creating it
	// when missing. A nil parentID addresses the top level.
	EnsureFolder(ctx context.Context, parentID *string, name string) (*domain.SelectionItem, error)
	// UpsertSet creates the set or replaces the membership of an existing
	// set with the same name in the folder.
	UpsertSet(ctx context.Context, folderID, name string, members []int64) (*domain.SelectionItem, error)
	FindSetByName(ctx context.Context, rootName, setName string) (*domain.SelectionItem, error)
	List(ctx context.Context, rootName string) ([]domain.SelectionEntry, error)
	// DeleteRoot removes every top-level folder named rootName with its
	// subtree and reports how many items were removed.
	DeleteRoot(ctx context.Context, rootName string) (int, error)
	Count(ctx context.Context) (int, error)
}

// TaskRepository holds the simulation task tree. The tree is edited on a
// working copy and swapped in as a whole.
type TaskRepository interface {
	WorkingCopy(ctx context.Context) (*domain.TaskTree, error)
	Replace(ctx context.Context, tree *domain.TaskTree) error
	Count(ctx context.Context) (int, error)
}
