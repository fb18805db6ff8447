package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/repository"
)

// Node options
type NodeOption func(*nodeSpec)

type nodeSpec struct {
	node  domain.ModelNode
	props []domain.PropertyCategory
}

func WithInstanceID(id string) NodeOption {
	return func(s *nodeSpec) {
		s.node.InstanceID = id
	}
}

func WithClassName(name string) NodeOption {
	return func(s *nodeSpec) {
		s.node.ClassName = name
	}
}

func WithHidden() NodeOption {
	return func(s *nodeSpec) {
		s.node.Hidden = true
	}
}

func WithoutGeometry() NodeOption {
	return func(s *nodeSpec) {
		s.node.HasGeometry = false
	}
}

// WithProperty adds a property. Properties of the same category are grouped.
func WithProperty(category, name, value string) NodeOption {
	return func(s *nodeSpec) {
		p := domain.Property{Name: name, Value: value}
		for i := range s.props {
			if s.props[i].Name == category {
				s.props[i].Properties = append(s.props[i].Properties, p)
				return
			}
		}
		s.props = append(s.props, domain.PropertyCategory{Name: category, Properties: []domain.Property{p}})
	}
}

// WithInternalProperty adds a property addressed by internal names as well.
func WithInternalProperty(category, categoryInternal, name, internalName, value string) NodeOption {
	return func(s *nodeSpec) {
		s.props = append(s.props, domain.PropertyCategory{
			Name:         category,
			InternalName: categoryInternal,
			Properties:   []domain.Property{{Name: name, InternalName: internalName, Value: value}},
		})
	}
}

// WithElementID sets the default match property Element.Id.
func WithElementID(id string) NodeOption {
	return WithProperty("Element", "Id", id)
}

// TreeBuilder loads model trees into a store for tests. Ordinals follow
// insertion order, so adding nodes depth-first yields pre-order ordinals.
type TreeBuilder struct {
	t        testing.TB
	w        repository.ModelWriter
	model    *domain.Model
	models   int
	ordinal  int
	siblings map[int64]int
	roots    int
}

func NewTreeBuilder(t testing.TB, w repository.ModelWriter) *TreeBuilder {
	return &TreeBuilder{t: t, w: w, siblings: make(map[int64]int)}
}

// Model starts a new model; later nodes belong to it.
func (b *TreeBuilder) Model(sourceGUID, fileName string) *domain.Model {
	b.t.Helper()
	m := &domain.Model{
		ID:         fmt.Sprintf("model-%d", b.models+1),
		SourceGUID: sourceGUID,
		FileName:   fileName,
		Position:   b.models,
	}
	if err := b.w.CreateModel(context.Background(), m); err != nil {
		b.t.Fatalf("creating model %s: %v", fileName, err)
	}
	b.models++
	b.model = m
	b.roots = 0
	return m
}

// Root adds a root node to the current model.
func (b *TreeBuilder) Root(name string, opts ...NodeOption) *domain.ModelNode {
	return b.Add(nil, name, opts...)
}

// Add inserts a child of parent, or a root when parent is nil.
func (b *TreeBuilder) Add(parent *domain.ModelNode, name string, opts ...NodeOption) *domain.ModelNode {
	b.t.Helper()
	if b.model == nil {
		b.Model("", "test.nwd")
	}
	spec := nodeSpec{node: domain.ModelNode{
		ModelID:     b.model.ID,
		DisplayName: name,
		Ordinal:     b.ordinal,
		HasGeometry: true,
	}}
	for _, opt := range opts {
		opt(&spec)
	}
	if parent != nil {
		key := parent.Key
		spec.node.ParentKey = &key
		spec.node.Position = b.siblings[key]
		b.siblings[key]++
	} else {
		spec.node.Position = b.roots
		b.roots++
	}

	ctx := context.Background()
	if _, err := b.w.InsertNode(ctx, &spec.node); err != nil {
		b.t.Fatalf("inserting node %s: %v", name, err)
	}
	if len(spec.props) > 0 {
		if err := b.w.InsertProperties(ctx, spec.node.Key, spec.props); err != nil {
			b.t.Fatalf("inserting properties of %s: %v", name, err)
		}
	}
	b.ordinal++
	n := spec.node
	return &n
}

// Row options
type RowOption func(*domain.ScheduleRow)

func WithTaskName(name string) RowOption {
	return func(r *domain.ScheduleRow) {
		r.TaskName = name
	}
}

func WithParentSet(p string) RowOption {
	return func(r *domain.ScheduleRow) {
		r.ParentSet = p
	}
}

func WithPlanned(start, end string) RowOption {
	return func(r *domain.ScheduleRow) {
		r.PlannedStart = mustDate(start)
		r.PlannedEnd = mustDate(end)
	}
}

func WithTaskType(t domain.TaskType) RowOption {
	return func(r *domain.ScheduleRow) {
		r.TaskType = t
	}
}

func WithCustom(header, value string) RowOption {
	return func(r *domain.ScheduleRow) {
		r.CustomProperties.Set(header, value)
	}
}

// WithMatch marks the row matched to id.
func WithMatch(id domain.NodeIdentity) RowOption {
	return func(r *domain.ScheduleRow) {
		r.MatchStatus = domain.MatchMatched
		r.MatchedNodeID = id.Ptr()
	}
}

func NewTestRow(syncID string, opts ...RowOption) *domain.ScheduleRow {
	r := domain.NewScheduleRow(syncID)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func mustDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q: %v", s, err))
	}
	return &t
}

// WriteCSV writes lines joined by newlines to a temp file and returns its path.
func WriteCSV(t testing.TB, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return path
}
