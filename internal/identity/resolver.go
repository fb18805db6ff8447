// Package identity derives stable node identities from a model tree.
//
// An identity is taken from the first source that yields one: the node's
// native instance id, an Item GUID property, an authoring-tool id, or a hash
// of the node's hierarchy path. The same node in an unchanged model always
// resolves to the same identity.
package identity

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/google/uuid"
)

// namespace seeds every synthetic identity.
var namespace = uuid.MustParse("3b9c6f0e-4d3a-5c8e-9a71-0f2d6b4e8c15")

type authoringKey struct {
	category string
	property string
	tag      string
}

// authoringKeys is tried in order; the first non-empty value wins.
var authoringKeys = []authoringKey{
	{"Element", "Id", "Revit"},
	{"Element", "Element ID", "Revit"},
	{"Element ID", "Value", "Revit"},
	{"LcRevitData", "UniqueId", "Revit"},
	{"Entity Handle", "Value", "AutoCAD"},
	{"Item", "Handle", "AutoCAD"},
	{"AutoCAD", "Handle", "AutoCAD"},
	{"IFC", "GlobalId", "IFC"},
	{"Element", "IfcGlobalId", "IFC"},
}

var itemGUIDCategories = []string{"Item", "LcOaNode"}

// Resolution is one resolved identity and the source it came from.
type Resolution struct {
	ID     domain.NodeIdentity
	Source domain.IdentitySource
}

type Stats struct {
	Resolved int
	BySource map[domain.IdentitySource]int
}

// Resolver resolves and memoizes node identities. It is safe for
// concurrent use.
type Resolver struct {
	tree   Tree
	logger *slog.Logger

	mu      sync.Mutex
	models  map[string]domain.Model
	memo    map[int64]Resolution
	reverse map[domain.NodeIdentity]domain.ModelNode
	indexed bool
	stats   Stats
}

type ResolverOption func(*Resolver)

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(tree Tree, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tree:   tree,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	r.reset()
	return r
}

func (r *Resolver) reset() {
	r.models = nil
	r.memo = make(map[int64]Resolution)
	r.reverse = make(map[domain.NodeIdentity]domain.ModelNode)
	r.indexed = false
	r.stats = Stats{BySource: make(map[domain.IdentitySource]int)}
}

// ClearCache drops memoized identities and the reverse index.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Stats{Resolved: r.stats.Resolved, BySource: make(map[domain.IdentitySource]int, len(r.stats.BySource))}
	for k, v := range r.stats.BySource {
		out.BySource[k] = v
	}
	return out
}

// Resolve returns the identity of node. pathHint, when non-empty, is used as
// the hierarchy path instead of walking the node's ancestors. Resolve never
// fails: lookups that error fall through to the next source.
func (r *Resolver) Resolve(ctx context.Context, node *domain.ModelNode, pathHint string) domain.NodeIdentity {
	return r.ResolveWithSource(ctx, node, pathHint).ID
}

// ResolveWithSource is Resolve reporting which source produced the identity.
func (r *Resolver) ResolveWithSource(ctx context.Context, node *domain.ModelNode, pathHint string) Resolution {
	r.mu.Lock()
	if res, ok := r.memo[node.Key]; ok {
		r.mu.Unlock()
		return res
	}
	r.mu.Unlock()

	res := r.derive(ctx, node, pathHint)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.memo[node.Key]; ok {
		return prior
	}
	r.memo[node.Key] = res
	r.reverse[res.ID] = *node
	r.stats.Resolved++
	r.stats.BySource[res.Source]++
	return res
}

func (r *Resolver) derive(ctx context.Context, node *domain.ModelNode, pathHint string) Resolution {
	if id := strings.TrimSpace(node.InstanceID); id != "" {
		if u, err := uuid.Parse(id); err == nil && u != uuid.Nil {
			return Resolution{ID: domain.NodeIdentity(u), Source: domain.IdentityNative}
		}
		return Resolution{ID: hash("native|" + id), Source: domain.IdentityNative}
	}

	props, err := r.tree.Properties(ctx, node.Key)
	if err != nil {
		r.logger.Debug("identity property lookup failed", "node", node.Key, "error", err)
		props = nil
	}

	if u, ok := itemGUID(props); ok {
		return Resolution{ID: domain.NodeIdentity(u), Source: domain.IdentityItemGUID}
	}

	source := r.sourceGUID(ctx, node.ModelID)
	for _, k := range authoringKeys {
		if v, ok := domain.FindProperty(props, k.category, k.property); ok {
			return Resolution{
				ID:     hash(source + "|" + k.tag + ":" + strings.TrimSpace(v)),
				Source: domain.IdentityAuthoring,
			}
		}
	}

	path := pathHint
	if path == "" {
		p, err := PathOf(ctx, r.tree, node)
		if err != nil {
			r.logger.Warn("hierarchy path unavailable, using node segment", "node", node.Key, "error", err)
			p = SegmentName(node, props, fmt.Sprintf("?/%d", node.Position))
		}
		path = p
	}
	return Resolution{ID: hash(source + "|" + path), Source: domain.IdentityHierarchy}
}

func itemGUID(props []domain.PropertyCategory) (uuid.UUID, bool) {
	for _, cat := range itemGUIDCategories {
		v, ok := domain.FindProperty(props, cat, "GUID")
		if !ok {
			continue
		}
		if u, err := uuid.Parse(strings.TrimSpace(v)); err == nil && u != uuid.Nil {
			return u, true
		}
	}
	return uuid.Nil, false
}

func (r *Resolver) sourceGUID(ctx context.Context, modelID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models == nil {
		models, err := r.tree.Models(ctx)
		if err != nil {
			r.logger.Debug("model lookup failed", "error", err)
			return modelID
		}
		r.models = make(map[string]domain.Model, len(models))
		for _, m := range models {
			r.models[m.ID] = m
		}
	}
	if m, ok := r.models[modelID]; ok && m.SourceGUID != "" {
		return m.SourceGUID
	}
	return modelID
}

// Locate finds the node carrying id. A memo miss triggers one full walk
// that resolves and indexes every node.
func (r *Resolver) Locate(ctx context.Context, id domain.NodeIdentity) (*domain.ModelNode, error) {
	if n, ok := r.lookup(id); ok {
		return n, nil
	}

	r.mu.Lock()
	indexed := r.indexed
	r.mu.Unlock()
	if !indexed {
		if err := r.Index(ctx); err != nil {
			return nil, err
		}
		if n, ok := r.lookup(id); ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("identity %s: %w", id, ErrNodeNotFound)
}

// Index resolves every node in the document.
func (r *Resolver) Index(ctx context.Context) error {
	err := Walk(ctx, r.tree, func(v Visit) error {
		r.ResolveWithSource(ctx, &v.Node, v.Path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing model tree: %w", err)
	}
	r.mu.Lock()
	r.indexed = true
	r.mu.Unlock()
	return nil
}

func (r *Resolver) lookup(id domain.NodeIdentity) (*domain.ModelNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.reverse[id]
	if !ok {
		return nil, false
	}
	return &n, true
}

func hash(data string) domain.NodeIdentity {
	return domain.NodeIdentity(uuid.NewHash(sha256.New(), namespace, []byte(data), 5))
}
