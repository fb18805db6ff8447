package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/awp4d/internal/domain"
)

// PathSeparator joins hierarchy path segments.
const PathSeparator = ">"

// Tree is the read-only view of the model document the resolver needs.
type Tree interface {
	Models(ctx context.Context) ([]domain.Model, error)
	Roots(ctx context.Context, modelID string) ([]domain.ModelNode, error)
	Children(ctx context.Context, parentKey int64) ([]domain.ModelNode, error)
	Node(ctx context.Context, key int64) (*domain.ModelNode, error)
	Properties(ctx context.Context, key int64) ([]domain.PropertyCategory, error)
}

// ErrNodeNotFound is returned when no node in the document carries an identity.
var ErrNodeNotFound = errors.New("node not found")

// SegmentName returns the display segment for a node. structural is the
// node's position string ("modelPos/childPos/...") used as the last resort.
func SegmentName(node *domain.ModelNode, props []domain.PropertyCategory, structural string) string {
	if s := strings.TrimSpace(node.DisplayName); s != "" {
		return s
	}
	if v, ok := domain.FindProperty(props, "Item", "Name"); ok {
		return strings.TrimSpace(v)
	}
	if s := strings.TrimSpace(node.ClassName); s != "" {
		return s
	}
	if s := strings.TrimSpace(node.InstanceID); s != "" {
		return s
	}
	sum := sha256.Sum256([]byte(structural))
	return "node#" + hex.EncodeToString(sum[:8])
}

// PathOf computes the hierarchy path of node from its ancestors.
func PathOf(ctx context.Context, tree Tree, node *domain.ModelNode) (string, error) {
	chain := []*domain.ModelNode{node}
	for cur := node; cur.ParentKey != nil; {
		parent, err := tree.Node(ctx, *cur.ParentKey)
		if err != nil {
			return "", fmt.Errorf("loading parent %d of node %d: %w", *cur.ParentKey, cur.Key, err)
		}
		chain = append(chain, parent)
		cur = parent
	}

	modelPos, err := modelPosition(ctx, tree, node.ModelID)
	if err != nil {
		return "", err
	}

	segments := make([]string, 0, len(chain))
	structural := strconv.Itoa(modelPos)
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		seg, err := segmentAmongSiblings(ctx, tree, n, structural)
		if err != nil {
			return "", err
		}
		segments = append(segments, seg)
		structural += "/" + strconv.Itoa(n.Position)
	}
	return strings.Join(segments, PathSeparator), nil
}

// segmentAmongSiblings returns the segment of n as Walk names it within its
// sibling group. parentStructural is the structural position of n's parent.
func segmentAmongSiblings(ctx context.Context, tree Tree, n *domain.ModelNode, parentStructural string) (string, error) {
	var (
		siblings []domain.ModelNode
		err      error
	)
	if n.ParentKey == nil {
		siblings, err = tree.Roots(ctx, n.ModelID)
	} else {
		siblings, err = tree.Children(ctx, *n.ParentKey)
	}
	if err != nil {
		return "", fmt.Errorf("loading siblings of node %d: %w", n.Key, err)
	}
	segs, err := siblingSegments(ctx, tree, siblings, parentStructural)
	if err != nil {
		return "", err
	}
	for i := range siblings {
		if siblings[i].Key == n.Key {
			return segs[i], nil
		}
	}
	return segmentFor(ctx, tree, n, parentStructural+"/"+strconv.Itoa(n.Position))
}

// siblingSegments names every node of one sibling group. A name shared by
// several siblings gets a 1-based "[n]" suffix in position order, skipping
// suffixed forms a sibling already uses as its own name.
func siblingSegments(ctx context.Context, tree Tree, siblings []domain.ModelNode, parentStructural string) ([]string, error) {
	segs := make([]string, len(siblings))
	counts := make(map[string]int, len(siblings))
	for i := range siblings {
		seg, err := segmentFor(ctx, tree, &siblings[i], parentStructural+"/"+strconv.Itoa(siblings[i].Position))
		if err != nil {
			return nil, err
		}
		segs[i] = seg
		counts[seg]++
	}

	taken := make(map[string]bool, len(segs))
	for _, seg := range segs {
		if counts[seg] == 1 {
			taken[seg] = true
		}
	}
	next := make(map[string]int)
	for i, seg := range segs {
		if counts[seg] == 1 {
			continue
		}
		for {
			next[seg]++
			candidate := seg + "[" + strconv.Itoa(next[seg]) + "]"
			if !taken[candidate] {
				taken[candidate] = true
				segs[i] = candidate
				break
			}
		}
	}
	return segs, nil
}

func segmentFor(ctx context.Context, tree Tree, n *domain.ModelNode, structural string) (string, error) {
	var props []domain.PropertyCategory
	if strings.TrimSpace(n.DisplayName) == "" {
		p, err := tree.Properties(ctx, n.Key)
		if err != nil {
			return "", fmt.Errorf("loading properties of node %d: %w", n.Key, err)
		}
		props = p
	}
	return SegmentName(n, props, structural), nil
}

func modelPosition(ctx context.Context, tree Tree, modelID string) (int, error) {
	models, err := tree.Models(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading models: %w", err)
	}
	for _, m := range models {
		if m.ID == modelID {
			return m.Position, nil
		}
	}
	return 0, fmt.Errorf("model %s: %w", modelID, ErrNodeNotFound)
}
