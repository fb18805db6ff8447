package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/alexanderramin/awp4d/internal/domain"
)

// SkipChildren may be returned from a WalkFunc to skip the visited node's
// descendants.
var SkipChildren = errors.New("skip children")

const walkCheckInterval = 256

// Visit describes one node reached during a walk.
type Visit struct {
	Node  domain.ModelNode
	Model domain.Model
	// Path is the hierarchy path, identical to what PathOf returns.
	Path  string
	Depth int
}

type WalkFunc func(Visit) error

type frame struct {
	node       domain.ModelNode
	model      domain.Model
	segment    string
	parentPath string
	structural string
	depth      int
}

// Walk visits every node of every model in pre-order. It uses an explicit
// stack, so arbitrarily deep trees are safe.
func Walk(ctx context.Context, tree Tree, fn WalkFunc) error {
	models, err := tree.Models(ctx)
	if err != nil {
		return err
	}

	// Seeding model by model in reverse keeps every root of a later model
	// below all descendants of the earlier ones.
	var stack []frame
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		roots, err := tree.Roots(ctx, m.ID)
		if err != nil {
			return err
		}
		stack, err = pushReversed(ctx, tree, stack, roots, m, "", strconv.Itoa(m.Position), 0)
		if err != nil {
			return err
		}
	}

	visited := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited%walkCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		visited++

		path := f.segment
		if f.parentPath != "" {
			path = f.parentPath + PathSeparator + f.segment
		}

		err := fn(Visit{Node: f.node, Model: f.model, Path: path, Depth: f.depth})
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}

		children, err := tree.Children(ctx, f.node.Key)
		if err != nil {
			return err
		}
		structural := f.structural + "/" + strconv.Itoa(f.node.Position)
		stack, err = pushReversed(ctx, tree, stack, children, f.model, path, structural, f.depth+1)
		if err != nil {
			return err
		}
	}
	return nil
}

// pushReversed names one sibling group and pushes it so the first sibling
// is popped first. structural is the parent's structural position.
func pushReversed(ctx context.Context, tree Tree, stack []frame, nodes []domain.ModelNode, m domain.Model, parentPath, structural string, depth int) ([]frame, error) {
	segs, err := siblingSegments(ctx, tree, nodes, structural)
	if err != nil {
		return stack, err
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, frame{
			node:       nodes[i],
			model:      m,
			segment:    segs[i],
			parentPath: parentPath,
			structural: structural,
			depth:      depth,
		})
	}
	return stack, nil
}
