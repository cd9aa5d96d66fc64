// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"fmt"

	"github.com/google/uuid"

	"arbor/internal/models"
)

// arena is the in-memory working set for a subtree rewrite: every affected
// node indexed by id, plus a children index by parent. Loading the whole
// affected subtree once and recomputing top-down replaces the original
// per-row recursive approach and keeps the rewrite unit-testable.
type arena struct {
	nodes    map[uuid.UUID]*models.Node
	children map[uuid.UUID][]uuid.UUID
}

// newArena builds an arena from a flat subtree listing.
func newArena(nodes []models.Node) *arena {
	a := &arena{
		nodes:    make(map[uuid.UUID]*models.Node, len(nodes)),
		children: make(map[uuid.UUID][]uuid.UUID, len(nodes)),
	}
	for i := range nodes {
		n := &nodes[i]
		a.nodes[n.ID] = n
		if n.ParentID != nil {
			a.children[*n.ParentID] = append(a.children[*n.ParentID], n.ID)
		}
	}
	return a
}

// rebase recomputes depth and path for the subtree rooted at rootID, as if
// the root's parent had the given path (nil for a promotion to root).
// Children are visited strictly after their parent, so every node ends with
// path == parent.path + [id] and depth == parent.depth + 1. The root's
// ParentID is rewritten to the last element of parentPath (nil when empty).
// Returns the deepest depth in the rewritten subtree.
func (a *arena) rebase(rootID uuid.UUID, parentPath models.UUIDArray) (int, error) {
	root, ok := a.nodes[rootID]
	if !ok {
		return 0, fmt.Errorf("rebase: root %s not in arena", rootID)
	}

	if len(parentPath) == 0 {
		root.ParentID = nil
	} else {
		pid := parentPath[len(parentPath)-1]
		root.ParentID = &pid
	}

	maxDepth := 0
	stack := []uuid.UUID{rootID}
	paths := map[uuid.UUID]models.UUIDArray{rootID: parentPath}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := a.nodes[id]
		base := paths[id]
		n.Path = append(append(models.UUIDArray{}, base...), id)
		n.Depth = len(n.Path) - 1
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}

		for _, childID := range a.children[id] {
			paths[childID] = n.Path
			stack = append(stack, childID)
		}
	}

	return maxDepth, nil
}

// all returns the arena's nodes in no particular order.
func (a *arena) all() []*models.Node {
	out := make([]*models.Node, 0, len(a.nodes))
	for _, n := range a.nodes {
		out = append(out, n)
	}
	return out
}

// childPath computes the path of a new child given its parent's path:
// parent.path + [id], or [id] for a root.
func childPath(parentPath models.UUIDArray, id uuid.UUID) models.UUIDArray {
	return append(append(models.UUIDArray{}, parentPath...), id)
}

// verifyPathInvariants checks that a node's stored depth and path agree with
// each other and with its id. Used by the read side to detect writer bugs;
// it never repairs anything.
func verifyPathInvariants(n *models.Node) error {
	if len(n.Path) == 0 {
		return fmt.Errorf("node %s has an empty path", n.ID)
	}
	if n.Path[len(n.Path)-1] != n.ID {
		return fmt.Errorf("node %s path does not end with its own id", n.ID)
	}
	if n.Depth != len(n.Path)-1 {
		return fmt.Errorf("node %s depth %d disagrees with path length %d", n.ID, n.Depth, len(n.Path))
	}
	if n.ParentID == nil {
		if n.Depth != 0 {
			return fmt.Errorf("root node %s has depth %d", n.ID, n.Depth)
		}
	} else if len(n.Path) < 2 {
		return fmt.Errorf("node %s has a parent but a single-element path", n.ID)
	} else if n.Path[len(n.Path)-2] != *n.ParentID {
		return fmt.Errorf("node %s path does not pass through its parent", n.ID)
	}
	return nil
}
