// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"fmt"

	"github.com/google/uuid"

	"arbor/internal/models"
)

// DeletionPolicy selects what happens to a deleted node's children and
// content. There are exactly three outcomes; there is no partial one.
type DeletionPolicy string

const (
	// PolicyReassign promotes children to the deleted node's parent and
	// moves the node's content with them.
	PolicyReassign DeletionPolicy = "reassign"
	// PolicyCascade soft-deletes the whole subtree and parks all its
	// content as uncategorized.
	PolicyCascade DeletionPolicy = "cascade"
	// PolicyBlock refuses to delete a node that still has children or content.
	PolicyBlock DeletionPolicy = "block"
)

// ParsePolicy validates a caller-supplied policy string.
func ParsePolicy(s string) (DeletionPolicy, error) {
	switch DeletionPolicy(s) {
	case PolicyReassign, PolicyCascade, PolicyBlock:
		return DeletionPolicy(s), nil
	}
	return "", fmt.Errorf("unknown deletion policy %q", s)
}

// deletePlan is the full effect of a deletion, computed before any row is
// touched. The service executes a plan atomically or not at all.
type deletePlan struct {
	// promoteChildren holds direct children to rebase onto newParent.
	promoteChildren []uuid.UUID
	// newParent is the promotion target; nil promotes to root.
	newParent *models.Node
	// moveItemsTo receives the deleted node's items under reassign;
	// nil means uncategorized.
	moveItemsTo *uuid.UUID
	// deleteNodes lists every node to soft-delete, the target included.
	deleteNodes []uuid.UUID
	// orphanItemNodes lists nodes whose items become uncategorized.
	orphanItemNodes []uuid.UUID

	affectedChildren int
	affectedItems    int
}

// planBlock refuses deletion of a non-empty node.
func planBlock(node *models.Node, childCount, itemCount int) (*deletePlan, error) {
	if childCount > 0 || itemCount > 0 {
		return nil, deletionBlocked(childCount, itemCount)
	}
	return &deletePlan{deleteNodes: []uuid.UUID{node.ID}}, nil
}

// planReassign promotes direct children one level and moves the node's
// content to its former parent, or to uncategorized if it was a root.
// Content is never lost.
func planReassign(node *models.Node, parent *models.Node, children []models.Node, itemCount int) *deletePlan {
	plan := &deletePlan{
		newParent:        parent,
		deleteNodes:      []uuid.UUID{node.ID},
		affectedChildren: len(children),
		affectedItems:    itemCount,
	}
	for _, c := range children {
		plan.promoteChildren = append(plan.promoteChildren, c.ID)
	}
	if parent != nil {
		id := parent.ID
		plan.moveItemsTo = &id
	}
	return plan
}

// planCascade soft-deletes the node and its entire descendant subtree and
// parks every content item in that subtree as uncategorized. Items are
// never hard-deleted.
func planCascade(node *models.Node, subtree []models.Node, itemsInSubtree int) *deletePlan {
	plan := &deletePlan{
		affectedItems: itemsInSubtree,
	}
	for _, n := range subtree {
		plan.deleteNodes = append(plan.deleteNodes, n.ID)
		plan.orphanItemNodes = append(plan.orphanItemNodes, n.ID)
		if n.ID != node.ID {
			plan.affectedChildren++
		}
	}
	return plan
}
