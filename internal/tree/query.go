// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"arbor/internal/models"
	"arbor/internal/store"
)

// ErrInconsistentTree reports stored path/depth data that disagrees with
// the parent chain. Given correct writers it never happens; when it does it
// is a Node Store bug, logged and surfaced as a generic failure — the read
// side never repairs data.
var ErrInconsistentTree = errors.New("tree state inconsistent")

// QueryService is the lock-free read side of the engine. It runs against
// the latest committed snapshot; because writers commit whole subtree
// rewrites atomically, no read ever observes a half-migrated tree.
type QueryService struct {
	db    *sql.DB
	nodes *store.NodeStore
	items *store.ContentItemStore
}

// NewQueryService returns a new QueryService.
func NewQueryService(db *sql.DB, nodes *store.NodeStore, items *store.ContentItemStore) *QueryService {
	return &QueryService{db: db, nodes: nodes, items: items}
}

// TreeEntry is one row of a full-tree listing, with aggregate counts.
type TreeEntry struct {
	ID         uuid.UUID        `json:"id"`
	Slug       string           `json:"slug"`
	Name       string           `json:"name"`
	ParentID   *uuid.UUID       `json:"parent_id"`
	Depth      int              `json:"depth"`
	Path       models.UUIDArray `json:"path"`
	ChildCount int              `json:"child_count"`
	ItemCount  int              `json:"item_count"`
}

// GetTree lists an owner scope's live nodes with child and item counts,
// ordered by materialized path: parents always precede their descendants,
// so callers get a stable depth-first traversal without recursive joins.
// When rootID is set, only that subtree is returned.
func (q *QueryService) GetTree(ctx context.Context, owner models.OwnerScope, rootID *uuid.UUID) ([]TreeEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT n.id, n.slug, n.name, n.parent_id, n.depth, n.path,
		       (SELECT COUNT(*) FROM category_nodes c
		        WHERE c.parent_id = n.id AND c.is_deleted = FALSE) AS child_count,
		       (SELECT COUNT(*) FROM content_items i
		        WHERE i.node_id = n.id AND i.is_active = TRUE) AS item_count
		FROM category_nodes n
		WHERE n.is_deleted = FALSE
		  AND n.collection_id IS NOT DISTINCT FROM $1
		  AND n.template_id IS NOT DISTINCT FROM $2
		  AND ($3::uuid IS NULL OR n.path @> ARRAY[$3::uuid])
		ORDER BY n.path
	`, owner.CollectionID(), owner.TemplateID(), rootID)
	if err != nil {
		return nil, fmt.Errorf("get tree: %w", err)
	}
	defer rows.Close()

	var entries []TreeEntry
	for rows.Next() {
		var e TreeEntry
		if err := rows.Scan(&e.ID, &e.Slug, &e.Name, &e.ParentID, &e.Depth, &e.Path, &e.ChildCount, &e.ItemCount); err != nil {
			return nil, fmt.Errorf("scan tree entry: %w", err)
		}
		if err := verifyPathInvariants(&models.Node{
			ID: e.ID, ParentID: e.ParentID, Depth: e.Depth, Path: e.Path,
		}); err != nil {
			slog.Error("tree invariant violated at read time", "node_id", e.ID, "error", err)
			return nil, ErrInconsistentTree
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetAncestorPath resolves a node's ancestor chain to display names,
// ordered root to self. The stored path makes this a single lookup with no
// recursive traversal.
func (q *QueryService) GetAncestorPath(ctx context.Context, nodeID uuid.UUID) ([]string, error) {
	node, err := q.nodes.FindByID(nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nodeNotFound(fmt.Sprintf("node %s does not exist or is deleted", nodeID))
	}
	if err := verifyPathInvariants(node); err != nil {
		slog.Error("tree invariant violated at read time", "node_id", nodeID, "error", err)
		return nil, ErrInconsistentTree
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name FROM category_nodes
		WHERE id = ANY($1::uuid[]) AND is_deleted = FALSE
	`, node.Path)
	if err != nil {
		return nil, fmt.Errorf("get ancestor path: %w", err)
	}
	defer rows.Close()

	names := make(map[uuid.UUID]string, len(node.Path))
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]string, 0, len(node.Path))
	for _, id := range node.Path {
		name, ok := names[id]
		if !ok {
			// A live node's ancestor chain must be live end to end.
			slog.Error("live node references a missing ancestor", "node_id", nodeID, "ancestor_id", id)
			return nil, ErrInconsistentTree
		}
		ordered = append(ordered, name)
	}
	return ordered, nil
}

// DescendantEntry is one node of a subtree listing, with the content items
// visible at it.
type DescendantEntry struct {
	ID    uuid.UUID            `json:"id"`
	Slug  string               `json:"slug"`
	Name  string               `json:"name"`
	Depth int                  `json:"depth"`
	Path  models.UUIDArray     `json:"path"`
	Items []models.ContentItem `json:"items"`
}

// GetDescendants enumerates a node's live descendants in depth-first order.
// When viewerCollectionID is set, each node carries only the items that
// collection sees at it: its own overrides plus unscoped template answers,
// never another collection's.
func (q *QueryService) GetDescendants(ctx context.Context, nodeID uuid.UUID, viewerCollectionID *uuid.UUID) ([]DescendantEntry, error) {
	root, err := q.nodes.FindByID(nodeID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nodeNotFound(fmt.Sprintf("node %s does not exist or is deleted", nodeID))
	}

	subtree, err := q.nodes.ListSubtree(nodeID)
	if err != nil {
		return nil, err
	}

	var entries []DescendantEntry
	for _, n := range subtree {
		if n.ID == nodeID {
			continue
		}
		if err := verifyPathInvariants(&n); err != nil {
			slog.Error("tree invariant violated at read time", "node_id", n.ID, "error", err)
			return nil, ErrInconsistentTree
		}

		var items []models.ContentItem
		if viewerCollectionID != nil {
			items, err = q.items.ListForView(n.ID, *viewerCollectionID)
		} else {
			items, err = q.items.ListByNode(n.ID)
		}
		if err != nil {
			return nil, err
		}

		entries = append(entries, DescendantEntry{
			ID:    n.ID,
			Slug:  n.Slug,
			Name:  n.Name,
			Depth: n.Depth,
			Path:  n.Path,
			Items: items,
		})
	}
	return entries, nil
}
