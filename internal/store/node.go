// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arbor/internal/models"
)

// NodeStore provides read and bookkeeping access to category nodes.
// Structural mutations (create, reparent, delete) go through the tree
// service, which owns transactions and locking; the store never touches
// depth or path on its own.
type NodeStore struct {
	db *sql.DB
}

// NewNodeStore returns a new NodeStore.
func NewNodeStore(db *sql.DB) *NodeStore {
	return &NodeStore{db: db}
}

const nodeColumns = `id, slug, name, parent_id, depth, path, collection_id, template_id,
	display_order, is_active, is_deleted, deleted_by, deleted_at, created_at, updated_at`

// scanNode scans a row into a Node, rebuilding the owner scope from its
// two storage columns.
func scanNode(scanner interface{ Scan(...any) error }) (*models.Node, error) {
	var n models.Node
	var collectionID, templateID *uuid.UUID
	err := scanner.Scan(
		&n.ID, &n.Slug, &n.Name, &n.ParentID, &n.Depth, &n.Path,
		&collectionID, &templateID,
		&n.DisplayOrder, &n.IsActive, &n.IsDeleted, &n.DeletedBy, &n.DeletedAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Owner = models.OwnerFromColumns(collectionID, templateID)
	return &n, nil
}

// FindByID retrieves a live node by ID. Returns nil if the node does not
// exist or has been soft-deleted.
func (s *NodeStore) FindByID(id uuid.UUID) (*models.Node, error) {
	row := s.db.QueryRow(`
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE id = $1 AND is_deleted = FALSE
	`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find node by id: %w", err)
	}
	return n, nil
}

// ListChildren returns the live direct children of a node, ordered for display.
func (s *NodeStore) ListChildren(parentID uuid.UUID) ([]models.Node, error) {
	rows, err := s.db.Query(`
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE parent_id = $1 AND is_deleted = FALSE
		ORDER BY display_order, slug
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return collectNodes(rows)
}

// ListRoots returns the live root nodes of an owner scope.
func (s *NodeStore) ListRoots(owner models.OwnerScope) ([]models.Node, error) {
	rows, err := s.db.Query(`
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE parent_id IS NULL AND is_deleted = FALSE
		  AND collection_id IS NOT DISTINCT FROM $1
		  AND template_id IS NOT DISTINCT FROM $2
		ORDER BY display_order, slug
	`, owner.CollectionID(), owner.TemplateID())
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	return collectNodes(rows)
}

// ListByOwner returns every live node of an owner scope ordered by path,
// which yields a stable depth-first traversal without recursive joins.
func (s *NodeStore) ListByOwner(owner models.OwnerScope) ([]models.Node, error) {
	rows, err := s.db.Query(`
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE is_deleted = FALSE
		  AND collection_id IS NOT DISTINCT FROM $1
		  AND template_id IS NOT DISTINCT FROM $2
		ORDER BY path
	`, owner.CollectionID(), owner.TemplateID())
	if err != nil {
		return nil, fmt.Errorf("list nodes by owner: %w", err)
	}
	return collectNodes(rows)
}

// ListSubtree returns a node and all its live descendants ordered by path.
// Membership is a containment check on the materialized path, so no
// recursive traversal is needed.
func (s *NodeStore) ListSubtree(nodeID uuid.UUID) ([]models.Node, error) {
	rows, err := s.db.Query(`
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE path @> ARRAY[$1::uuid] AND is_deleted = FALSE
		ORDER BY path
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	return collectNodes(rows)
}

// collectNodes drains rows into a slice.
func collectNodes(rows *sql.Rows) ([]models.Node, error) {
	defer rows.Close()
	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// CountChildren returns the number of live direct children of a node.
func (s *NodeStore) CountChildren(nodeID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM category_nodes
		WHERE parent_id = $1 AND is_deleted = FALSE
	`, nodeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// UpdateName changes a node's display name. Slug, parent, and ordering are
// untouched, so no structural invariants are involved.
func (s *NodeStore) UpdateName(id uuid.UUID, name string) error {
	res, err := s.db.Exec(`
		UPDATE category_nodes SET name = $1, updated_at = NOW()
		WHERE id = $2 AND is_deleted = FALSE
	`, name, id)
	if err != nil {
		return fmt.Errorf("update node name: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive toggles a node's visibility flag without structural effect.
func (s *NodeStore) SetActive(id uuid.UUID, active bool) error {
	_, err := s.db.Exec(`
		UPDATE category_nodes SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND is_deleted = FALSE
	`, active, id)
	if err != nil {
		return fmt.Errorf("set node active: %w", err)
	}
	return nil
}

// ReorderItem represents a single sibling in a reorder request.
type ReorderItem struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
}

// Reorder updates display_order for multiple siblings in one transaction.
// Parents are deliberately not part of the request: moving a node between
// parents is a structural mutation and must go through the tree service so
// paths and depths stay correct.
func (s *NodeStore) Reorder(items []ReorderItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE category_nodes SET display_order = $1, updated_at = $2
		WHERE id = $3 AND is_deleted = FALSE`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		if _, err := stmt.Exec(item.Order, now, item.ID); err != nil {
			return fmt.Errorf("reorder node %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// NextDisplayOrder returns the next display_order value under a parent
// within an owner scope.
func (s *NodeStore) NextDisplayOrder(owner models.OwnerScope, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(display_order) FROM category_nodes
		WHERE parent_id IS NOT DISTINCT FROM $1 AND is_deleted = FALSE
		  AND collection_id IS NOT DISTINCT FROM $2
		  AND template_id IS NOT DISTINCT FROM $3
	`, parentID, owner.CollectionID(), owner.TemplateID()).Scan(&maxOrder)
	if err != nil {
		return 0, err
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}
