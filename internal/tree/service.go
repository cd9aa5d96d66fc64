// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"arbor/internal/models"
	"arbor/internal/store"
)

// Service executes structural tree mutations. Every mutation is one ACID
// transaction that first takes a row lock on the affected subtree root, so
// two concurrent structural changes can never compute conflicting depth or
// path values. Sibling slug uniqueness is enforced by a database constraint,
// not an application-side check, so concurrent creates serialize there.
type Service struct {
	db          *sql.DB
	nodes       *store.NodeStore
	templates   *store.TemplateStore
	collections *store.CollectionStore
	bindings    *store.BindingStore
	audit       *store.AuditStore
	maxDepth    int
}

// NewService creates the mutation service. maxDepth is the largest allowed
// node depth (0-based; roots sit at depth 0).
func NewService(db *sql.DB, nodes *store.NodeStore, templates *store.TemplateStore, collections *store.CollectionStore, bindings *store.BindingStore, audit *store.AuditStore, maxDepth int) *Service {
	return &Service{
		db:          db,
		nodes:       nodes,
		templates:   templates,
		collections: collections,
		bindings:    bindings,
		audit:       audit,
		maxDepth:    maxDepth,
	}
}

// MaxDepth returns the configured depth limit.
func (s *Service) MaxDepth() int {
	return s.maxDepth
}

const nodeColumns = `id, slug, name, parent_id, depth, path, collection_id, template_id,
	display_order, is_active, is_deleted, deleted_by, deleted_at, created_at, updated_at`

// scanNode rebuilds a node, including its owner scope, from a row.
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

// lockNode reads a live node FOR UPDATE inside tx. Returns nil when the id
// does not resolve to a live node.
func lockNode(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Node, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE id = $1 AND is_deleted = FALSE
		FOR UPDATE
	`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock node: %w", err)
	}
	return n, nil
}

// lockSubtree reads a node and all its live descendants FOR UPDATE, ordered
// by path. The caller must already hold the root's lock.
func lockSubtree(ctx context.Context, tx *sql.Tx, rootID uuid.UUID) ([]models.Node, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM category_nodes
		WHERE path @> ARRAY[$1::uuid] AND is_deleted = FALSE
		ORDER BY path
		FOR UPDATE
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("lock subtree: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtree node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// bumpTemplateVersion records a structural change to a template's tree.
// Bindings keep resolving against the version they adopted until they are
// explicitly migrated.
func bumpTemplateVersion(ctx context.Context, tx *sql.Tx, owner models.OwnerScope) error {
	if owner.Kind != models.OwnerKindTemplate {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE templates SET version = version + 1, updated_at = NOW() WHERE id = $1
	`, owner.ID); err != nil {
		return fmt.Errorf("bump template version: %w", err)
	}
	return nil
}

// CreateNodeParams describes a node creation request. Slug must already be
// normalized; handlers derive it from the name when the caller omits it.
type CreateNodeParams struct {
	Owner        models.OwnerScope
	ParentID     *uuid.UUID
	Slug         string
	Name         string
	DisplayOrder int
	Actor        string
}

// CreateNode inserts a node with its depth and materialized path computed
// in the same transaction. The parent row is locked first so the parent
// chain cannot shift underneath the insert. A slug collision among live
// siblings surfaces as ErrDuplicateSibling; retrying a timed-out create with
// the same slug is therefore safe — it either committed or it didn't.
func (s *Service) CreateNode(ctx context.Context, p CreateNodeParams) (*models.Node, error) {
	if !p.Owner.Valid() {
		return nil, ErrInvalidOwnerScope
	}
	if p.Slug == "" || p.Name == "" {
		return nil, fmt.Errorf("create node: slug and name are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPath models.UUIDArray
	if p.ParentID != nil {
		parent, err := lockNode(ctx, tx, *p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, parentNotFound(fmt.Sprintf("parent node %s does not exist or is deleted", p.ParentID))
		}
		if parent.Owner != p.Owner {
			return nil, parentNotFound(fmt.Sprintf("parent node %s belongs to a different tree", p.ParentID))
		}
		if parent.Depth+1 > s.maxDepth {
			return nil, depthExceeded(parent.Depth+1, s.maxDepth)
		}
		parentPath = parent.Path
	}

	// The id is generated here so the full path, self included, can be
	// written together with the row.
	id := uuid.New()
	path := childPath(parentPath, id)

	row := tx.QueryRowContext(ctx, `
		INSERT INTO category_nodes (id, slug, name, parent_id, depth, path, collection_id, template_id, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+nodeColumns,
		id, p.Slug, p.Name, p.ParentID, len(path)-1, path,
		p.Owner.CollectionID(), p.Owner.TemplateID(), p.DisplayOrder,
	)
	created, err := scanNode(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateSibling(p.Slug)
		}
		return nil, fmt.Errorf("create node: %w", err)
	}

	if err := bumpTemplateVersion(ctx, tx, p.Owner); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create node: %w", err)
	}

	s.audit.Log(created.ID, "create", p.Actor, fmt.Sprintf("slug=%s depth=%d", created.Slug, created.Depth))
	return created, nil
}

// ReparentNode moves a node (and implicitly its whole subtree) under a new
// parent, or to the root when newParentID is nil. The subtree is loaded into
// memory once and every descendant's depth and path are recomputed top-down,
// then written back in the same transaction.
func (s *Service) ReparentNode(ctx context.Context, nodeID uuid.UUID, newParentID *uuid.UUID, actor string) (*models.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockNode(ctx, tx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nodeNotFound(fmt.Sprintf("node %s does not exist or is deleted", nodeID))
	}

	var parentPath models.UUIDArray
	if newParentID != nil {
		if *newParentID == nodeID {
			return nil, parentNotFound("a node cannot be its own parent")
		}
		parent, err := lockNode(ctx, tx, *newParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, parentNotFound(fmt.Sprintf("parent node %s does not exist or is deleted", newParentID))
		}
		if parent.Owner != node.Owner {
			return nil, parentNotFound(fmt.Sprintf("parent node %s belongs to a different tree", newParentID))
		}
		// The new parent must not sit inside the moved subtree, or the
		// parent chain would become a cycle.
		if parent.Path.Contains(nodeID) {
			return nil, parentNotFound(fmt.Sprintf("node %s is inside the subtree being moved", newParentID))
		}
		parentPath = parent.Path
	}

	subtree, err := lockSubtree(ctx, tx, nodeID)
	if err != nil {
		return nil, err
	}

	a := newArena(subtree)
	deepest, err := a.rebase(nodeID, parentPath)
	if err != nil {
		return nil, fmt.Errorf("reparent node: %w", err)
	}
	if deepest > s.maxDepth {
		return nil, depthExceeded(deepest, s.maxDepth)
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE category_nodes SET parent_id = $1, depth = $2, path = $3, updated_at = NOW()
		WHERE id = $4
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare path rewrite: %w", err)
	}
	defer stmt.Close()

	for _, n := range a.all() {
		if _, err := stmt.ExecContext(ctx, n.ParentID, n.Depth, n.Path, n.ID); err != nil {
			if isUniqueViolation(err) {
				return nil, duplicateSibling(node.Slug)
			}
			return nil, fmt.Errorf("rewrite node %s: %w", n.ID, err)
		}
	}

	if err := bumpTemplateVersion(ctx, tx, node.Owner); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reparent: %w", err)
	}

	moved := a.nodes[nodeID]
	s.audit.Log(nodeID, "reparent", actor,
		fmt.Sprintf("new_depth=%d descendants=%d", moved.Depth, len(subtree)-1))
	return moved, nil
}

// DeleteResult reports what a deletion did: how many direct children were
// promoted (reassign) or descendants soft-deleted (cascade), and how many
// content items were moved.
type DeleteResult struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	AffectedContentItems int    `json:"affected_content_items"`
	AffectedChildren     int    `json:"affected_children"`
}

// DeleteNode removes a node under one of the three deletion policies. The
// whole operation is one transaction: a failure anywhere rolls everything
// back, so the tree is never left between states. Content items are moved,
// never hard-deleted. Deleting an already-deleted node reports NodeNotFound
// rather than silently succeeding.
func (s *Service) DeleteNode(ctx context.Context, nodeID uuid.UUID, policy DeletionPolicy, actor string) (*DeleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockNode(ctx, tx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nodeNotFound(fmt.Sprintf("node %s does not exist or is already deleted", nodeID))
	}

	childCount, err := countLiveChildren(ctx, tx, nodeID)
	if err != nil {
		return nil, err
	}
	itemCount, err := countActiveItems(ctx, tx, nodeID)
	if err != nil {
		return nil, err
	}

	var plan *deletePlan
	switch policy {
	case PolicyBlock:
		plan, err = planBlock(node, childCount, itemCount)
		if err != nil {
			// Nothing was touched; surface the refusal with its counts.
			return &DeleteResult{
				Success:              false,
				Message:              err.Error(),
				AffectedContentItems: itemCount,
				AffectedChildren:     childCount,
			}, err
		}

	case PolicyReassign:
		var parent *models.Node
		if node.ParentID != nil {
			parent, err = lockNode(ctx, tx, *node.ParentID)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				return nil, fmt.Errorf("delete node: live node %s has a deleted parent", nodeID)
			}
		}
		subtree, err := lockSubtree(ctx, tx, nodeID)
		if err != nil {
			return nil, err
		}
		children := directChildren(subtree, nodeID)
		plan = planReassign(node, parent, children, itemCount)
		if err := s.executeReassign(ctx, tx, node, subtree, plan); err != nil {
			return nil, err
		}

	case PolicyCascade:
		subtree, err := lockSubtree(ctx, tx, nodeID)
		if err != nil {
			return nil, err
		}
		subtreeItems, err := countActiveItemsIn(ctx, tx, nodeIDs(subtree))
		if err != nil {
			return nil, err
		}
		plan = planCascade(node, subtree, subtreeItems)
		if err := executeCascade(ctx, tx, plan, actor); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown deletion policy %q", policy)
	}

	// Soft-delete the target itself (cascade already covered it, redoing it
	// is harmless and keeps the arms uniform for block/reassign).
	if err := softDelete(ctx, tx, []uuid.UUID{nodeID}, actor); err != nil {
		return nil, err
	}

	if err := bumpTemplateVersion(ctx, tx, node.Owner); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}

	s.audit.Log(nodeID, "delete:"+string(policy), actor,
		fmt.Sprintf("children=%d items=%d", plan.affectedChildren, plan.affectedItems))

	return &DeleteResult{
		Success:              true,
		Message:              fmt.Sprintf("node %q deleted (%s)", node.Slug, policy),
		AffectedContentItems: plan.affectedItems,
		AffectedChildren:     plan.affectedChildren,
	}, nil
}

// executeReassign promotes the node's direct children onto its former
// parent, rewriting every descendant's path, and moves the node's items to
// the same target (or uncategorized when the node was a root).
func (s *Service) executeReassign(ctx context.Context, tx *sql.Tx, node *models.Node, subtree []models.Node, plan *deletePlan) error {
	a := newArena(subtree)

	var parentPath models.UUIDArray
	if plan.newParent != nil {
		parentPath = plan.newParent.Path
	}
	for _, childID := range plan.promoteChildren {
		deepest, err := a.rebase(childID, parentPath)
		if err != nil {
			return fmt.Errorf("reassign child %s: %w", childID, err)
		}
		// Promotion only ever shortens paths, but a configured depth
		// reduction could still be violated by pre-existing data.
		if deepest > s.maxDepth {
			return depthExceeded(deepest, s.maxDepth)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE category_nodes SET parent_id = $1, depth = $2, path = $3, updated_at = NOW()
		WHERE id = $4
	`)
	if err != nil {
		return fmt.Errorf("prepare reassign rewrite: %w", err)
	}
	defer stmt.Close()

	for _, n := range a.all() {
		if n.ID == node.ID {
			continue
		}
		if _, err := stmt.ExecContext(ctx, n.ParentID, n.Depth, n.Path, n.ID); err != nil {
			if isUniqueViolation(err) {
				return duplicateSibling(n.Slug)
			}
			return fmt.Errorf("rewrite node %s: %w", n.ID, err)
		}
	}

	// Move the deleted node's content with the promoted children.
	if plan.moveItemsTo != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE content_items SET node_id = $1, updated_at = NOW() WHERE node_id = $2
		`, *plan.moveItemsTo, node.ID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE content_items SET node_id = NULL, updated_at = NOW() WHERE node_id = $1
		`, node.ID)
	}
	if err != nil {
		return fmt.Errorf("reassign content items: %w", err)
	}
	return nil
}

// executeCascade soft-deletes the whole subtree and parks its content as
// uncategorized.
func executeCascade(ctx context.Context, tx *sql.Tx, plan *deletePlan, actor string) error {
	if err := softDelete(ctx, tx, plan.deleteNodes, actor); err != nil {
		return err
	}
	ids := models.UUIDArray(plan.orphanItemNodes)
	if _, err := tx.ExecContext(ctx, `
		UPDATE content_items SET node_id = NULL, updated_at = NOW()
		WHERE node_id = ANY($1::uuid[])
	`, ids); err != nil {
		return fmt.Errorf("orphan subtree items: %w", err)
	}
	return nil
}

// softDelete marks nodes deleted with the acting user and timestamp.
func softDelete(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, actor string) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE category_nodes
		SET is_deleted = TRUE, deleted_by = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = ANY($2::uuid[]) AND is_deleted = FALSE
	`, actor, models.UUIDArray(ids)); err != nil {
		return fmt.Errorf("soft delete nodes: %w", err)
	}
	return nil
}

func countLiveChildren(ctx context.Context, tx *sql.Tx, nodeID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM category_nodes
		WHERE parent_id = $1 AND is_deleted = FALSE
	`, nodeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

func countActiveItems(ctx context.Context, tx *sql.Tx, nodeID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_items
		WHERE node_id = $1 AND is_active = TRUE
	`, nodeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func countActiveItemsIn(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_items
		WHERE node_id = ANY($1::uuid[]) AND is_active = TRUE
	`, models.UUIDArray(ids)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subtree items: %w", err)
	}
	return count, nil
}

// directChildren filters a subtree listing down to the root's immediate children.
func directChildren(subtree []models.Node, rootID uuid.UUID) []models.Node {
	var children []models.Node
	for _, n := range subtree {
		if n.ParentID != nil && *n.ParentID == rootID {
			children = append(children, n)
		}
	}
	return children
}

// nodeIDs extracts the id of every node in a listing.
func nodeIDs(nodes []models.Node) []uuid.UUID {
	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// BindCollectionToTemplate records a collection adopting a template at the
// template's current version. A (collection, template) pair binds at most
// once; the unique constraint turns a concurrent duplicate into
// ErrTemplateAlreadyBound instead of a silent overwrite.
func (s *Service) BindCollectionToTemplate(ctx context.Context, collectionID, templateID uuid.UUID, pinnedNodeID *uuid.UUID) (*models.TemplateBinding, error) {
	collection, err := s.collections.FindByID(collectionID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, nodeNotFound(fmt.Sprintf("collection %s does not exist", collectionID))
	}

	template, err := s.templates.FindByID(templateID)
	if err != nil {
		return nil, err
	}
	if template == nil || !template.IsActive {
		return nil, nodeNotFound(fmt.Sprintf("template %s does not exist or is inactive", templateID))
	}

	if pinnedNodeID != nil {
		pinned, err := s.nodes.FindByID(*pinnedNodeID)
		if err != nil {
			return nil, err
		}
		if pinned == nil || pinned.Owner != models.TemplateOwner(templateID) {
			return nil, nodeNotFound(fmt.Sprintf("pinned node %s is not a live node of template %s", pinnedNodeID, templateID))
		}
	}

	binding, err := s.bindings.Create(collectionID, templateID, pinnedNodeID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, templateAlreadyBound()
		}
		return nil, fmt.Errorf("bind collection to template: %w", err)
	}
	return binding, nil
}

// MigrateBinding explicitly advances a binding to the template's current
// version after a structural template change.
func (s *Service) MigrateBinding(ctx context.Context, collectionID, templateID uuid.UUID) (*models.TemplateBinding, error) {
	binding, err := s.bindings.Migrate(collectionID, templateID)
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, nodeNotFound(fmt.Sprintf("collection %s is not bound to template %s", collectionID, templateID))
	}
	return binding, nil
}
