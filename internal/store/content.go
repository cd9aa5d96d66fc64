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

// ContentItemStore manages content items attached to tree nodes.
type ContentItemStore struct {
	db *sql.DB
}

// NewContentItemStore returns a new ContentItemStore.
func NewContentItemStore(db *sql.DB) *ContentItemStore {
	return &ContentItemStore{db: db}
}

const itemColumns = `id, node_id, collection_id, item_type, body, payload, position,
	is_active, version, external_ref, external_synced_at, created_at, updated_at`

// scanItem scans a row into a ContentItem.
func scanItem(scanner interface{ Scan(...any) error }) (*models.ContentItem, error) {
	var c models.ContentItem
	err := scanner.Scan(
		&c.ID, &c.NodeID, &c.CollectionID, &c.Type, &c.Body, &c.Payload,
		&c.Position, &c.IsActive, &c.Version, &c.ExternalRef, &c.ExternalSyncedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a content item by ID. Returns nil if not found.
func (s *ContentItemStore) FindByID(id uuid.UUID) (*models.ContentItem, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id)
	c, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content item by id: %w", err)
	}
	return c, nil
}

// Create inserts a new content item and returns it.
func (s *ContentItemStore) Create(c *models.ContentItem) (*models.ContentItem, error) {
	row := s.db.QueryRow(`
		INSERT INTO content_items (node_id, collection_id, item_type, body, payload, position, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+itemColumns,
		c.NodeID, c.CollectionID, c.Type, c.Body, nullableJSON(c.Payload), c.Position, c.IsActive,
	)
	result, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return result, nil
}

// Update modifies an item's authored fields, bumps its version, and records
// a pre-edit snapshot in item_revisions — all in one transaction, so a
// version is never observed without its matching revision.
func (s *ContentItemStore) Update(c *models.ContentItem, editedBy string) (*models.ContentItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Snapshot the current row before touching it.
	_, err = tx.Exec(`
		INSERT INTO item_revisions (item_id, node_id, collection_id, item_type, body, payload, version, edited_by)
		SELECT id, node_id, collection_id, item_type, body, payload, version, $2
		FROM content_items WHERE id = $1
	`, c.ID, editedBy)
	if err != nil {
		return nil, fmt.Errorf("snapshot content item: %w", err)
	}

	row := tx.QueryRow(`
		UPDATE content_items SET
			body = $1, payload = $2, position = $3, is_active = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $5
		RETURNING `+itemColumns,
		c.Body, nullableJSON(c.Payload), c.Position, c.IsActive, c.ID,
	)
	updated, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item update: %w", err)
	}
	return updated, nil
}

// Purge hard-deletes an item. Tree operations never call this; it exists
// for explicit editorial cleanup of uncategorized leftovers.
func (s *ContentItemStore) Purge(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purge content item: %w", err)
	}
	return nil
}

// ListByNode returns all active items attached to a node, ordered by position.
func (s *ContentItemStore) ListByNode(nodeID uuid.UUID) ([]models.ContentItem, error) {
	rows, err := s.db.Query(`
		SELECT `+itemColumns+` FROM content_items
		WHERE node_id = $1 AND is_active = TRUE
		ORDER BY position, created_at
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list items by node: %w", err)
	}
	return collectItems(rows)
}

// ListForView returns the active items a given collection sees on a node:
// the collection's own overrides plus unscoped template items, never a
// sibling collection's. Overrides sort ahead of generic answers at the same
// position.
func (s *ContentItemStore) ListForView(nodeID, collectionID uuid.UUID) ([]models.ContentItem, error) {
	rows, err := s.db.Query(`
		SELECT `+itemColumns+` FROM content_items
		WHERE node_id = $1 AND is_active = TRUE
		  AND (collection_id = $2 OR collection_id IS NULL)
		ORDER BY position, collection_id NULLS LAST, created_at
	`, nodeID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list items for view: %w", err)
	}
	return collectItems(rows)
}

// ListUncategorized returns active items parked outside the tree, oldest first.
func (s *ContentItemStore) ListUncategorized(limit int) ([]models.ContentItem, error) {
	rows, err := s.db.Query(`
		SELECT `+itemColumns+` FROM content_items
		WHERE node_id IS NULL AND is_active = TRUE
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uncategorized items: %w", err)
	}
	return collectItems(rows)
}

// CountByNode returns the number of active items attached to a node.
func (s *ContentItemStore) CountByNode(nodeID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM content_items
		WHERE node_id = $1 AND is_active = TRUE
	`, nodeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items by node: %w", err)
	}
	return count, nil
}

// ListPendingSync returns items the external index has not seen at their
// current version: never synced, or edited since the recorded sync point.
func (s *ContentItemStore) ListPendingSync(limit int) ([]models.ContentItem, error) {
	rows, err := s.db.Query(`
		SELECT `+itemColumns+` FROM content_items
		WHERE external_synced_at IS NULL OR updated_at > external_synced_at
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	return collectItems(rows)
}

// MarkSynced records a completed export for an item.
func (s *ContentItemStore) MarkSynced(id uuid.UUID, externalRef string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE content_items SET external_ref = $1, external_synced_at = $2
		WHERE id = $3
	`, externalRef, at, id)
	if err != nil {
		return fmt.Errorf("mark item synced: %w", err)
	}
	return nil
}

// collectItems drains rows into a slice.
func collectItems(rows *sql.Rows) ([]models.ContentItem, error) {
	defer rows.Close()
	var items []models.ContentItem
	for rows.Next() {
		c, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// nullableJSON maps an empty payload to SQL NULL instead of an empty string,
// which jsonb would reject.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
