// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"arbor/internal/models"
)

// revisionColumns lists all columns for item_revisions SELECTs.
const revisionColumns = `id, item_id, node_id, collection_id, item_type, body, payload,
	version, edited_by, created_at`

// ItemRevisionStore provides read access to content item edit snapshots.
// Snapshots are written by ContentItemStore.Update inside the same
// transaction as the edit; this store only reads them back.
type ItemRevisionStore struct {
	db *sql.DB
}

// NewItemRevisionStore creates a new ItemRevisionStore backed by the given database.
func NewItemRevisionStore(db *sql.DB) *ItemRevisionStore {
	return &ItemRevisionStore{db: db}
}

// scanRevision scans a single item_revisions row into an ItemRevision.
func scanRevision(scanner interface{ Scan(...any) error }) (*models.ItemRevision, error) {
	var r models.ItemRevision
	err := scanner.Scan(
		&r.ID, &r.ItemID, &r.NodeID, &r.CollectionID, &r.Type, &r.Body,
		&r.Payload, &r.Version, &r.EditedBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByItemID returns all revisions for a content item, newest first.
func (s *ItemRevisionStore) ListByItemID(itemID uuid.UUID) ([]*models.ItemRevision, error) {
	rows, err := s.db.Query(`
		SELECT `+revisionColumns+`
		FROM item_revisions
		WHERE item_id = $1
		ORDER BY created_at DESC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*models.ItemRevision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item revision: %w", err)
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}

// FindByID returns a single revision by its ID. Returns nil if not found.
func (s *ItemRevisionStore) FindByID(id uuid.UUID) (*models.ItemRevision, error) {
	row := s.db.QueryRow(`
		SELECT `+revisionColumns+` FROM item_revisions WHERE id = $1
	`, id)
	r, err := scanRevision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item revision: %w", err)
	}
	return r, nil
}

// Count returns the number of revisions for a content item.
func (s *ItemRevisionStore) Count(itemID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM item_revisions WHERE item_id = $1
	`, itemID).Scan(&count)
	return count, err
}
