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

// CollectionStore provides minimal access to collections. The wider
// platform owns collection lifecycle; the tree engine only needs lookup
// and enough Create support for seeds and tests.
type CollectionStore struct {
	db *sql.DB
}

// NewCollectionStore returns a new CollectionStore.
func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

const collectionColumns = `id, name, slug, is_active, created_at, updated_at`

// scanCollection scans a row into a Collection.
func scanCollection(scanner interface{ Scan(...any) error }) (*models.Collection, error) {
	var c models.Collection
	err := scanner.Scan(&c.ID, &c.Name, &c.Slug, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all collections ordered by name.
func (s *CollectionStore) List() ([]models.Collection, error) {
	rows, err := s.db.Query(`SELECT ` + collectionColumns + ` FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, *c)
	}
	return collections, rows.Err()
}

// FindByID retrieves a collection by ID. Returns nil if not found.
func (s *CollectionStore) FindByID(id uuid.UUID) (*models.Collection, error) {
	row := s.db.QueryRow(`SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find collection by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a collection by slug. Returns nil if not found.
func (s *CollectionStore) FindBySlug(slug string) (*models.Collection, error) {
	row := s.db.QueryRow(`SELECT `+collectionColumns+` FROM collections WHERE slug = $1`, slug)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find collection by slug: %w", err)
	}
	return c, nil
}

// Create inserts a new collection and returns it.
func (s *CollectionStore) Create(c *models.Collection) (*models.Collection, error) {
	row := s.db.QueryRow(`
		INSERT INTO collections (name, slug) VALUES ($1, $2)
		RETURNING `+collectionColumns,
		c.Name, c.Slug,
	)
	result, err := scanCollection(row)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return result, nil
}
