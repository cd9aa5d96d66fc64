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

// TemplateStore handles template metadata. Template node trees live in
// category_nodes and are maintained by the tree service; the version here
// records how many structural changes that tree has seen.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, name, slug, description, version, is_active, created_at, updated_at`

// scanTemplate scans a row into a Template.
func scanTemplate(scanner interface{ Scan(...any) error }) (*models.Template, error) {
	var t models.Template
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Description, &t.Version,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all templates ordered by name.
func (s *TemplateStore) List() ([]models.Template, error) {
	rows, err := s.db.Query(`
		SELECT ` + templateColumns + ` FROM templates ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(id uuid.UUID) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// FindBySlug retrieves a template by slug. Returns nil if not found.
func (s *TemplateStore) FindBySlug(slug string) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE slug = $1`, slug)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by slug: %w", err)
	}
	return t, nil
}

// Create inserts a new template at version 1.
func (s *TemplateStore) Create(t *models.Template) (*models.Template, error) {
	row := s.db.QueryRow(`
		INSERT INTO templates (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING `+templateColumns,
		t.Name, t.Slug, t.Description,
	)
	result, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return result, nil
}

// UpdateMeta modifies a template's display fields. The version is not
// touched: only structural changes to the node tree bump it.
func (s *TemplateStore) UpdateMeta(t *models.Template) error {
	_, err := s.db.Exec(`
		UPDATE templates SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
	`, t.Name, t.Description, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// SetActive toggles whether new bindings may adopt the template.
func (s *TemplateStore) SetActive(id uuid.UUID, active bool) error {
	_, err := s.db.Exec(`
		UPDATE templates SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	return nil
}
