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

// BindingStore manages collection↔template bindings. A pair binds at most
// once; the unique constraint makes a duplicate insert fail in the database
// rather than racing an application-side check.
type BindingStore struct {
	db *sql.DB
}

// NewBindingStore returns a new BindingStore.
func NewBindingStore(db *sql.DB) *BindingStore {
	return &BindingStore{db: db}
}

const bindingColumns = `id, collection_id, template_id, bound_version, pinned_node_id, created_at`

// scanBinding scans a row into a TemplateBinding.
func scanBinding(scanner interface{ Scan(...any) error }) (*models.TemplateBinding, error) {
	var b models.TemplateBinding
	err := scanner.Scan(
		&b.ID, &b.CollectionID, &b.TemplateID, &b.BoundVersion, &b.PinnedNodeID, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a binding pinned to the template's current version.
// A duplicate (collection, template) pair surfaces as a unique-constraint
// violation; the tree service maps that to its error kind.
func (s *BindingStore) Create(collectionID, templateID uuid.UUID, pinnedNodeID *uuid.UUID) (*models.TemplateBinding, error) {
	row := s.db.QueryRow(`
		INSERT INTO collection_template_bindings (collection_id, template_id, bound_version, pinned_node_id)
		SELECT $1, id, version, $3 FROM templates WHERE id = $2
		RETURNING `+bindingColumns,
		collectionID, templateID, pinnedNodeID,
	)
	return scanBinding(row)
}

// FindPair retrieves the binding for a (collection, template) pair.
// Returns nil if the pair is not bound.
func (s *BindingStore) FindPair(collectionID, templateID uuid.UUID) (*models.TemplateBinding, error) {
	row := s.db.QueryRow(`
		SELECT `+bindingColumns+` FROM collection_template_bindings
		WHERE collection_id = $1 AND template_id = $2
	`, collectionID, templateID)
	b, err := scanBinding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find binding: %w", err)
	}
	return b, nil
}

// ListByCollection returns all templates a collection has adopted.
func (s *BindingStore) ListByCollection(collectionID uuid.UUID) ([]models.TemplateBinding, error) {
	return s.list(`collection_id`, collectionID)
}

// ListByTemplate returns all collections bound to a template. The tree
// service consults this before allowing destructive structural edits.
func (s *BindingStore) ListByTemplate(templateID uuid.UUID) ([]models.TemplateBinding, error) {
	return s.list(`template_id`, templateID)
}

func (s *BindingStore) list(column string, id uuid.UUID) ([]models.TemplateBinding, error) {
	rows, err := s.db.Query(`
		SELECT `+bindingColumns+` FROM collection_template_bindings
		WHERE `+column+` = $1
		ORDER BY created_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []models.TemplateBinding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, *b)
	}
	return bindings, rows.Err()
}

// Migrate advances a binding to the template's current version. This is the
// explicit step that moves a collection onto a restructured template; it is
// never performed implicitly by template edits.
func (s *BindingStore) Migrate(collectionID, templateID uuid.UUID) (*models.TemplateBinding, error) {
	row := s.db.QueryRow(`
		UPDATE collection_template_bindings b
		SET bound_version = t.version
		FROM templates t
		WHERE t.id = b.template_id
		  AND b.collection_id = $1 AND b.template_id = $2
		RETURNING `+prefixedBindingColumns("b"),
		collectionID, templateID,
	)
	b, err := scanBinding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("migrate binding: %w", err)
	}
	return b, nil
}

// prefixedBindingColumns qualifies the binding column list with a table alias.
func prefixedBindingColumns(alias string) string {
	return alias + ".id, " + alias + ".collection_id, " + alias + ".template_id, " +
		alias + ".bound_version, " + alias + ".pinned_node_id, " + alias + ".created_at"
}
