package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates the database with initial development data: two demo
// collections bound to a shared persona-stage template, a small category
// tree on each side, and per-collection override items on one shared stage
// node. It is a no-op when collections already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM collections").Scan(&count); err != nil {
		return fmt.Errorf("seed check collections: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var collectionA, collectionB, templateID string
	err = tx.QueryRow(`
		INSERT INTO collections (name, slug) VALUES ('Collection A', 'collection-a')
		RETURNING id
	`).Scan(&collectionA)
	if err != nil {
		return fmt.Errorf("seed collection a: %w", err)
	}
	err = tx.QueryRow(`
		INSERT INTO collections (name, slug) VALUES ('Collection B', 'collection-b')
		RETURNING id
	`).Scan(&collectionB)
	if err != nil {
		return fmt.Errorf("seed collection b: %w", err)
	}
	err = tx.QueryRow(`
		INSERT INTO templates (name, slug, description)
		VALUES ('Persona Stage Template', 'persona-stage-template',
		        'Shared stage skeleton adopted by demo collections')
		RETURNING id
	`).Scan(&templateID)
	if err != nil {
		return fmt.Errorf("seed template: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO collection_template_bindings (collection_id, template_id, bound_version)
		VALUES ($1, $3, 1), ($2, $3, 1)
	`, collectionA, collectionB, templateID)
	if err != nil {
		return fmt.Errorf("seed bindings: %w", err)
	}

	// Template skeleton: a root with three stage children. Each row is
	// inserted with its id and full path in one statement so the depth/path
	// check holds; at runtime the tree service does the same.
	var stagesRoot string
	err = tx.QueryRow(`
		WITH new_node AS (SELECT gen_random_uuid() AS id)
		INSERT INTO category_nodes (id, slug, name, template_id, depth, path)
		SELECT id, 'stages', 'Stages', $1, 0, ARRAY[id] FROM new_node
		RETURNING id
	`, templateID).Scan(&stagesRoot)
	if err != nil {
		return fmt.Errorf("seed template root: %w", err)
	}

	var stage01 string
	for i, stage := range []struct{ slug, name string }{
		{"stage-01", "Stage 01"},
		{"stage-02", "Stage 02"},
		{"stage-03", "Stage 03"},
	} {
		var id string
		err = tx.QueryRow(`
			WITH new_node AS (SELECT gen_random_uuid() AS id)
			INSERT INTO category_nodes (id, slug, name, template_id, parent_id, depth, path, display_order)
			SELECT id, $1, $2, $3, $4, 1, ARRAY[$4::uuid, id], $5 FROM new_node
			RETURNING id
		`, stage.slug, stage.name, templateID, stagesRoot, i).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed stage %s: %w", stage.slug, err)
		}
		if i == 0 {
			stage01 = id
		}
	}

	// Per-collection overrides on the shared Stage 01 node, plus one generic
	// template item with no collection scope.
	_, err = tx.Exec(`
		INSERT INTO content_items (node_id, collection_id, item_type, body, position)
		VALUES
			($1, NULL, 'prompt', 'Generic stage opening prompt.', 0),
			($1, $2, 'prompt', 'Collection A opening prompt for Stage 01.', 0),
			($1, $3, 'prompt', 'Collection B opening prompt for Stage 01.', 0)
	`, stage01, collectionA, collectionB)
	if err != nil {
		return fmt.Errorf("seed content items: %w", err)
	}

	// A small standalone tree on Collection A, outside the template.
	var prayerRoot string
	err = tx.QueryRow(`
		WITH new_node AS (SELECT gen_random_uuid() AS id)
		INSERT INTO category_nodes (id, slug, name, collection_id, depth, path)
		SELECT id, 'prayer', 'Prayer', $1, 0, ARRAY[id] FROM new_node
		RETURNING id
	`, collectionA).Scan(&prayerRoot)
	if err != nil {
		return fmt.Errorf("seed prayer root: %w", err)
	}

	err = tx.QueryRow(`
		WITH new_node AS (SELECT gen_random_uuid() AS id)
		INSERT INTO category_nodes (id, slug, name, collection_id, parent_id, depth, path)
		SELECT id, 'prayer-rooms', 'Prayer Rooms', $1, $2, 1, ARRAY[$2::uuid, id] FROM new_node
		RETURNING id
	`, collectionA, prayerRoot).Scan(new(string))
	if err != nil {
		return fmt.Errorf("seed prayer rooms: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo collections and template tree",
		"collections", 2,
		"template", "persona-stage-template",
	)
	return nil
}
