// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"arbor/internal/database"
	"arbor/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "arbor")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "arbor")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// createTestCollection inserts a collection with a unique slug and registers
// cleanup for it and everything it owns.
func createTestCollection(t *testing.T, db *sql.DB) *models.Collection {
	t.Helper()
	s := NewCollectionStore(db)
	c, err := s.Create(&models.Collection{
		Name: "Test Collection",
		Slug: "test-coll-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("create test collection: %v", err)
	}
	t.Cleanup(func() { cleanCollection(t, db, c.ID) })
	return c
}

// createTestTemplate inserts a template with a unique slug and registers
// cleanup for it and everything it owns.
func createTestTemplate(t *testing.T, db *sql.DB) *models.Template {
	t.Helper()
	s := NewTemplateStore(db)
	tpl, err := s.Create(&models.Template{
		Name: "Test Template",
		Slug: "test-tpl-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("create test template: %v", err)
	}
	t.Cleanup(func() { cleanTemplate(t, db, tpl.ID) })
	return tpl
}

// insertRoot creates a root node directly via SQL with a valid path, the
// same shape the tree service writes.
func insertRoot(t *testing.T, db *sql.DB, owner models.OwnerScope, slug string) *models.Node {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(`
		WITH new_node AS (SELECT gen_random_uuid() AS id)
		INSERT INTO category_nodes (id, slug, name, collection_id, template_id, depth, path)
		SELECT id, $1, $2, $3, $4, 0, ARRAY[id] FROM new_node
		RETURNING id
	`, slug, slug, owner.CollectionID(), owner.TemplateID()).Scan(&id)
	if err != nil {
		t.Fatalf("insert root node: %v", err)
	}
	return fetchNode(t, db, id)
}

// insertChild creates a child node directly under parent.
func insertChild(t *testing.T, db *sql.DB, parent *models.Node, slug string, order int) *models.Node {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(`
		WITH new_node AS (SELECT gen_random_uuid() AS id)
		INSERT INTO category_nodes (id, slug, name, collection_id, template_id, parent_id, depth, path, display_order)
		SELECT id, $1, $2, $3, $4, $5, $6, $7::uuid[] || id, $8 FROM new_node
		RETURNING id
	`, slug, slug, parent.Owner.CollectionID(), parent.Owner.TemplateID(),
		parent.ID, parent.Depth+1, parent.Path, order).Scan(&id)
	if err != nil {
		t.Fatalf("insert child node: %v", err)
	}
	return fetchNode(t, db, id)
}

func fetchNode(t *testing.T, db *sql.DB, id uuid.UUID) *models.Node {
	t.Helper()
	n, err := NewNodeStore(db).FindByID(id)
	if err != nil {
		t.Fatalf("fetch node: %v", err)
	}
	if n == nil {
		t.Fatalf("fetch node: %s not found", id)
	}
	return n
}

// cleanCollection removes a collection and all rows scoped to it.
func cleanCollection(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	db.Exec(`DELETE FROM item_revisions WHERE collection_id = $1
		OR item_id IN (SELECT id FROM content_items WHERE node_id IN
			(SELECT id FROM category_nodes WHERE collection_id = $1))`, id)
	db.Exec(`DELETE FROM content_items WHERE collection_id = $1
		OR node_id IN (SELECT id FROM category_nodes WHERE collection_id = $1)`, id)
	db.Exec(`DELETE FROM collection_template_bindings WHERE collection_id = $1`, id)
	db.Exec(`DELETE FROM tree_audit_log WHERE node_id IN
		(SELECT id FROM category_nodes WHERE collection_id = $1)`, id)
	db.Exec(`DELETE FROM category_nodes WHERE collection_id = $1`, id)
	db.Exec(`DELETE FROM collections WHERE id = $1`, id)
}

// cleanTemplate removes a template and all rows scoped to it.
func cleanTemplate(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	db.Exec(`DELETE FROM item_revisions WHERE item_id IN
		(SELECT id FROM content_items WHERE node_id IN
			(SELECT id FROM category_nodes WHERE template_id = $1))`, id)
	db.Exec(`DELETE FROM content_items WHERE node_id IN
		(SELECT id FROM category_nodes WHERE template_id = $1)`, id)
	db.Exec(`DELETE FROM collection_template_bindings WHERE template_id = $1`, id)
	db.Exec(`DELETE FROM tree_audit_log WHERE node_id IN
		(SELECT id FROM category_nodes WHERE template_id = $1)`, id)
	db.Exec(`DELETE FROM category_nodes WHERE template_id = $1`, id)
	db.Exec(`DELETE FROM templates WHERE id = $1`, id)
}
