// tree_test.go provides the shared database fixture for the tree service
// integration tests. Tests are skipped if PostgreSQL is not available.
package tree

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"arbor/internal/database"
	"arbor/internal/models"
	"arbor/internal/store"
)

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

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
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

// testService wires a Service with the default depth limit of 4.
func testService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	return testServiceDepth(t, db, 4)
}

func testServiceDepth(t *testing.T, db *sql.DB, maxDepth int) *Service {
	t.Helper()
	return NewService(db,
		store.NewNodeStore(db),
		store.NewTemplateStore(db),
		store.NewCollectionStore(db),
		store.NewBindingStore(db),
		store.NewAuditStore(db),
		maxDepth,
	)
}

func testQuery(t *testing.T, db *sql.DB) *QueryService {
	t.Helper()
	return NewQueryService(db, store.NewNodeStore(db), store.NewContentItemStore(db))
}

func makeCollection(t *testing.T, db *sql.DB) *models.Collection {
	t.Helper()
	c, err := store.NewCollectionStore(db).Create(&models.Collection{
		Name: "Tree Test Collection",
		Slug: "tree-coll-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	t.Cleanup(func() { cleanOwnedRows(db, "collection_id", c.ID); db.Exec(`DELETE FROM collections WHERE id = $1`, c.ID) })
	return c
}

func makeTemplate(t *testing.T, db *sql.DB) *models.Template {
	t.Helper()
	tpl, err := store.NewTemplateStore(db).Create(&models.Template{
		Name: "Tree Test Template",
		Slug: "tree-tpl-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	t.Cleanup(func() { cleanOwnedRows(db, "template_id", tpl.ID); db.Exec(`DELETE FROM templates WHERE id = $1`, tpl.ID) })
	return tpl
}

// cleanOwnedRows removes every row scoped to one owner column value.
func cleanOwnedRows(db *sql.DB, column string, id uuid.UUID) {
	db.Exec(`DELETE FROM item_revisions WHERE item_id IN
		(SELECT id FROM content_items WHERE node_id IN
			(SELECT id FROM category_nodes WHERE `+column+` = $1))`, id)
	db.Exec(`DELETE FROM content_items WHERE `+column+` = $1
		OR node_id IN (SELECT id FROM category_nodes WHERE `+column+` = $1)`, id)
	db.Exec(`DELETE FROM collection_template_bindings WHERE `+column+` = $1`, id)
	db.Exec(`DELETE FROM tree_audit_log WHERE node_id IN
		(SELECT id FROM category_nodes WHERE `+column+` = $1)`, id)
	db.Exec(`DELETE FROM category_nodes WHERE `+column+` = $1`, id)
}

// mustCreateNode creates a node through the service and fails the test on error.
func mustCreateNode(t *testing.T, svc *Service, owner models.OwnerScope, parentID *uuid.UUID, slug string) *models.Node {
	t.Helper()
	n, err := svc.CreateNode(context.Background(), CreateNodeParams{
		Owner:    owner,
		ParentID: parentID,
		Slug:     slug,
		Name:     slug,
		Actor:    "tests",
	})
	if err != nil {
		t.Fatalf("create node %q: %v", slug, err)
	}
	return n
}

// addItem attaches an active content item to a node directly.
func addItem(t *testing.T, db *sql.DB, nodeID uuid.UUID, collectionID *uuid.UUID, body string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(`
		INSERT INTO content_items (node_id, collection_id, item_type, body)
		VALUES ($1, $2, 'prompt', $3)
		RETURNING id
	`, nodeID, collectionID, body).Scan(&id)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return id
}

func fetchNodeRow(t *testing.T, db *sql.DB, id uuid.UUID) *models.Node {
	t.Helper()
	n, err := store.NewNodeStore(db).FindByID(id)
	if err != nil {
		t.Fatalf("fetch node: %v", err)
	}
	return n
}

func templateVersion(t *testing.T, db *sql.DB, id uuid.UUID) int {
	t.Helper()
	var v int
	if err := db.QueryRow(`SELECT version FROM templates WHERE id = $1`, id).Scan(&v); err != nil {
		t.Fatalf("template version: %v", err)
	}
	return v
}
