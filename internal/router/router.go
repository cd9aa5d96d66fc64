// Package router wires the arbor HTTP API: node and tree routes, content
// item routes, template and collection management, and the export feed.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"arbor/internal/handlers"
	"arbor/internal/middleware"
)

// New creates the configured Chi router with all middleware and routes.
func New(admin *handlers.Admin) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Structural mutations are the expensive path; cap them per client.
	limiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		// Tree listing for an owner scope.
		r.Get("/tree", admin.Tree)

		// Category nodes.
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", admin.NodeCreate)
			r.Post("/reorder", admin.NodeReorder)
			r.Put("/{id}/name", admin.NodeRename)
			r.Put("/{id}/parent", admin.NodeReparent)
			r.Delete("/{id}", admin.NodeDelete)
			r.Get("/{id}/ancestors", admin.NodeAncestors)
			r.Get("/{id}/descendants", admin.NodeDescendants)
			r.Get("/{id}/items", admin.ItemsByNode)
			r.Get("/{id}/audit", admin.NodeAudit)
		})

		// Content items.
		r.Route("/items", func(r chi.Router) {
			r.Post("/", admin.ItemCreate)
			r.Get("/uncategorized", admin.ItemsUncategorized)
			r.Put("/{id}", admin.ItemUpdate)
			r.Delete("/{id}", admin.ItemPurge)
			r.Get("/{id}/revisions", admin.ItemRevisions)
		})

		// Templates.
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", admin.TemplatesList)
			r.Post("/", admin.TemplateCreate)
			r.Get("/{id}", admin.TemplateGet)
		})

		// Collections.
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", admin.CollectionsList)
			r.Post("/", admin.CollectionCreate)
			r.Get("/{id}/bindings", admin.CollectionBindings)
		})

		// Collection-to-template bindings.
		r.Route("/bindings", func(r chi.Router) {
			r.Post("/", admin.BindingCreate)
			r.Post("/migrate", admin.BindingMigrate)
		})

		// Export feed for the external index.
		r.Route("/export", func(r chi.Router) {
			r.Get("/pending", admin.ExportPending)
			r.Post("/{id}/synced", admin.ExportMarkSynced)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
