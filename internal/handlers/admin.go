// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arbor/internal/cache"
	"arbor/internal/models"
	"arbor/internal/slug"
	"arbor/internal/store"
	"arbor/internal/tree"
)

// Admin groups the authoring API handlers and their dependencies.
type Admin struct {
	svc         *tree.Service
	query       *tree.QueryService
	nodes       *store.NodeStore
	items       *store.ContentItemStore
	revisions   *store.ItemRevisionStore
	templates   *store.TemplateStore
	collections *store.CollectionStore
	bindings    *store.BindingStore
	audit       *store.AuditStore
	treeCache   *cache.TreeCache
}

// NewAdmin creates the admin handler group with the given dependencies.
// treeCache may be nil when Valkey is not configured.
func NewAdmin(svc *tree.Service, query *tree.QueryService, nodes *store.NodeStore, items *store.ContentItemStore, revisions *store.ItemRevisionStore, templates *store.TemplateStore, collections *store.CollectionStore, bindings *store.BindingStore, audit *store.AuditStore, treeCache *cache.TreeCache) *Admin {
	return &Admin{
		svc:         svc,
		query:       query,
		nodes:       nodes,
		items:       items,
		revisions:   revisions,
		templates:   templates,
		collections: collections,
		bindings:    bindings,
		audit:       audit,
		treeCache:   treeCache,
	}
}

// parseOwner reads an owner scope from a kind + id pair.
func parseOwner(kind, id string) (models.OwnerScope, error) {
	ownerID, err := uuid.Parse(id)
	if err != nil {
		return models.OwnerScope{}, fmt.Errorf("invalid owner id %q", id)
	}
	switch models.OwnerKind(kind) {
	case models.OwnerKindCollection:
		return models.CollectionOwner(ownerID), nil
	case models.OwnerKindTemplate:
		return models.TemplateOwner(ownerID), nil
	}
	return models.OwnerScope{}, fmt.Errorf("owner kind must be %q or %q", models.OwnerKindCollection, models.OwnerKindTemplate)
}

// pathID parses a UUID route parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// --- Nodes ---

// NodeCreate handles node creation. The slug defaults to a normalized form
// of the name when omitted.
func (a *Admin) NodeCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerKind    string  `json:"owner_kind"`
		OwnerID      string  `json:"owner_id"`
		ParentID     *string `json:"parent_id"`
		Slug         string  `json:"slug"`
		Name         string  `json:"name"`
		DisplayOrder *int    `json:"display_order"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	owner, err := parseOwner(req.OwnerKind, req.OwnerID)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if msg := validateNode(req.Name, req.Slug); msg != "" {
		badRequest(w, msg)
		return
	}
	if req.Slug == "" {
		req.Slug = slug.Generate(req.Name)
	}

	var parentID *uuid.UUID
	if req.ParentID != nil {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			badRequest(w, "invalid parent_id")
			return
		}
		parentID = &id
	}

	order := 0
	if req.DisplayOrder != nil {
		order = *req.DisplayOrder
	} else if next, err := a.nodes.NextDisplayOrder(owner, parentID); err == nil {
		order = next
	}

	node, err := a.svc.CreateNode(r.Context(), tree.CreateNodeParams{
		Owner:        owner,
		ParentID:     parentID,
		Slug:         req.Slug,
		Name:         req.Name,
		DisplayOrder: order,
		Actor:        actor(r),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	a.invalidateTree(r, owner)
	respondJSON(w, http.StatusCreated, node)
}

// NodeRename updates a node's display name only; structure is untouched.
func (a *Admin) NodeRename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateNode(req.Name, ""); msg != "" {
		badRequest(w, msg)
		return
	}

	if err := a.nodes.UpdateName(id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, tree.ErrNodeNotFound)
			return
		}
		respondError(w, err)
		return
	}
	node, err := a.nodes.FindByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

// NodeReparent moves a node (with its subtree) under a new parent, or to
// the root when parent_id is null.
func (a *Admin) NodeReparent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}
	var req struct {
		ParentID *string `json:"parent_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil {
		pid, err := uuid.Parse(*req.ParentID)
		if err != nil {
			badRequest(w, "invalid parent_id")
			return
		}
		parentID = &pid
	}

	node, err := a.svc.ReparentNode(r.Context(), id, parentID, actor(r))
	if err != nil {
		respondError(w, err)
		return
	}

	a.invalidateTree(r, node.Owner)
	respondJSON(w, http.StatusOK, node)
}

// NodeDelete removes a node under the policy given by the mode query
// parameter (block, reassign, or cascade).
func (a *Admin) NodeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}
	policy, err := tree.ParsePolicy(r.URL.Query().Get("mode"))
	if err != nil {
		badRequest(w, "mode must be one of: block, reassign, cascade")
		return
	}

	// The owner scope is needed for cache invalidation after the node is gone.
	node, err := a.nodes.FindByID(id)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := a.svc.DeleteNode(r.Context(), id, policy, actor(r))
	if err != nil {
		// A blocked deletion still reports its counts alongside the refusal.
		if result != nil {
			respondJSON(w, http.StatusConflict, result)
			return
		}
		respondError(w, err)
		return
	}

	if node != nil {
		a.invalidateTree(r, node.Owner)
	}
	respondJSON(w, http.StatusOK, result)
}

// NodeReorder updates display order for a batch of siblings.
func (a *Admin) NodeReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []store.ReorderItem `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		badRequest(w, "items must not be empty")
		return
	}

	if err := a.nodes.Reorder(req.Items); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// NodeAncestors resolves the node's ancestor names, root to self.
func (a *Admin) NodeAncestors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}
	names, err := a.query.GetAncestorPath(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ancestors": names})
}

// NodeDescendants enumerates a subtree in depth-first order. A collection_id
// query parameter narrows each node's items to that collection's view.
func (a *Admin) NodeDescendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}

	var viewer *uuid.UUID
	if v := r.URL.Query().Get("collection_id"); v != "" {
		cid, err := uuid.Parse(v)
		if err != nil {
			badRequest(w, "invalid collection_id")
			return
		}
		viewer = &cid
	}

	entries, err := a.query.GetDescendants(r.Context(), id, viewer)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// NodeAudit returns the recorded mutation history of a node.
func (a *Admin) NodeAudit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}
	entries, err := a.audit.ListByNode(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// --- Tree listing ---

// Tree returns an owner scope's full tree with aggregate counts, serving
// from the Valkey cache when possible.
func (a *Admin) Tree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := parseOwner(q.Get("owner_kind"), q.Get("owner_id"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var rootID *uuid.UUID
	key := cache.OwnerKey(owner)
	if v := q.Get("root_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			badRequest(w, "invalid root_id")
			return
		}
		rootID = &id
		key = cache.SubtreeKey(owner, id)
	}

	if a.treeCache != nil {
		if payload, ok := a.treeCache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	entries, err := a.query.GetTree(r.Context(), owner, rootID)
	if err != nil {
		respondError(w, err)
		return
	}

	if a.treeCache != nil {
		if payload, err := json.Marshal(entries); err == nil {
			a.treeCache.Set(r.Context(), key, payload)
		}
	}
	respondJSON(w, http.StatusOK, entries)
}

// invalidateTree drops every cached listing for an owner scope.
func (a *Admin) invalidateTree(r *http.Request, owner models.OwnerScope) {
	if a.treeCache != nil {
		a.treeCache.InvalidateOwner(r.Context(), owner)
	}
}

// --- Templates, collections, bindings ---

// TemplatesList returns all templates.
func (a *Admin) TemplatesList(w http.ResponseWriter, r *http.Request) {
	templates, err := a.templates.List()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

// TemplateCreate registers a new template skeleton at version 1.
func (a *Admin) TemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateNode(req.Name, req.Slug); msg != "" {
		badRequest(w, msg)
		return
	}
	if req.Slug == "" {
		req.Slug = slug.Generate(req.Name)
	}

	created, err := a.templates.Create(&models.Template{
		Name: req.Name, Slug: req.Slug, Description: req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// TemplateGet returns one template with its bound collections.
func (a *Admin) TemplateGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid template id")
		return
	}
	template, err := a.templates.FindByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if template == nil {
		respondError(w, tree.ErrNodeNotFound)
		return
	}
	bindings, err := a.bindings.ListByTemplate(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"template": template,
		"bindings": bindings,
	})
}

// CollectionsList returns all collections.
func (a *Admin) CollectionsList(w http.ResponseWriter, r *http.Request) {
	collections, err := a.collections.List()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, collections)
}

// CollectionCreate registers a collection so it can own trees and bindings.
func (a *Admin) CollectionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateNode(req.Name, req.Slug); msg != "" {
		badRequest(w, msg)
		return
	}
	if req.Slug == "" {
		req.Slug = slug.Generate(req.Name)
	}

	created, err := a.collections.Create(&models.Collection{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// BindingCreate binds a collection to a template at the template's current
// version. Duplicate pairs are rejected, never overwritten.
func (a *Admin) BindingCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionID string  `json:"collection_id"`
		TemplateID   string  `json:"template_id"`
		PinnedNodeID *string `json:"pinned_node_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	collectionID, err := uuid.Parse(req.CollectionID)
	if err != nil {
		badRequest(w, "invalid collection_id")
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		badRequest(w, "invalid template_id")
		return
	}
	var pinned *uuid.UUID
	if req.PinnedNodeID != nil {
		id, err := uuid.Parse(*req.PinnedNodeID)
		if err != nil {
			badRequest(w, "invalid pinned_node_id")
			return
		}
		pinned = &id
	}

	binding, err := a.svc.BindCollectionToTemplate(r.Context(), collectionID, templateID, pinned)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, binding)
}

// BindingMigrate advances a binding to its template's current version.
func (a *Admin) BindingMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionID string `json:"collection_id"`
		TemplateID   string `json:"template_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	collectionID, err := uuid.Parse(req.CollectionID)
	if err != nil {
		badRequest(w, "invalid collection_id")
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		badRequest(w, "invalid template_id")
		return
	}

	binding, err := a.svc.MigrateBinding(r.Context(), collectionID, templateID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, binding)
}

// CollectionBindings lists the templates a collection has adopted.
func (a *Admin) CollectionBindings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid collection id")
		return
	}
	bindings, err := a.bindings.ListByCollection(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bindings)
}
