// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"arbor/internal/models"
	"arbor/internal/tree"
)

const defaultListLimit = 100

// limitParam reads a positive limit query parameter, falling back to the
// default when absent or malformed.
func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultListLimit
}

// ItemCreate attaches a content item to a node, or parks it uncategorized
// when node_id is null.
func (a *Admin) ItemCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID       *string         `json:"node_id"`
		CollectionID *string         `json:"collection_id"`
		Type         string          `json:"item_type"`
		Body         string          `json:"body"`
		Payload      json.RawMessage `json:"payload"`
		Position     int             `json:"position"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if !models.ValidItemType(models.ItemType(req.Type)) {
		badRequest(w, "unknown item_type")
		return
	}
	if msg := validateItemBody(req.Body); msg != "" {
		badRequest(w, msg)
		return
	}

	item := &models.ContentItem{
		Type:     models.ItemType(req.Type),
		Body:     req.Body,
		Payload:  req.Payload,
		Position: req.Position,
		IsActive: true,
	}
	if req.CollectionID != nil {
		id, err := uuid.Parse(*req.CollectionID)
		if err != nil {
			badRequest(w, "invalid collection_id")
			return
		}
		item.CollectionID = &id
	}
	if req.NodeID != nil {
		id, err := uuid.Parse(*req.NodeID)
		if err != nil {
			badRequest(w, "invalid node_id")
			return
		}
		// Only live nodes may receive items.
		node, err := a.nodes.FindByID(id)
		if err != nil {
			respondError(w, err)
			return
		}
		if node == nil {
			respondError(w, tree.ErrNodeNotFound)
			return
		}
		// A collection-owned node carries only its own collection's items
		// (or unscoped ones). Cross-collection scoping exists solely for
		// template-shared nodes.
		if node.Owner.Kind == models.OwnerKindCollection &&
			item.CollectionID != nil && *item.CollectionID != node.Owner.ID {
			respondError(w, &tree.Error{
				Kind:    tree.KindInvalidOwnerScope,
				Message: "collection_id must match the node's owning collection",
			})
			return
		}
		item.NodeID = &id
	}

	created, err := a.items.Create(item)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// ItemUpdate edits an item's authored fields. A pre-edit revision is
// recorded automatically.
func (a *Admin) ItemUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}
	var req struct {
		Body     string          `json:"body"`
		Payload  json.RawMessage `json:"payload"`
		Position int             `json:"position"`
		IsActive bool            `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateItemBody(req.Body); msg != "" {
		badRequest(w, msg)
		return
	}

	existing, err := a.items.FindByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if existing == nil {
		respondError(w, tree.ErrNodeNotFound)
		return
	}

	existing.Body = req.Body
	existing.Payload = req.Payload
	existing.Position = req.Position
	existing.IsActive = req.IsActive

	updated, err := a.items.Update(existing, actor(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// ItemPurge hard-deletes an item. Meant for cleaning up uncategorized
// leftovers, not for routine authoring.
func (a *Admin) ItemPurge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}
	if err := a.items.Purge(id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ItemsByNode lists a node's items. With a collection_id query parameter
// the listing is that collection's view: its overrides plus generic items.
func (a *Admin) ItemsByNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid node id")
		return
	}

	var items []models.ContentItem
	if v := r.URL.Query().Get("collection_id"); v != "" {
		cid, err := uuid.Parse(v)
		if err != nil {
			badRequest(w, "invalid collection_id")
			return
		}
		items, err = a.items.ListForView(nodeID, cid)
		if err != nil {
			respondError(w, err)
			return
		}
	} else {
		items, err = a.items.ListByNode(nodeID)
		if err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, items)
}

// ItemsUncategorized lists items parked outside the tree, oldest first.
func (a *Admin) ItemsUncategorized(w http.ResponseWriter, r *http.Request) {
	items, err := a.items.ListUncategorized(limitParam(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// ItemRevisions returns an item's edit history, newest first.
func (a *Admin) ItemRevisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}
	revisions, err := a.revisions.ListByItemID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, revisions)
}

// ExportPending lists items the external index has not seen at their
// current version.
func (a *Admin) ExportPending(w http.ResponseWriter, r *http.Request) {
	items, err := a.items.ListPendingSync(limitParam(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// ExportMarkSynced records a completed export for an item.
func (a *Admin) ExportMarkSynced(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}
	var req struct {
		ExternalRef string `json:"external_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ExternalRef == "" {
		badRequest(w, "external_ref is required")
		return
	}

	if err := a.items.MarkSynced(id, req.ExternalRef, time.Now().UTC()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
