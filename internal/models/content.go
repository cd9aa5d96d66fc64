// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ItemType is the closed set of content item kinds a node can carry.
type ItemType string

const (
	ItemTypeDirective   ItemType = "directive"
	ItemTypePropertyRef ItemType = "property_ref"
	ItemTypeEventRule   ItemType = "event_rule"
	ItemTypePrompt      ItemType = "prompt"
	ItemTypeInstruction ItemType = "instruction"
	ItemTypeReference   ItemType = "reference"
	ItemTypeMetadata    ItemType = "metadata"
)

// ValidItemType reports whether t is one of the known item kinds.
func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeDirective, ItemTypePropertyRef, ItemTypeEventRule,
		ItemTypePrompt, ItemTypeInstruction, ItemTypeReference, ItemTypeMetadata:
		return true
	}
	return false
}

// ContentItem is a leaf-level piece of authored content attached to a tree
// node. NodeID is nil for uncategorized items (the parking state used by
// cascade deletion). CollectionID scopes an item to one collection when the
// node itself belongs to a shared template; nil means the generic template
// answer. Version increments on every edit, and the external-index linkage
// fields let the export pipeline sync incrementally.
type ContentItem struct {
	ID           uuid.UUID  `json:"id"`
	NodeID       *uuid.UUID `json:"node_id"`
	CollectionID *uuid.UUID `json:"collection_id,omitempty"`
	Type         ItemType   `json:"item_type"`
	Body         string     `json:"body"`
	// Payload is optional structured JSON, passed through verbatim between
	// the API and the jsonb column. json.RawMessage keeps it a JSON value
	// on the wire instead of a base64 string.
	Payload          json.RawMessage `json:"payload,omitempty"`
	Position         int             `json:"position"`
	IsActive         bool            `json:"is_active"`
	Version          int             `json:"version"`
	ExternalRef      *string         `json:"external_ref,omitempty"`
	ExternalSyncedAt *time.Time      `json:"external_synced_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsUncategorized reports whether the item is parked outside the tree.
func (c *ContentItem) IsUncategorized() bool {
	return c.NodeID == nil
}

// NeedsSync reports whether the item has edits the external index has not
// seen yet: never synced, or edited after the recorded sync point.
func (c *ContentItem) NeedsSync() bool {
	if c.ExternalSyncedAt == nil {
		return true
	}
	return c.UpdatedAt.After(*c.ExternalSyncedAt)
}

// ItemRevision stores a snapshot of a content item's state before an edit.
// Created automatically on every update, it enables reverting to previous
// versions and gives the export pipeline a stable history.
type ItemRevision struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       uuid.UUID       `json:"item_id"`
	NodeID       *uuid.UUID      `json:"node_id"`
	CollectionID *uuid.UUID      `json:"collection_id,omitempty"`
	Type         ItemType        `json:"item_type"`
	Body         string          `json:"body"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Version      int             `json:"version"`
	EditedBy     string          `json:"edited_by"`
	CreatedAt    time.Time       `json:"created_at"`
}
