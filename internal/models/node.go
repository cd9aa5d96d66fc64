// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnerKind says which kind of tree a node belongs to: a standalone
// collection tree or a shared template skeleton.
type OwnerKind string

const (
	OwnerKindCollection OwnerKind = "collection"
	OwnerKindTemplate   OwnerKind = "template"
)

// OwnerScope identifies the tree a node lives in. A node is owned by exactly
// one collection or exactly one template, never both and never neither.
// Construct values through CollectionOwner or TemplateOwner so the invalid
// states cannot be expressed.
type OwnerScope struct {
	Kind OwnerKind
	ID   uuid.UUID
}

// CollectionOwner returns the owner scope for a collection-owned node.
func CollectionOwner(collectionID uuid.UUID) OwnerScope {
	return OwnerScope{Kind: OwnerKindCollection, ID: collectionID}
}

// TemplateOwner returns the owner scope for a template-owned node.
func TemplateOwner(templateID uuid.UUID) OwnerScope {
	return OwnerScope{Kind: OwnerKindTemplate, ID: templateID}
}

// Valid reports whether the scope carries a kind and a non-nil owner id.
func (o OwnerScope) Valid() bool {
	if o.ID == uuid.Nil {
		return false
	}
	return o.Kind == OwnerKindCollection || o.Kind == OwnerKindTemplate
}

// CollectionID returns the owning collection id, or nil for template-owned
// scopes. Used when splitting the scope back into its two storage columns.
func (o OwnerScope) CollectionID() *uuid.UUID {
	if o.Kind == OwnerKindCollection {
		id := o.ID
		return &id
	}
	return nil
}

// TemplateID returns the owning template id, or nil for collection-owned scopes.
func (o OwnerScope) TemplateID() *uuid.UUID {
	if o.Kind == OwnerKindTemplate {
		id := o.ID
		return &id
	}
	return nil
}

// OwnerFromColumns rebuilds an OwnerScope from the two nullable storage
// columns. Returns a zero scope (Valid() == false) if the row violates the
// one-owner constraint; the database CHECK makes that unreachable for
// committed rows.
func OwnerFromColumns(collectionID, templateID *uuid.UUID) OwnerScope {
	switch {
	case collectionID != nil && templateID == nil:
		return CollectionOwner(*collectionID)
	case templateID != nil && collectionID == nil:
		return TemplateOwner(*templateID)
	default:
		return OwnerScope{}
	}
}

// Node is one element of a hierarchical category tree. Depth is 0 for roots
// and Path holds the full ancestor chain root→self, self included, so
// Depth == len(Path)-1 always holds for live nodes.
type Node struct {
	ID           uuid.UUID  `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	ParentID     *uuid.UUID `json:"parent_id"`
	Depth        int        `json:"depth"`
	Path         UUIDArray  `json:"path"`
	Owner        OwnerScope `json:"-"`
	DisplayOrder int        `json:"display_order"`
	IsActive     bool       `json:"is_active"`
	IsDeleted    bool       `json:"is_deleted"`
	DeletedBy    *string    `json:"deleted_by,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Virtual fields populated by the query service.
	ChildCount int `json:"child_count"`
	ItemCount  int `json:"item_count"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}
