// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is a named, reusable tree skeleton. Its node tree is authored
// once and adopted by many collections; Version increments on every
// structural change to that tree so bindings can pin the shape they adopted.
type Template struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TemplateBinding records a collection's adoption of a template.
// BoundVersion is the template version at bind time; a binding stays on
// that version until it is explicitly migrated. A (collection, template)
// pair binds at most once.
type TemplateBinding struct {
	ID           uuid.UUID  `json:"id"`
	CollectionID uuid.UUID  `json:"collection_id"`
	TemplateID   uuid.UUID  `json:"template_id"`
	BoundVersion int        `json:"bound_version"`
	PinnedNodeID *uuid.UUID `json:"pinned_node_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
