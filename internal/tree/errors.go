// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tree implements the hierarchical taxonomy engine: transactional
// structural mutations (create, reparent, delete), template binding, and the
// read-side query service. It maintains the materialized-path invariants the
// stores rely on: for every live node, depth == len(path)-1 and
// path == parent.path + [id].
package tree

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies structural failures so callers can react without parsing
// messages. Raw storage errors never carry a Kind.
type Kind string

const (
	KindDepthExceeded        Kind = "depth_exceeded"
	KindDuplicateSibling     Kind = "duplicate_sibling"
	KindParentNotFound       Kind = "parent_not_found"
	KindNodeNotFound         Kind = "node_not_found"
	KindDeletionBlocked      Kind = "deletion_blocked"
	KindInvalidOwnerScope    Kind = "invalid_owner_scope"
	KindTemplateAlreadyBound Kind = "template_already_bound"
)

// Error is a structural invariant violation, detected and rejected before
// commit. Children and Items carry the live counts that explain a refusal,
// so authoring UIs can tell the caller what to move.
type Error struct {
	Kind     Kind
	Message  string
	Children int
	Items    int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Kind, so callers can test
// errors.Is(err, tree.ErrDepthExceeded) regardless of message or counts.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is checks. Returned errors carry specific
// messages and counts; these match on Kind alone.
var (
	ErrDepthExceeded        = &Error{Kind: KindDepthExceeded, Message: "maximum depth exceeded"}
	ErrDuplicateSibling     = &Error{Kind: KindDuplicateSibling, Message: "slug already used by a sibling"}
	ErrParentNotFound       = &Error{Kind: KindParentNotFound, Message: "parent node not found"}
	ErrNodeNotFound         = &Error{Kind: KindNodeNotFound, Message: "node not found"}
	ErrDeletionBlocked      = &Error{Kind: KindDeletionBlocked, Message: "deletion blocked"}
	ErrInvalidOwnerScope    = &Error{Kind: KindInvalidOwnerScope, Message: "node must belong to exactly one collection or template"}
	ErrTemplateAlreadyBound = &Error{Kind: KindTemplateAlreadyBound, Message: "collection is already bound to this template"}
)

func depthExceeded(depth, max int) *Error {
	return &Error{
		Kind:    KindDepthExceeded,
		Message: fmt.Sprintf("node would be at depth %d, maximum is %d", depth, max),
	}
}

func duplicateSibling(slug string) *Error {
	return &Error{
		Kind:    KindDuplicateSibling,
		Message: fmt.Sprintf("slug %q is already used by a sibling", slug),
	}
}

func parentNotFound(msg string) *Error {
	return &Error{Kind: KindParentNotFound, Message: msg}
}

func nodeNotFound(msg string) *Error {
	return &Error{Kind: KindNodeNotFound, Message: msg}
}

func deletionBlocked(children, items int) *Error {
	return &Error{
		Kind: KindDeletionBlocked,
		Message: fmt.Sprintf(
			"%d children and %d content items exist; move them first or delete with reassign/cascade",
			children, items),
		Children: children,
		Items:    items,
	}
}

func templateAlreadyBound() *Error {
	return &Error{
		Kind:    KindTemplateAlreadyBound,
		Message: "collection is already bound to this template; rebinding is rejected",
	}
}

// uniqueViolation is the PostgreSQL error code for a unique-constraint hit.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation
// from the database.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
