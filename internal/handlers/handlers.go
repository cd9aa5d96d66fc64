// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the Arbor taxonomy
// engine. Handlers are grouped by concern and receive their dependencies
// through the handler struct. Structural errors cross this boundary as
// structured kinds with counts, never as raw storage errors.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"arbor/internal/tree"
)

// errorPayload is the JSON shape of every error response. Kind lets
// authoring UIs react programmatically; Children and Items carry the counts
// that make DeletionBlocked actionable.
type errorPayload struct {
	Error    string    `json:"error"`
	Kind     tree.Kind `json:"kind,omitempty"`
	Children int       `json:"children,omitempty"`
	Items    int       `json:"items,omitempty"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// respondError maps an error to a status code and structured payload.
// Structural error kinds get specific statuses; anything else is an
// internal fault and surfaces as a generic 500.
func respondError(w http.ResponseWriter, err error) {
	var terr *tree.Error
	if errors.As(err, &terr) {
		respondJSON(w, statusForKind(terr.Kind), errorPayload{
			Error:    terr.Message,
			Kind:     terr.Kind,
			Children: terr.Children,
			Items:    terr.Items,
		})
		return
	}

	slog.Error("internal error", "error", err)
	respondJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
}

// statusForKind maps structural error kinds to HTTP statuses. Recoverable
// refusals (blocked deletion, collisions) are conflicts; invariant
// violations the caller can fix by changing the request are unprocessable.
func statusForKind(kind tree.Kind) int {
	switch kind {
	case tree.KindNodeNotFound, tree.KindParentNotFound:
		return http.StatusNotFound
	case tree.KindDuplicateSibling, tree.KindDeletionBlocked, tree.KindTemplateAlreadyBound:
		return http.StatusConflict
	case tree.KindDepthExceeded, tree.KindInvalidOwnerScope:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// actor identifies the requesting admin user for audit and soft-delete
// bookkeeping. Authentication lives in front of this service; it forwards
// the identity in a header.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Arbor-Actor"); a != "" {
		return a
	}
	return "unknown"
}

// badRequest writes a 400 with a plain message.
func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorPayload{Error: msg})
}
