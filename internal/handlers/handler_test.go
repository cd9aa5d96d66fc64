// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go covers the shared handler plumbing: error mapping, request
// decoding, actor identification, and owner-scope parsing. None of these
// touch storage, so the tests run without PostgreSQL.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arbor/internal/models"
	"arbor/internal/tree"
)

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind tree.Kind
		want int
	}{
		{tree.KindNodeNotFound, http.StatusNotFound},
		{tree.KindParentNotFound, http.StatusNotFound},
		{tree.KindDuplicateSibling, http.StatusConflict},
		{tree.KindDeletionBlocked, http.StatusConflict},
		{tree.KindTemplateAlreadyBound, http.StatusConflict},
		{tree.KindDepthExceeded, http.StatusUnprocessableEntity},
		{tree.KindInvalidOwnerScope, http.StatusUnprocessableEntity},
		{tree.Kind("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := statusForKind(tt.kind); got != tt.want {
				t.Errorf("statusForKind(%q) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRespondErrorStructural(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, &tree.Error{
		Kind:     tree.KindDeletionBlocked,
		Message:  "2 children and 3 content items exist; move them first or delete with reassign/cascade",
		Children: 2,
		Items:    3,
	})

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var payload errorPayload
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Kind != tree.KindDeletionBlocked {
		t.Errorf("kind = %q, want %q", payload.Kind, tree.KindDeletionBlocked)
	}
	if payload.Children != 2 || payload.Items != 3 {
		t.Errorf("counts = %d/%d, want 2/3", payload.Children, payload.Items)
	}
	if !strings.Contains(payload.Error, "move them first") {
		t.Errorf("message should carry the guidance, got %q", payload.Error)
	}
}

func TestRespondErrorWrapped(t *testing.T) {
	// Wrapped structural errors keep their status and kind.
	rec := httptest.NewRecorder()
	respondError(rec, errors.Join(errors.New("create node"), tree.ErrDepthExceeded))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var payload errorPayload
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Kind != tree.KindDepthExceeded {
		t.Errorf("kind = %q, want %q", payload.Kind, tree.KindDepthExceeded)
	}
}

func TestRespondErrorInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, errors.New("connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var payload errorPayload
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Raw storage errors must not leak to clients.
	if payload.Error != "internal error" {
		t.Errorf("error = %q, want generic message", payload.Error)
	}
	if payload.Kind != "" {
		t.Errorf("kind should be empty for internal errors, got %q", payload.Kind)
	}
}

func TestActor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/nodes", nil)
	if got := actor(r); got != "unknown" {
		t.Errorf("actor without header = %q, want %q", got, "unknown")
	}

	r.Header.Set("X-Arbor-Actor", "ops@example.com")
	if got := actor(r); got != "ops@example.com" {
		t.Errorf("actor = %q, want %q", got, "ops@example.com")
	}
}

func TestDecodeJSON(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Stages"}`))
		var dst req
		if err := decodeJSON(r, &dst); err != nil {
			t.Fatalf("decodeJSON: %v", err)
		}
		if dst.Name != "Stages" {
			t.Errorf("Name = %q, want %q", dst.Name, "Stages")
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":true}`))
		var dst req
		if err := decodeJSON(r, &dst); err == nil {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var dst req
		if err := decodeJSON(r, &dst); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestParseOwner(t *testing.T) {
	id := uuid.New()

	owner, err := parseOwner("collection", id.String())
	if err != nil {
		t.Fatalf("parseOwner collection: %v", err)
	}
	if owner.Kind != models.OwnerKindCollection || owner.ID != id {
		t.Errorf("owner = %+v, want collection scope for %s", owner, id)
	}

	owner, err = parseOwner("template", id.String())
	if err != nil {
		t.Fatalf("parseOwner template: %v", err)
	}
	if owner.Kind != models.OwnerKindTemplate || owner.ID != id {
		t.Errorf("owner = %+v, want template scope for %s", owner, id)
	}

	if _, err := parseOwner("collection", "not-a-uuid"); err == nil {
		t.Error("expected error for malformed owner id")
	}
	if _, err := parseOwner("workspace", id.String()); err == nil {
		t.Error("expected error for unknown owner kind")
	}
	if _, err := parseOwner("", id.String()); err == nil {
		t.Error("expected error for empty owner kind")
	}
}

func TestPathID(t *testing.T) {
	id := uuid.New()

	r := httptest.NewRequest(http.MethodGet, "/api/nodes/"+id.String(), nil)
	r = withChiURLParam(r, "id", id.String())
	got, err := pathID(r, "id")
	if err != nil {
		t.Fatalf("pathID: %v", err)
	}
	if got != id {
		t.Errorf("pathID = %s, want %s", got, id)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/nodes/nope", nil)
	r = withChiURLParam(r, "id", "nope")
	if _, err := pathID(r, "id"); err == nil {
		t.Error("expected error for malformed route id")
	}
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respondJSON(rec, http.StatusCreated, map[string]string{"status": "created"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "created" {
		t.Errorf("body = %v", body)
	}
}
