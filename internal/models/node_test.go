package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestOwnerScopeConstructors(t *testing.T) {
	id := uuid.New()

	coll := CollectionOwner(id)
	if coll.Kind != OwnerKindCollection || coll.ID != id {
		t.Errorf("CollectionOwner: got %+v", coll)
	}
	if !coll.Valid() {
		t.Error("collection scope should be valid")
	}
	if coll.CollectionID() == nil || *coll.CollectionID() != id {
		t.Error("CollectionID should return the owner id")
	}
	if coll.TemplateID() != nil {
		t.Error("TemplateID should be nil for a collection scope")
	}

	tpl := TemplateOwner(id)
	if tpl.Kind != OwnerKindTemplate || tpl.ID != id {
		t.Errorf("TemplateOwner: got %+v", tpl)
	}
	if tpl.CollectionID() != nil {
		t.Error("CollectionID should be nil for a template scope")
	}
	if tpl.TemplateID() == nil || *tpl.TemplateID() != id {
		t.Error("TemplateID should return the owner id")
	}
}

func TestOwnerScopeValid(t *testing.T) {
	if (OwnerScope{}).Valid() {
		t.Error("zero scope must be invalid")
	}
	if CollectionOwner(uuid.Nil).Valid() {
		t.Error("nil owner id must be invalid")
	}
	if (OwnerScope{Kind: "widget", ID: uuid.New()}).Valid() {
		t.Error("unknown kind must be invalid")
	}
}

func TestOwnerFromColumns(t *testing.T) {
	collID := uuid.New()
	tplID := uuid.New()

	got := OwnerFromColumns(&collID, nil)
	if got != CollectionOwner(collID) {
		t.Errorf("collection columns: got %+v", got)
	}

	got = OwnerFromColumns(nil, &tplID)
	if got != TemplateOwner(tplID) {
		t.Errorf("template columns: got %+v", got)
	}

	// Both or neither set violates the one-owner rule.
	if OwnerFromColumns(nil, nil).Valid() {
		t.Error("no owner columns should yield an invalid scope")
	}
	if OwnerFromColumns(&collID, &tplID).Valid() {
		t.Error("two owner columns should yield an invalid scope")
	}
}

func TestNodeIsRoot(t *testing.T) {
	id := uuid.New()
	root := Node{ID: id, Path: UUIDArray{id}}
	if !root.IsRoot() {
		t.Error("node without parent should be a root")
	}

	parent := uuid.New()
	child := Node{ID: id, ParentID: &parent, Depth: 1, Path: UUIDArray{parent, id}}
	if child.IsRoot() {
		t.Error("node with parent should not be a root")
	}
}
