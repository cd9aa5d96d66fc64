package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidItemType(t *testing.T) {
	valid := []ItemType{
		ItemTypeDirective, ItemTypePropertyRef, ItemTypeEventRule,
		ItemTypePrompt, ItemTypeInstruction, ItemTypeReference, ItemTypeMetadata,
	}
	for _, it := range valid {
		if !ValidItemType(it) {
			t.Errorf("%q should be valid", it)
		}
	}

	for _, it := range []ItemType{"", "post", "Directive", "prompt "} {
		if ValidItemType(it) {
			t.Errorf("%q should be invalid", it)
		}
	}
}

func TestContentItemIsUncategorized(t *testing.T) {
	nodeID := uuid.New()

	attached := ContentItem{NodeID: &nodeID}
	if attached.IsUncategorized() {
		t.Error("item with a node is categorized")
	}

	parked := ContentItem{}
	if !parked.IsUncategorized() {
		t.Error("item without a node is uncategorized")
	}
}

func TestContentItemPayloadJSONRoundTrip(t *testing.T) {
	item := ContentItem{
		ID:      uuid.New(),
		Type:    ItemTypeDirective,
		Body:    "greet the visitor",
		Payload: json.RawMessage(`{"stage":1}`),
	}

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"payload":{"stage":1}`) {
		t.Fatalf("payload should serialize as a JSON object, got %s", out)
	}

	var back ContentItem
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(back.Payload, item.Payload) {
		t.Fatalf("payload round-trip mismatch: %s != %s", back.Payload, item.Payload)
	}
}

func TestContentItemPayloadOmittedWhenEmpty(t *testing.T) {
	out, err := json.Marshal(ContentItem{Type: ItemTypePrompt, Body: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "payload") {
		t.Fatalf("empty payload should be omitted, got %s", out)
	}
}

func TestContentItemNeedsSync(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	never := ContentItem{UpdatedAt: now}
	if !never.NeedsSync() {
		t.Error("never-synced item needs sync")
	}

	stale := ContentItem{UpdatedAt: now, ExternalSyncedAt: &earlier}
	if !stale.NeedsSync() {
		t.Error("item edited after sync needs sync")
	}

	later := now.Add(time.Hour)
	fresh := ContentItem{UpdatedAt: now, ExternalSyncedAt: &later}
	if fresh.NeedsSync() {
		t.Error("item synced after its last edit does not need sync")
	}
}
