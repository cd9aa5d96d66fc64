package handlers

import (
	"strings"
	"testing"
)

func TestValidateNode(t *testing.T) {
	tests := []struct {
		name      string
		nodeName  string
		slug      string
		wantError bool
	}{
		{"valid", "Prayer Rooms", "prayer-rooms", false},
		{"empty name", "", "slug", true},
		{"whitespace name", "   ", "slug", true},
		{"name too long", strings.Repeat("a", 201), "slug", true},
		{"slug too long", "name", strings.Repeat("a", 201), true},
		{"empty slug allowed", "Stage 01", "", false},
		{"name at limit", strings.Repeat("a", 200), "slug", false},
		{"multibyte name counts runes", strings.Repeat("é", 200), "slug", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateNode(tt.nodeName, tt.slug)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}

func TestValidateItemBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError bool
	}{
		{"empty body allowed", "", false},
		{"normal body", "You are a triage assistant.", false},
		{"body at limit", strings.Repeat("a", 100_000), false},
		{"body too long", strings.Repeat("a", 100_001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateItemBody(tt.body)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}
