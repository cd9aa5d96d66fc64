package tree

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := depthExceeded(5, 4)

	if !errors.Is(err, ErrDepthExceeded) {
		t.Error("depthExceeded should match ErrDepthExceeded")
	}
	if errors.Is(err, ErrDuplicateSibling) {
		t.Error("kinds must not cross-match")
	}

	// Wrapping preserves the match.
	wrapped := fmt.Errorf("create node: %w", err)
	if !errors.Is(wrapped, ErrDepthExceeded) {
		t.Error("wrapped error should still match by kind")
	}
}

func TestErrorMessagesCarryDetail(t *testing.T) {
	err := duplicateSibling("stage-01")
	if got := err.Error(); got != `slug "stage-01" is already used by a sibling` {
		t.Errorf("message: got %q", got)
	}

	blocked := deletionBlocked(2, 7)
	if blocked.Children != 2 || blocked.Items != 7 {
		t.Errorf("counts: got %d/%d", blocked.Children, blocked.Items)
	}
	if !errors.Is(blocked, ErrDeletionBlocked) {
		t.Error("deletionBlocked should match its sentinel")
	}
}

func TestErrorAsExtractsCounts(t *testing.T) {
	wrapped := fmt.Errorf("delete: %w", deletionBlocked(1, 4))

	var te *Error
	if !errors.As(wrapped, &te) {
		t.Fatal("errors.As should find *tree.Error")
	}
	if te.Kind != KindDeletionBlocked {
		t.Errorf("kind: got %q", te.Kind)
	}
	if te.Children != 1 || te.Items != 4 {
		t.Errorf("counts: got %d/%d, want 1/4", te.Children, te.Items)
	}
}

func TestSentinelsDoNotMatchPlainErrors(t *testing.T) {
	if errors.Is(errors.New("node not found"), ErrNodeNotFound) {
		t.Error("plain errors must not match tree sentinels")
	}
}
