package testfixtures

import (
	"slices"
	"testing"
)

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("session")
	next := gen.NextFunc()
	first, second := next(), gen.Next()
	if first != "session-1" || second != "session-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); !slices.Equal(issued, []string{"session-1", "session-2"}) {
		t.Fatalf("unexpected issued list %v", issued)
	}

	gen.Reset()
	if id := gen.Next(); id != "session-1" {
		t.Fatalf("expected numbering to restart, got %q", id)
	}
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}
