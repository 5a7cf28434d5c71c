package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	got, err := Generate(PrefixDocument)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(got, "doc-") {
		t.Errorf("expected doc- prefix, got %q", got)
	}
	// prefix + "-" + 21-char nanoid
	if len(got) != len(PrefixDocument)+1+21 {
		t.Errorf("unexpected length %d for %q", len(got), got)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := MustGenerate(PrefixSession)
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestHasPrefix(t *testing.T) {
	doc := MustGenerate(PrefixDocument)
	if !HasPrefix(doc, PrefixDocument) {
		t.Errorf("expected %q to have document prefix", doc)
	}
	if HasPrefix(doc, PrefixSession) {
		t.Errorf("did not expect %q to have session prefix", doc)
	}
	// Prefix must be followed by the separator.
	if HasPrefix("docx-abc", PrefixDocument) {
		t.Error("docx- must not match the doc prefix")
	}
}

func TestNewEntityIDs(t *testing.T) {
	doc, err := NewDocument()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !HasPrefix(doc, PrefixDocument) {
		t.Errorf("document ID %q missing prefix", doc)
	}

	sess, err := NewSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !HasPrefix(sess, PrefixSession) {
		t.Errorf("session ID %q missing prefix", sess)
	}
}
