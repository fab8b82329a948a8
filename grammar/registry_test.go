package grammar

import "testing"

func TestScopeRegistryAllocatesOddEvenPairs(t *testing.T) {
	r := NewScopeRegistry()

	if start := r.StartID("source.go"); start != 1 {
		t.Fatalf("first scope's StartID = %d, want 1", start)
	}
	if end := r.EndID("source.go"); end != 2 {
		t.Fatalf("first scope's EndID = %d, want 2", end)
	}

	if start := r.StartID("comment.line"); start != 3 {
		t.Fatalf("second scope's StartID = %d, want 3", start)
	}
	if end := r.EndID("comment.line"); end != 4 {
		t.Fatalf("second scope's EndID = %d, want 4", end)
	}
}

func TestScopeRegistryIsStableAndDeduplicates(t *testing.T) {
	r := NewScopeRegistry()
	first := r.StartID("string.quoted")
	second := r.StartID("string.quoted")
	if first != second {
		t.Fatalf("StartID not stable across calls: %d != %d", first, second)
	}

	r.StartID("keyword.control")
	third := r.StartID("string.quoted")
	if third != first {
		t.Fatalf("StartID changed after an unrelated allocation: %d != %d", third, first)
	}
}

func TestScopeRegistryNameRoundTrips(t *testing.T) {
	r := NewScopeRegistry()
	start := r.StartID("variable.parameter")

	name, ok := r.Name(start)
	if !ok || name != "variable.parameter" {
		t.Fatalf("Name(%d) = (%q, %v), want (%q, true)", start, name, ok, "variable.parameter")
	}
}

func TestScopeRegistryNameRejectsEvenAndUnknown(t *testing.T) {
	r := NewScopeRegistry()
	r.StartID("a")

	if _, ok := r.Name(2); ok {
		t.Fatal("Name accepted an even id")
	}
	if _, ok := r.Name(0); ok {
		t.Fatal("Name accepted a non-positive id")
	}
	if _, ok := r.Name(99); ok {
		t.Fatal("Name accepted an id nothing allocated")
	}
}
