package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator_Generate(t *testing.T) {
	gen := NewULIDGenerator()

	first := gen.Generate()
	second := gen.Generate()

	if first == second {
		t.Fatalf("expected unique ids, got %s twice", first)
	}

	if _, err := ulid.Parse(first); err != nil {
		t.Fatalf("expected valid ULID, got %q: %v", first, err)
	}
}

func TestULIDGenerator_IdsSortByTime(t *testing.T) {
	gen := NewULIDGenerator()

	first, err := ulid.Parse(gen.Generate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ulid.Parse(gen.Generate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Time() > second.Time() {
		t.Fatalf("expected non-decreasing timestamps, got %d then %d", first.Time(), second.Time())
	}
}
