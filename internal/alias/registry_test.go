package alias

import (
	"testing"

	"github.com/KyousabaMC/VeinMiner/internal/block"
)

func TestRegistry_Lookup(t *testing.T) {
	coal := block.NewList(block.MustParseSpec("coal_ore"), block.MustParseSpec("deepslate_coal_ore"))
	iron := block.NewList(block.MustParseSpec("iron_ore"), block.MustParseSpec("deepslate_iron_ore"))
	r, err := NewRegistry(Group{Name: "coal", Specs: coal}, Group{Name: "iron", Specs: iron})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Lookup(block.MustParseSpec("minecraft:deepslate_coal_ore")); got != coal {
		t.Fatalf("expected coal group")
	}
	if got := r.Lookup(block.MustParseSpec("stone")); got != nil {
		t.Fatalf("expected no alias for stone")
	}
	if r.Size() != 2 || !r.Has("iron") {
		t.Fatalf("registry contents mismatch")
	}
	var empty *Registry
	if empty.Lookup(block.MustParseSpec("stone")) != nil {
		t.Fatalf("nil registry should not alias")
	}
}

func TestRegistry_RejectsDegenerateGroups(t *testing.T) {
	if _, err := NewRegistry(Group{Name: "one", Specs: block.NewList(block.MustParseSpec("stone"))}); err == nil {
		t.Fatalf("expected single-member group to be rejected")
	}
	if _, err := NewRegistry(Group{Name: "wild", Specs: block.NewList(block.Wildcard(), block.MustParseSpec("stone"))}); err == nil {
		t.Fatalf("expected wildcard group to be rejected")
	}
}
