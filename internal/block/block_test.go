package block

import (
	"testing"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

func TestParseState_Canonical(t *testing.T) {
	st, err := ParseState("oak_log[Axis=y, waterlogged=false]")
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if got := st.String(); got != "minecraft:oak_log[axis=y,waterlogged=false]" {
		t.Fatalf("canonical form: got %q", got)
	}
	if v, ok := st.Property("axis"); !ok || v != "y" {
		t.Fatalf("axis: got %q ok=%v", v, ok)
	}
	if _, ok := st.Property("facing"); ok {
		t.Fatalf("unexpected facing property")
	}
	if !st.Equal(MustParseState("minecraft:oak_log[waterlogged=false,axis=y]")) {
		t.Fatalf("property order should not matter")
	}
	for _, bad := range []string{"", "oak_log[axis=y", "oak_log[axis]", "oak_log[a=1,a=2]"} {
		if _, err := ParseState(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSpec_MatchesState(t *testing.T) {
	logY := MustParseState("oak_log[axis=y]")
	logX := MustParseState("oak_log[axis=x]")
	stone := MustParseState("stone")

	typ := MustParseSpec("oak_log")
	if typ.Kind() != KindType || !typ.MatchesState(logY) || !typ.MatchesState(logX) || typ.MatchesState(stone) {
		t.Fatalf("type spec should match every oak_log state only")
	}

	exact := MustParseSpec("oak_log[axis=y]")
	if exact.Kind() != KindState || !exact.MatchesState(logY) || exact.MatchesState(logX) {
		t.Fatalf("state spec should match only axis=y")
	}

	if w := MustParseSpec("*"); !w.IsWildcard() || !w.MatchesState(stone) || w.String() != "*" {
		t.Fatalf("wildcard spec should match anything")
	}
}

func TestList_MatchPrefersConcreteOverWildcard(t *testing.T) {
	l, err := ParseList([]string{"*", "coal_ore", "coal_ore", "oak_log[axis=y]"})
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("duplicates should collapse: got %d", l.Len())
	}
	got, ok := l.Match(MustParseState("coal_ore"))
	if !ok || got.String() != "minecraft:coal_ore" {
		t.Fatalf("Match coal_ore: got %v ok=%v", got, ok)
	}
	got, ok = l.Match(MustParseState("dirt"))
	if !ok || !got.IsWildcard() {
		t.Fatalf("Match dirt should fall back to wildcard: got %v ok=%v", got, ok)
	}

	var nilList *List
	if nilList.ContainsState(MustParseState("dirt")) || nilList.Len() != 0 {
		t.Fatalf("nil list should be empty")
	}
	if !l.Contains(TypeSpec(namespaced.Minecraftf("coal_ore"))) {
		t.Fatalf("Contains should find coal_ore")
	}
}

func TestFaceAndPosition(t *testing.T) {
	origin := Pos(0, 64, 0)
	for _, f := range Faces {
		if f.Opposite().Opposite() != f {
			t.Fatalf("opposite of opposite differs for %v", f)
		}
		n := origin.Relative(f, 1)
		if origin.DistanceSquared(n) != 1 {
			t.Fatalf("face %v is not a unit step", f)
		}
		if origin.Relative(f, 1).Relative(f.Opposite(), 1) != origin {
			t.Fatalf("face %v does not cancel with its opposite", f)
		}
	}
	if Pos(1, 2, 3).Chebyshev(Pos(-1, 2, 7)) != 4 {
		t.Fatalf("chebyshev distance mismatch")
	}
	f, err := ParseFace("EAST")
	if err != nil || f != FaceEast || f.Axis() != AxisX {
		t.Fatalf("ParseFace east: got %v err=%v", f, err)
	}
}
