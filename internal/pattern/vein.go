package pattern

import (
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

// vein accumulates one allocation. It is not reused across calls.
type vein struct {
	acc     block.Accessor
	spec    block.Spec
	aliases *block.List
	anchor  block.State
	limit   int

	seen map[block.Position]struct{}
	out  []block.Position
}

// startVein seeds a vein with origin. ok is false when the origin is missing,
// does not match, or the category allows no blocks at all.
func startVein(acc block.Accessor, origin block.Position, spec block.Spec, cfg tool.Config, aliases *block.List) (*vein, bool) {
	if acc == nil || cfg.MaxVeinSize <= 0 {
		return nil, false
	}
	st, ok := acc.StateAt(origin)
	if !ok || st.IsAir() {
		return nil, false
	}
	if !Matches(spec, aliases, st, st) {
		return nil, false
	}
	v := &vein{
		acc:     acc,
		spec:    spec,
		aliases: aliases,
		anchor:  st,
		limit:   cfg.MaxVeinSize,
		seen:    map[block.Position]struct{}{origin: {}},
		out:     make([]block.Position, 0, min(cfg.MaxVeinSize, 64)),
	}
	v.out = append(v.out, origin)
	return v, true
}

func (v *vein) full() bool { return len(v.out) >= v.limit }

// offer adds p if it is new and eligible. It reports whether p was added.
func (v *vein) offer(p block.Position) bool {
	if v.full() {
		return false
	}
	if _, ok := v.seen[p]; ok {
		return false
	}
	v.seen[p] = struct{}{}
	st, ok := v.acc.StateAt(p)
	if !ok || st.IsAir() || !Matches(v.spec, v.aliases, v.anchor, st) {
		return false
	}
	v.out = append(v.out, p)
	return true
}

func (v *vein) result() []block.Position { return v.out }

// floodFill grows v breadth-first from its origin. within may be nil.
func (v *vein) floodFill(neighbours func(block.Position) []block.Position, within func(block.Position) bool) {
	for head := 0; head < len(v.out) && !v.full(); head++ {
		for _, n := range neighbours(v.out[head]) {
			if within != nil && !within(n) {
				continue
			}
			v.offer(n)
			if v.full() {
				return
			}
		}
	}
}

func faceNeighbours(p block.Position) []block.Position {
	out := make([]block.Position, 0, len(block.Faces))
	for _, f := range block.Faces {
		out = append(out, p.Relative(f, 1))
	}
	return out
}

func allNeighbours(p block.Position) []block.Position {
	out := make([]block.Position, 0, 26)
	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out = append(out, p.Add(dx, dy, dz))
			}
		}
	}
	return out
}
