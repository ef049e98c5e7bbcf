package pattern

import (
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

// Tunnel digs a 3x3 cross-section into the broken face. It flood-fills
// face-connected blocks but never leaves the prism that starts at the origin
// layer and runs away from the player along the face's axis.
type Tunnel struct{ base }

func NewTunnel(opts ...Option) *Tunnel {
	return &Tunnel{base: newBase(KeyTunnel, opts)}
}

func (p *Tunnel) Allocate(acc block.Accessor, origin block.Position, face block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position {
	if !face.Valid() {
		return nil
	}
	v, ok := startVein(acc, origin, spec, cfg, aliases)
	if !ok {
		return nil
	}
	dig := face.Opposite()
	dx, dy, dz := dig.Dxyz()
	v.floodFill(faceNeighbours, func(n block.Position) bool {
		ox, oy, oz := n.X-origin.X, n.Y-origin.Y, n.Z-origin.Z
		// progress along the dig direction must not go back toward the player
		if ox*dx+oy*dy+oz*dz < 0 {
			return false
		}
		switch dig.Axis() {
		case block.AxisX:
			return absInt(oy) <= 1 && absInt(oz) <= 1
		case block.AxisY:
			return absInt(ox) <= 1 && absInt(oz) <= 1
		default:
			return absInt(ox) <= 1 && absInt(oy) <= 1
		}
	})
	return v.result()
}

// Staircase cuts a one-wide stair away from the player, moving one block
// horizontally and one block up (or down) per step, with one block of
// headroom above each step. It stops at the first step that does not match.
type Staircase struct {
	base
	up bool
}

func NewStaircase(up bool, opts ...Option) *Staircase {
	key := KeyStaircaseDown
	if up {
		key = KeyStaircaseUp
	}
	return &Staircase{base: newBase(key, opts), up: up}
}

func (p *Staircase) Allocate(acc block.Accessor, origin block.Position, face block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position {
	v, ok := startVein(acc, origin, spec, cfg, aliases)
	if !ok {
		return nil
	}
	dir := block.FaceNorth
	if face.Valid() && !face.IsVertical() {
		dir = face.Opposite()
	}
	rise := -1
	if p.up {
		rise = 1
	}
	step := origin
	v.offer(step.Relative(block.FaceUp, 1))
	for !v.full() {
		step = step.Relative(dir, 1).Add(0, rise, 0)
		if !v.offer(step) {
			break
		}
		v.offer(step.Relative(block.FaceUp, 1))
	}
	return v.result()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
