package pattern

import (
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

// Flood is a face-connected (6-neighbour) flood fill. It is the server's
// default pattern and needs no permission unless configured.
type Flood struct{ base }

func NewDefault(opts ...Option) *Flood {
	return &Flood{base: newBase(KeyDefault, append([]Option{WithPermission("")}, opts...))}
}

func (p *Flood) Allocate(acc block.Accessor, origin block.Position, _ block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position {
	v, ok := startVein(acc, origin, spec, cfg, aliases)
	if !ok {
		return nil
	}
	v.floodFill(faceNeighbours, nil)
	return v.result()
}

// Thorough also crosses edges and corners (26 neighbours).
type Thorough struct{ base }

func NewThorough(opts ...Option) *Thorough {
	return &Thorough{base: newBase(KeyThorough, opts)}
}

func (p *Thorough) Allocate(acc block.Accessor, origin block.Position, _ block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position {
	v, ok := startVein(acc, origin, spec, cfg, aliases)
	if !ok {
		return nil
	}
	v.floodFill(allNeighbours, nil)
	return v.result()
}

const DefaultCubeRadius = 2

// Cube is a face-connected flood fill that never leaves a Chebyshev radius
// around the origin.
type Cube struct {
	base
	radius int
}

func NewCube(radius int, opts ...Option) *Cube {
	if radius < 0 {
		radius = 0
	}
	return &Cube{base: newBase(KeyCube, opts), radius: radius}
}

func (p *Cube) Radius() int { return p.radius }

func (p *Cube) Allocate(acc block.Accessor, origin block.Position, _ block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position {
	v, ok := startVein(acc, origin, spec, cfg, aliases)
	if !ok {
		return nil
	}
	v.floodFill(faceNeighbours, func(n block.Position) bool {
		return n.Chebyshev(origin) <= p.radius
	})
	return v.result()
}
