package block

import "fmt"

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func Pos(x, y, z int) Position { return Position{X: x, Y: y, Z: z} }

func (p Position) Add(dx, dy, dz int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Relative moves n blocks in the direction of face.
func (p Position) Relative(f Face, n int) Position {
	dx, dy, dz := f.Dxyz()
	return p.Add(dx*n, dy*n, dz*n)
}

func (p Position) DistanceSquared(o Position) int {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Chebyshev is the largest per-axis distance to o.
func (p Position) Chebyshev(o Position) int {
	return max(absInt(p.X-o.X), absInt(p.Y-o.Y), absInt(p.Z-o.Z))
}

func (p Position) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

func FromArray(a [3]int) Position { return Position{X: a[0], Y: a[1], Z: a[2]} }

func (p Position) String() string { return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
