package world

const (
	surfaceGrid = 8
	treeCell    = 6
)

func (w *World) generateChunk(ch *Chunk) {
	g := w.gen
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			surface := w.surfaceAt(wx, wz)

			for y := g.MinY; y < g.MaxY; y++ {
				b := w.terrainAt(wx, y, wz, surface)
				if b == w.ids.air {
					b = w.treeAt(wx, y, wz)
				}
				ch.Blocks[ch.index(x, y-g.MinY, z)] = b
			}
		}
	}
}

func (w *World) terrainAt(x, y, z, surface int) uint16 {
	g := w.gen
	switch {
	case y == g.MinY:
		return w.ids.bedrock
	case y > surface:
		return w.ids.air
	case y == surface:
		return w.ids.grass
	case y > surface-4:
		return w.ids.dirt
	}

	deep := y < 0
	// Precedence order: rare ores > common ores > host rock.
	switch {
	case y < -16 && w.inOre(g.Seed+101, x, y, z, 16, 1, 120):
		return pick(deep, w.ids.deepDiamond, w.ids.diamond)
	case y < 32 && w.inOre(g.Seed+102, x, y, z, 16, 1, 250):
		return pick(deep, w.ids.deepGold, w.ids.gold)
	case w.inOre(g.Seed+103, x, y, z, 12, 2, 300):
		return pick(deep, w.ids.deepIron, w.ids.iron)
	case !deep && w.inOre(g.Seed+104, x, y, z, 14, 2, 250):
		return w.ids.copper
	case w.inOre(g.Seed+105, x, y, z, 10, 2, 450):
		return pick(deep, w.ids.deepCoal, w.ids.coal)
	case deep:
		return w.ids.deepslate
	default:
		return w.ids.stone
	}
}

func pick(cond bool, a, b uint16) uint16 {
	if cond {
		return a
	}
	return b
}

// surfaceAt interpolates coarse random heights so neighbouring columns
// differ by at most a block or two.
func (w *World) surfaceAt(x, z int) int {
	g := w.gen
	if g.SurfaceAmplitude <= 0 {
		return g.SurfaceY
	}
	gx, gz := floorDiv(x, surfaceGrid), floorDiv(z, surfaceGrid)
	fx, fz := mod(x, surfaceGrid), mod(z, surfaceGrid)
	corner := func(cx, cz int) int {
		span := uint64(2*g.SurfaceAmplitude + 1)
		return int(hash2(g.Seed+7, cx, cz)%span) - g.SurfaceAmplitude
	}
	h00 := corner(gx, gz)
	h10 := corner(gx+1, gz)
	h01 := corner(gx, gz+1)
	h11 := corner(gx+1, gz+1)
	top := h00*(surfaceGrid-fx) + h10*fx
	bottom := h01*(surfaceGrid-fx) + h11*fx
	v := top*(surfaceGrid-fz) + bottom*fz
	return g.SurfaceY + floorDiv(v+surfaceGrid*surfaceGrid/2, surfaceGrid*surfaceGrid)
}

// inOre reports whether (x,y,z) lies in a roughly spherical ore blob. One
// blob may sit in each grid cell; neighbouring cells are checked so blobs
// cross cell borders.
func (w *World) inOre(seed int64, x, y, z, grid, radius int, basePermille uint64) bool {
	prob := scalePermille(basePermille, w.gen.OrePermille)
	if prob == 0 {
		return false
	}
	gx, gy, gz := floorDiv(x, grid), floorDiv(y, grid), floorDiv(z, grid)
	r2 := radius*radius + radius
	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				cgx, cgy, cgz := gx+dx, gy+dy, gz+dz
				h := hash3(seed, cgx, cgy, cgz)
				if h%1000 >= prob {
					continue
				}
				cx := cgx*grid + int((h>>10)%uint64(grid))
				cy := cgy*grid + int((h>>20)%uint64(grid))
				cz := cgz*grid + int((h>>30)%uint64(grid))
				ddx, ddy, ddz := x-cx, y-cy, z-cz
				if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
					return true
				}
			}
		}
	}
	return false
}

// trunk reports the tree rooted in column (x,z), if any: its base y and
// trunk height.
func (w *World) trunk(x, z int) (base, height int, ok bool) {
	g := w.gen
	cx, cz := floorDiv(x, treeCell), floorDiv(z, treeCell)
	h := hash2(g.Seed+500, cx, cz)
	if h%1000 >= uint64(clampPermille(g.TreePermille)) {
		return 0, 0, false
	}
	tx := cx*treeCell + 1 + int((h>>10)%(treeCell-2))
	tz := cz*treeCell + 1 + int((h>>20)%(treeCell-2))
	if x != tx || z != tz {
		return 0, 0, false
	}
	return w.surfaceAt(x, z) + 1, 4 + int((h>>30)%3), true
}

func (w *World) treeAt(x, y, z int) uint16 {
	if y > w.gen.SurfaceY+w.gen.SurfaceAmplitude+8 {
		return w.ids.air
	}
	if base, height, ok := w.trunk(x, z); ok && y >= base && y < base+height {
		return w.ids.log
	}
	for dz := -2; dz <= 2; dz++ {
		for dx := -2; dx <= 2; dx++ {
			base, height, ok := w.trunk(x+dx, z+dz)
			if !ok {
				continue
			}
			top := base + height - 1
			r := 2
			if y > top {
				r = 1
			}
			if y < top-1 || y > top+1 {
				continue
			}
			if abs(dx) <= r && abs(dz) <= r && !(abs(dx) == r && abs(dz) == r && r == 2) {
				return w.ids.leaves
			}
		}
	}
	return w.ids.air
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func scalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		return 0
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
