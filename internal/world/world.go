// Package world is an in-memory voxel world standing in for the game
// server's. Terrain is generated lazily per chunk from the seed, so a world
// is fully determined by its Gen settings plus the edits applied to it.
//
// A World is owned by the game loop and is not safe for concurrent use.
package world

import (
	"fmt"
	"sort"

	"github.com/KyousabaMC/VeinMiner/internal/block"
)

type Gen struct {
	Seed int64
	// MinY is inclusive, MaxY exclusive.
	MinY, MaxY int

	SurfaceY         int
	SurfaceAmplitude int

	// Chance per cluster cell, in permille, scaled from the defaults.
	OrePermille  int
	TreePermille int
}

func DefaultGen(seed int64) Gen {
	return Gen{
		Seed:             seed,
		MinY:             -32,
		MaxY:             128,
		SurfaceY:         64,
		SurfaceAmplitude: 4,
		OrePermille:      1000,
		TreePermille:     350,
	}
}

func (g Gen) Validate() error {
	if g.MaxY <= g.MinY {
		return fmt.Errorf("world: max_y %d must be above min_y %d", g.MaxY, g.MinY)
	}
	if g.MaxY-g.MinY > 1024 {
		return fmt.Errorf("world: height %d too large", g.MaxY-g.MinY)
	}
	if g.SurfaceY+g.SurfaceAmplitude+12 >= g.MaxY || g.SurfaceY-g.SurfaceAmplitude <= g.MinY {
		return fmt.Errorf("world: surface_y %d does not fit between min_y and max_y", g.SurfaceY)
	}
	return nil
}

type World struct {
	name    string
	gen     Gen
	palette *Palette
	chunks  map[ChunkKey]*Chunk
	ids     paletteIDs
}

// paletteIDs caches the ids of generated blocks.
type paletteIDs struct {
	air, bedrock, stone, deepslate, dirt, grass uint16
	log, leaves                                  uint16
	coal, deepCoal, iron, deepIron, copper       uint16
	gold, deepGold, diamond, deepDiamond         uint16
}

func New(name string, gen Gen) (*World, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	p := NewPalette()
	st := block.MustParseState
	w := &World{
		name:    name,
		gen:     gen,
		palette: p,
		chunks:  map[ChunkKey]*Chunk{},
	}
	w.ids = paletteIDs{
		air:         p.ID(block.Air),
		bedrock:     p.ID(st("minecraft:bedrock")),
		stone:       p.ID(st("minecraft:stone")),
		deepslate:   p.ID(st("minecraft:deepslate[axis=y]")),
		dirt:        p.ID(st("minecraft:dirt")),
		grass:       p.ID(st("minecraft:grass_block[snowy=false]")),
		log:         p.ID(st("minecraft:oak_log[axis=y]")),
		leaves:      p.ID(st("minecraft:oak_leaves[persistent=false]")),
		coal:        p.ID(st("minecraft:coal_ore")),
		deepCoal:    p.ID(st("minecraft:deepslate_coal_ore")),
		iron:        p.ID(st("minecraft:iron_ore")),
		deepIron:    p.ID(st("minecraft:deepslate_iron_ore")),
		copper:      p.ID(st("minecraft:copper_ore")),
		gold:        p.ID(st("minecraft:gold_ore")),
		deepGold:    p.ID(st("minecraft:deepslate_gold_ore")),
		diamond:     p.ID(st("minecraft:diamond_ore")),
		deepDiamond: p.ID(st("minecraft:deepslate_diamond_ore")),
	}
	return w, nil
}

func (w *World) Name() string { return w.name }
func (w *World) Gen() Gen     { return w.gen }

func (w *World) inBounds(pos block.Position) bool {
	return pos.Y >= w.gen.MinY && pos.Y < w.gen.MaxY
}

// StateAt implements block.Accessor. Positions above or below the world
// have no data.
func (w *World) StateAt(pos block.Position) (block.State, bool) {
	if !w.inBounds(pos) {
		return block.State{}, false
	}
	ch, lx, ly, lz := w.locate(pos)
	return w.palette.State(ch.Get(lx, ly, lz))
}

// SetState replaces one block. It reports false outside the world.
func (w *World) SetState(pos block.Position, st block.State) bool {
	if !w.inBounds(pos) {
		return false
	}
	ch, lx, ly, lz := w.locate(pos)
	if ch.Set(lx, ly, lz, w.palette.ID(st)) {
		ch.edited = true
	}
	return true
}

// Fill sets every position in the box spanned by a and b.
func (w *World) Fill(a, b block.Position, st block.State) int {
	n := 0
	for x := min(a.X, b.X); x <= max(a.X, b.X); x++ {
		for y := min(a.Y, b.Y); y <= max(a.Y, b.Y); y++ {
			for z := min(a.Z, b.Z); z <= max(a.Z, b.Z); z++ {
				if w.SetState(block.Pos(x, y, z), st) {
					n++
				}
			}
		}
	}
	return n
}

// HighestSolidY returns the y of the topmost non-air block in the column.
func (w *World) HighestSolidY(x, z int) int {
	for y := w.gen.MaxY - 1; y >= w.gen.MinY; y-- {
		st, _ := w.StateAt(block.Pos(x, y, z))
		if !st.IsAir() {
			return y
		}
	}
	return w.gen.MinY
}

func (w *World) locate(pos block.Position) (*Chunk, int, int, int) {
	cx := floorDiv(pos.X, ChunkSize)
	cz := floorDiv(pos.Z, ChunkSize)
	ch := w.getOrGenChunk(cx, cz)
	return ch, mod(pos.X, ChunkSize), pos.Y - w.gen.MinY, mod(pos.Z, ChunkSize)
}

func (w *World) getOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := w.chunks[k]; ok {
		return ch
	}
	ch := newChunk(cx, cz, w.gen.MaxY-w.gen.MinY)
	w.generateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	w.chunks[k] = ch
	return ch
}

func (w *World) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// ChunkDigest reports the content hash of a loaded chunk.
func (w *World) ChunkDigest(k ChunkKey) ([32]byte, bool) {
	ch, ok := w.chunks[k]
	if !ok {
		return [32]byte{}, false
	}
	return ch.Digest(), true
}
