package world

import (
	"fmt"
	"time"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

// ExportSnapshot captures the generator settings and every edited chunk.
func (w *World) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			World:   w.name,
			Tick:    tick,
			SavedAt: time.Now().UTC(),
		},
		Seed:             w.gen.Seed,
		MinY:             w.gen.MinY,
		MaxY:             w.gen.MaxY,
		SurfaceY:         w.gen.SurfaceY,
		SurfaceAmplitude: w.gen.SurfaceAmplitude,
		OrePermille:      w.gen.OrePermille,
		TreePermille:     w.gen.TreePermille,
		Palette:          make([]string, w.palette.Len()),
	}
	for i := range snap.Palette {
		st, _ := w.palette.State(uint16(i))
		snap.Palette[i] = st.String()
	}
	for _, k := range w.LoadedChunkKeys() {
		ch := w.chunks[k]
		if !ch.edited {
			continue
		}
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			CX:     ch.CX,
			CZ:     ch.CZ,
			Height: ch.height,
			Blocks: append([]uint16(nil), ch.Blocks...),
		})
	}
	return snap
}

// ImportSnapshot replaces the chunks saved in snap. The generator settings
// must match the world's, since untouched chunks are regenerated.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.World != "" && snap.Header.World != w.name {
		return fmt.Errorf("world: snapshot is for %q, not %q", snap.Header.World, w.name)
	}
	saved := Gen{
		Seed:             snap.Seed,
		MinY:             snap.MinY,
		MaxY:             snap.MaxY,
		SurfaceY:         snap.SurfaceY,
		SurfaceAmplitude: snap.SurfaceAmplitude,
		OrePermille:      snap.OrePermille,
		TreePermille:     snap.TreePermille,
	}
	if saved != w.gen {
		return fmt.Errorf("world: snapshot generator settings differ from the configured world")
	}

	ids := make([]uint16, len(snap.Palette))
	for i, s := range snap.Palette {
		st, err := block.ParseState(s)
		if err != nil {
			return fmt.Errorf("world: snapshot palette %d: %w", i, err)
		}
		ids[i] = w.palette.ID(st)
	}

	height := w.gen.MaxY - w.gen.MinY
	chunks := make([]*Chunk, 0, len(snap.Chunks))
	for _, c := range snap.Chunks {
		if c.Height != height || len(c.Blocks) != ChunkSize*ChunkSize*height {
			return fmt.Errorf("world: snapshot chunk %d,%d has the wrong size", c.CX, c.CZ)
		}
		ch := newChunk(c.CX, c.CZ, height)
		for i, id := range c.Blocks {
			if int(id) >= len(ids) {
				return fmt.Errorf("world: snapshot chunk %d,%d references palette id %d", c.CX, c.CZ, id)
			}
			ch.Blocks[i] = ids[id]
		}
		ch.dirty = true
		ch.edited = true
		chunks = append(chunks, ch)
	}
	for _, ch := range chunks {
		w.chunks[ChunkKey{CX: ch.CX, CZ: ch.CZ}] = ch
	}
	return nil
}

// EditedChunks counts chunks that differ from generation.
func (w *World) EditedChunks() int {
	n := 0
	for _, ch := range w.chunks {
		if ch.edited {
			n++
		}
	}
	return n
}
