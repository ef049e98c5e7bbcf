package world

import (
	"path/filepath"
	"testing"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

func TestSnapshot_RoundTripKeepsEdits(t *testing.T) {
	w := newTestWorld(t, 9)
	gold := block.MustParseState("minecraft:gold_ore")
	w.SetState(block.Pos(1, 70, 1), gold)
	w.SetState(block.Pos(40, 10, -40), block.MustParseState("minecraft:oak_log[axis=x]"))
	_, _ = w.StateAt(block.Pos(100, 0, 100)) // generated only

	if got := w.EditedChunks(); got != 2 {
		t.Fatalf("EditedChunks = %d, want 2", got)
	}

	path := snapshot.PathFor(t.TempDir(), 77)
	if err := snapshot.WriteSnapshot(path, w.ExportSnapshot(77)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if snap.Header.Tick != 77 || len(snap.Chunks) != 2 {
		t.Fatalf("header tick=%d chunks=%d", snap.Header.Tick, len(snap.Chunks))
	}
	if latest := snapshot.Latest(filepath.Dir(path)); latest != path {
		t.Fatalf("Latest = %q, want %q", latest, path)
	}

	fresh := newTestWorld(t, 9)
	if err := fresh.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if st, _ := fresh.StateAt(block.Pos(1, 70, 1)); !st.Equal(gold) {
		t.Fatalf("restored state = %s", st)
	}
	if st, _ := fresh.StateAt(block.Pos(40, 10, -40)); st.String() != "minecraft:oak_log[axis=x]" {
		t.Fatalf("restored log = %s", st)
	}
	k := ChunkKey{CX: 0, CZ: 0}
	a, _ := w.ChunkDigest(k)
	b, _ := fresh.ChunkDigest(k)
	if a != b {
		t.Fatalf("restored chunk digest differs")
	}
}

func TestSnapshot_RejectsOtherGenerator(t *testing.T) {
	w := newTestWorld(t, 9)
	w.SetState(block.Pos(0, 70, 0), block.MustParseState("minecraft:stone"))
	snap := w.ExportSnapshot(1)

	other := newTestWorld(t, 10)
	if err := other.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected seed mismatch error")
	}
	snap.Chunks[0].Blocks = snap.Chunks[0].Blocks[:10]
	if err := newTestWorld(t, 9).ImportSnapshot(snap); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestSnapshot_Prune(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorld(t, 1)
	for _, tick := range []uint64{10, 30, 20} {
		if err := snapshot.WriteSnapshot(snapshot.PathFor(dir, tick), w.ExportSnapshot(tick)); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	n, err := snapshot.Prune(dir, 2)
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if latest := snapshot.Latest(dir); latest != snapshot.PathFor(dir, 30) {
		t.Fatalf("Latest = %q", latest)
	}
}
