package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

func entry(player, category string, at time.Time, n int) persistlog.AuditEntry {
	pos := make([][3]int, n)
	for i := range pos {
		pos[i] = [3]int{i, 64, 0}
	}
	return persistlog.AuditEntry{
		Time:      at,
		PlayerID:  "id-" + player,
		Player:    player,
		World:     "world",
		Category:  category,
		Pattern:   "veinminer:default",
		Origin:    [3]int{0, 64, 0},
		Face:      "up",
		Positions: pos,
	}
}

func TestSQLiteIndex_AuditsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "veinminer.sqlite")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, idx.WriteAudit(entry("Steve", "pickaxe", base, 3)))
	require.NoError(t, idx.WriteAudit(entry("Alex", "axe", base.Add(time.Minute), 5)))
	require.NoError(t, idx.WriteAudit(entry("steve", "pickaxe", base.Add(2*time.Minute), 7)))
	idx.RecordSnapshot("/data/snapshots/40.snap.zst", snapshot.SnapshotV1{
		Header:  snapshot.Header{Version: snapshot.Version, World: "world", Tick: 40, SavedAt: base},
		Seed:    7,
		Palette: []string{"minecraft:air", "minecraft:stone"},
		Chunks:  []snapshot.ChunkV1{{CX: 0, CZ: 0}},
	})
	require.NoError(t, idx.Close())
	assert.Equal(t, uint64(4), idx.Stats().WrittenTotal)

	// Writes after close are ignored.
	require.NoError(t, idx.WriteAudit(entry("late", "pickaxe", base, 1)))

	idx, err = OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	all, err := idx.RecentAudits(ctx, AuditQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Steve", all[0].Player)
	assert.Equal(t, "steve", all[2].Player)

	steve, err := idx.RecentAudits(ctx, AuditQuery{Player: "STEVE"})
	require.NoError(t, err)
	require.Len(t, steve, 2)
	assert.Len(t, steve[1].Positions, 7)

	byID, err := idx.RecentAudits(ctx, AuditQuery{Player: "id-Alex"})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	recent, err := idx.RecentAudits(ctx, AuditQuery{Category: "Pickaxe", Since: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Time.Equal(base.Add(2*time.Minute)))

	limited, err := idx.RecentAudits(ctx, AuditQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "Alex", limited[0].Player)

	snaps, err := idx.Snapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, SnapshotRow{
		Tick:    40,
		Path:    "/data/snapshots/40.snap.zst",
		World:   "world",
		Seed:    7,
		Chunks:  1,
		Palette: 2,
		SavedAt: base.Format(time.RFC3339Nano),
	}, snaps[0])
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqAudit}

	require.NoError(t, s.WriteAudit(persistlog.AuditEntry{}))
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropAuditTotal)
	assert.Equal(t, uint64(1), st.DropSnapshotTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestQueryAudits_ReadsExternalHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veinminer.sqlite")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, idx.WriteAudit(entry("Steve", "shovel", time.Now().UTC(), 2)))
	require.NoError(t, idx.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	got, err := QueryAudits(context.Background(), db, AuditQuery{Category: "shovel"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "id-Steve", got[0].PlayerID)

	var version string
	require.NoError(t, db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
