package playerdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		ID:                 uuid.MustParse("5b1f9a7e-0c4d-4e8a-9a57-2f0e1c3b6d11"),
		Name:               "Notch",
		ActivationStrategy: "SNEAK",
		Pattern:            "veinminer:tunnel",
		DisabledCategories: []string{"axe", "pickaxe"},
		UpdatedAt:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	rec := sampleRecord()

	_, ok, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, rec))
	got, ok, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	rec.DisabledCategories = nil
	rec.Pattern = ""
	require.NoError(t, s.Save(ctx, rec))
	got, ok, err = s.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.DisabledCategories)
	assert.Equal(t, "", got.Pattern)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "players.db"))
	require.NoError(t, err)
	defer s.Close()
	testRoundTrip(t, s)
}

func TestJSONStore_RoundTrip(t *testing.T) {
	s, err := OpenJSON(filepath.Join(t.TempDir(), "players"))
	require.NoError(t, err)
	defer s.Close()
	testRoundTrip(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleRecord()))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var name, disabled string
	row := db.QueryRow(`SELECT name,disabled_categories FROM players WHERE id=?`, sampleRecord().ID.String())
	require.NoError(t, row.Scan(&name, &disabled))
	assert.Equal(t, "Notch", name)
	assert.JSONEq(t, `["axe","pickaxe"]`, disabled)
}

func TestStore_ClosedRejects(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "players.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Save(context.Background(), sampleRecord()), ErrClosed)
	require.NoError(t, s.Close())

	j, err := OpenJSON(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	_, _, err = j.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_Kinds(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("json", dir)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("mongo", dir)
	assert.Error(t, err)
}
