package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
)

func TestBuildRequest(t *testing.T) {
	method, path, body, err := buildRequest("category", "Steve", "axe", false, "", "")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/admin/v1/players/category", path)
	assert.Equal(t, map[string]any{"player": "Steve", "category": "axe", "enabled": false}, body)

	method, path, body, err = buildRequest("block", "", "", true, "1, -2,3", "")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "/admin/v1/block?x=1&y=-2&z=3", path)
	assert.Nil(t, body)

	_, path, body, err = buildRequest("block", "", "", true, "1,2,3", "minecraft:stone")
	require.NoError(t, err)
	assert.Equal(t, "/admin/v1/block", path)
	assert.Equal(t, [3]int{1, 2, 3}, body["pos"])

	_, _, _, err = buildRequest("strategy", "Steve", "", true, "", "")
	assert.Error(t, err)
	_, _, _, err = buildRequest("block", "", "", true, "1,2", "")
	assert.Error(t, err)
}

func TestScanAudit_FiltersAndSummarizes(t *testing.T) {
	dataDir := t.TempDir()
	logger := persistlog.NewAuditLogger(dataDir)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []persistlog.AuditEntry{
		{Time: base, Player: "Steve", Category: "pickaxe", Pattern: "veinminer:default", Positions: make([][3]int, 5)},
		{Time: base.Add(time.Minute), Player: "Alex", Category: "axe", Pattern: "veinminer:default", Positions: make([][3]int, 12)},
		{Time: base.Add(2 * time.Minute), Player: "steve", Category: "pickaxe", Pattern: "veinminer:tunnel", Positions: make([][3]int, 3)},
	}
	for _, e := range entries {
		require.NoError(t, logger.WriteAudit(e))
	}
	require.NoError(t, logger.Close())

	var seen []string
	sum, err := scanAudit(persistlog.AuditDir(dataDir), auditFilter{Player: "STEVE"}, func(e persistlog.AuditEntry) {
		seen = append(seen, e.Pattern)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"veinminer:default", "veinminer:tunnel"}, seen)
	assert.Equal(t, 2, sum.Entries)
	assert.Equal(t, 8, sum.Blocks)
	assert.Equal(t, 5, sum.MaxVein)
	assert.Equal(t, map[string]int{"pickaxe": 8}, sum.ByCategory)

	sum, err = scanAudit(persistlog.AuditDir(dataDir), auditFilter{Since: base.Add(30 * time.Second)}, func(persistlog.AuditEntry) {})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Entries)
	assert.Equal(t, 15, sum.Blocks)
	assert.Equal(t, 1, sum.ByPattern["veinminer:tunnel"])
}
