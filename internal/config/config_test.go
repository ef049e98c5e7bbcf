package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/veinminer.yaml")
	require.NoError(t, err)

	assert.Equal(t, "SNEAK", cfg.DefaultActivationStrategy)
	assert.Equal(t, "veinminer:default", cfg.DefaultPattern)
	assert.True(t, cfg.Client.AllowActivationKeybind)
	assert.Equal(t, 30*time.Second, cfg.Storage.FlushInterval)
	assert.True(t, cfg.Storage.Snapshots)
	assert.Equal(t, 5*time.Minute, cfg.Storage.SnapshotInterval)
	assert.Equal(t, 3, cfg.Storage.SnapshotKeep)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.Audit.Index)

	ids := map[string]CategorySpec{}
	for _, c := range cfg.Categories {
		ids[c.ID] = c
	}
	require.Contains(t, ids, "pickaxe")
	require.Contains(t, ids, "hoe")
	assert.Equal(t, []string{"world_nether"}, ids["hoe"].DisabledWorlds)
	assert.Equal(t, -1, ids["hoe"].Priority)

	override, ok := cfg.Patterns.Permissions["veinminer:default"]
	assert.True(t, ok)
	assert.Empty(t, override)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Categories, 3)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
}

func TestParse_OverridesReplaceLists(t *testing.T) {
	cfg, err := Parse([]byte(`
default_activation_strategy: always
categories:
  - id: Hand
    blocks: [clay]
storage:
  type: JSON
`))
	require.NoError(t, err)
	assert.Equal(t, "ALWAYS", cfg.DefaultActivationStrategy)
	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "hand", cfg.Categories[0].ID)
	assert.Equal(t, 64, cfg.Categories[0].MaxVeinSize)
	assert.Equal(t, "json", cfg.Storage.Type)
	// Untouched sections keep their defaults.
	assert.Len(t, cfg.Aliases, 5)
}

func TestParse_CategoryKnobs(t *testing.T) {
	// repair_friendly is no longer a knob; old files still load.
	cfg, err := Parse([]byte(`
categories:
  - id: pickaxe
    items: [iron_pickaxe]
    blocks: [coal_ore]
    max_vein_size: 32
    repair_friendly: true
    disabled_worlds: [world_the_end]
`))
	require.NoError(t, err)
	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, CategorySpec{
		ID:             "pickaxe",
		Items:          []string{"iron_pickaxe"},
		Blocks:         []string{"coal_ore"},
		MaxVeinSize:    32,
		DisabledWorlds: []string{"world_the_end"},
	}, cfg.Categories[0])
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]string{
		"strategy":       "default_activation_strategy: sometimes\n",
		"duplicate":      "categories:\n  - {id: a, items: [x], blocks: [clay]}\n  - {id: a, items: [y], blocks: [sand]}\n",
		"two hands":      "categories:\n  - {id: a, blocks: [clay]}\n  - {id: b, blocks: [sand]}\n",
		"no blocks":      "categories:\n  - {id: a, items: [x]}\n",
		"short alias":    "aliases:\n  - {name: a, blocks: [clay]}\n",
		"storage":        "storage: {type: redis}\n",
		"log output":     "log: {output: syslog}\n",
		"world height":   "world: {min_y: 10, max_y: 10}\n",
		"negative limit": "limits: {requests_per_second: -1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPermissions_GrantsAndWildcards(t *testing.T) {
	p := PermissionsConfig{
		Default: []string{"veinminer.pattern.*"},
		Players: map[string][]string{"Steve": {"veinminer.veinmine.axe"}},
	}
	steve := p.Grants("steve")
	assert.Equal(t, []string{"veinminer.pattern.*", "veinminer.veinmine.axe"}, steve)
	assert.Equal(t, []string{"veinminer.pattern.*"}, p.Grants("alex"))

	assert.True(t, HasNode(steve, "veinminer.pattern.tunnel"))
	assert.True(t, HasNode(steve, "veinminer.veinmine.axe"))
	assert.False(t, HasNode(steve, "veinminer.veinmine.pickaxe"))
	assert.False(t, HasNode(steve, "veinminer.patterns"))
	assert.True(t, HasNode([]string{"*"}, "anything"))
}

func TestParseEnv_Defaults(t *testing.T) {
	t.Setenv("VEINMINER_ADDR", ":9999")
	rt, err := ParseEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9999", rt.Addr)
	assert.Equal(t, 20, rt.TickRateHz)
	assert.True(t, rt.WatchConfig)
	assert.False(t, rt.Mirror.Enabled())
	assert.Equal(t, "auto", rt.Mirror.Region)

	t.Setenv("VEINMINER_MIRROR_ENDPOINT", "https://s3.example.com")
	t.Setenv("VEINMINER_MIRROR_BUCKET", "backups")
	t.Setenv("VEINMINER_MIRROR_WORKERS", "4")
	rt, err = ParseEnv()
	require.NoError(t, err)
	assert.True(t, rt.Mirror.Enabled())
	assert.Equal(t, "backups", rt.Mirror.Bucket)
	assert.Equal(t, 4, rt.Mirror.Workers)

	t.Setenv("VEINMINER_TICK_RATE", "0")
	_, err = ParseEnv()
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "veinminer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_activation_strategy: SNEAK\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil, func(c Config) { got <- c }) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("default_activation_strategy: NONE\n"), 0o644))

	select {
	case c := <-got:
		assert.Equal(t, "NONE", c.DefaultActivationStrategy)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop")
	}
}
