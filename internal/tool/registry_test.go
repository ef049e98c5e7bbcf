package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

func mc(s string) namespaced.Key { return namespaced.Minecraftf(s) }

func TestRegistry_ResolveByPriorityThenRegistrationOrder(t *testing.T) {
	pick := NewCategory("Pickaxe", 0, []namespaced.Key{mc("iron_pickaxe"), mc("shared_tool")}, nil, Config{MaxVeinSize: 64})
	axe := NewCategory("axe", 0, []namespaced.Key{mc("iron_axe"), mc("shared_tool")}, nil, Config{MaxVeinSize: 64})
	special := NewCategory("special", 5, []namespaced.Key{mc("iron_axe")}, nil, Config{MaxVeinSize: 8})
	hand := NewCategory("hand", -1, nil, nil, Config{MaxVeinSize: 4})

	r, err := NewRegistry(pick, axe, special, hand)
	require.NoError(t, err)

	c, ok := r.Resolve(ItemOf("minecraft:shared_tool"))
	require.True(t, ok)
	assert.Equal(t, "pickaxe", c.ID(), "tie should go to the first registered category")

	c, ok = r.Resolve(ItemOf("iron_axe"))
	require.True(t, ok)
	assert.Equal(t, "special", c.ID(), "higher priority should win")

	c, ok = r.Resolve(Item{})
	require.True(t, ok)
	assert.Equal(t, "hand", c.ID())

	_, ok = r.Resolve(ItemOf("stick"))
	assert.False(t, ok)

	got, ok := r.Get("PICKAXE")
	require.True(t, ok)
	assert.Same(t, pick, got)
	assert.Equal(t, 4, r.Size())
	assert.Equal(t, []*Category{pick, axe, special, hand}, r.All())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	a := NewCategory("axe", 0, nil, block.NewList(), Config{})
	b := NewCategory("AXE", 0, nil, block.NewList(), Config{})
	_, err := NewRegistry(a, b)
	require.Error(t, err)
}

func TestConfig_WorldDisabled(t *testing.T) {
	cfg := Config{DisabledWorlds: []string{"World_Nether"}}
	assert.True(t, cfg.WorldDisabled("world_nether"))
	assert.False(t, cfg.WorldDisabled("world"))
}
