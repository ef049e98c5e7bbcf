package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

var (
	stone    = block.MustParseState("minecraft:stone")
	coal     = block.MustParseState("minecraft:coal_ore")
	deepCoal = block.MustParseState("minecraft:deepslate_coal_ore")
	dirt     = block.MustParseState("minecraft:dirt")
)

func fill(acc block.MapAccessor, st block.State, from, to block.Position) {
	for x := from.X; x <= to.X; x++ {
		for y := from.Y; y <= to.Y; y++ {
			for z := from.Z; z <= to.Z; z++ {
				acc[block.Pos(x, y, z)] = st
			}
		}
	}
}

func cfg(n int) tool.Config { return tool.Config{MaxVeinSize: n} }

func assertUnique(t *testing.T, got []block.Position) {
	t.Helper()
	seen := map[block.Position]bool{}
	for _, p := range got {
		if seen[p] {
			t.Fatalf("duplicate position %s in %v", p, got)
		}
		seen[p] = true
	}
}

func TestMatches_WildcardAnchoredToOrigin(t *testing.T) {
	wild := block.Wildcard()
	if !Matches(wild, nil, stone, stone) {
		t.Fatalf("wildcard should match the origin type")
	}
	if Matches(wild, nil, stone, dirt) {
		t.Fatalf("wildcard must not cross block types")
	}
	aliases := block.NewList(block.MustParseSpec("minecraft:dirt"))
	if !Matches(wild, aliases, stone, dirt) {
		t.Fatalf("alias membership should qualify")
	}
}

func TestMatches_ExactSpec(t *testing.T) {
	spec := block.MustParseSpec("minecraft:coal_ore")
	assert.True(t, Matches(spec, nil, coal, coal))
	assert.False(t, Matches(spec, nil, coal, deepCoal))
	aliases := block.NewList(block.MustParseSpec("minecraft:coal_ore"), block.MustParseSpec("minecraft:deepslate_coal_ore"))
	assert.True(t, Matches(spec, aliases, coal, deepCoal))

	// exact specs ignore the origin
	assert.True(t, Matches(spec, nil, dirt, coal))
	assert.False(t, Matches(spec, nil, coal, dirt))
}

func TestDefault_LineOfFive(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, coal, block.Pos(0, 0, 0), block.Pos(4, 0, 0))
	spec := block.MustParseSpec("minecraft:coal_ore")

	got := NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), nil)
	require.Len(t, got, 5)
	assert.Equal(t, block.Pos(0, 0, 0), got[0])
	assert.ElementsMatch(t, []block.Position{
		block.Pos(0, 0, 0), block.Pos(1, 0, 0), block.Pos(2, 0, 0), block.Pos(3, 0, 0), block.Pos(4, 0, 0),
	}, got)
}

func TestDefault_Bounded(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(-5, -5, -5), block.Pos(5, 5, 5))
	spec := block.MustParseSpec("minecraft:stone")

	for _, p := range Builtins(DefaultCubeRadius, nil) {
		got := p.Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(10), nil)
		assert.LessOrEqual(t, len(got), 10, p.Key().String())
		assertUnique(t, got)
		if len(got) > 0 {
			assert.Equal(t, block.Pos(0, 0, 0), got[0], p.Key().String())
		}
	}
}

func TestAllocate_EmptyWhenOriginDoesNotMatch(t *testing.T) {
	acc := block.MapAccessor{block.Pos(0, 0, 0): dirt, block.Pos(1, 0, 0): coal}
	spec := block.MustParseSpec("minecraft:coal_ore")
	for _, p := range Builtins(DefaultCubeRadius, nil) {
		assert.Empty(t, p.Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), nil), p.Key().String())
		assert.Empty(t, p.Allocate(acc, block.Pos(9, 9, 9), block.FaceUp, spec, cfg(64), nil), p.Key().String())
	}
}

func TestAllocate_ZeroLimit(t *testing.T) {
	acc := block.MapAccessor{block.Pos(0, 0, 0): coal}
	got := NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, block.Wildcard(), cfg(0), nil)
	assert.Empty(t, got)
}

func TestAllocate_Deterministic(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(-3, -3, -3), block.Pos(3, 3, 3))
	for _, p := range Builtins(DefaultCubeRadius, nil) {
		a := p.Allocate(acc, block.Pos(0, 0, 0), block.FaceEast, block.Wildcard(), cfg(40), nil)
		b := p.Allocate(acc, block.Pos(0, 0, 0), block.FaceEast, block.Wildcard(), cfg(40), nil)
		assert.Equal(t, a, b, p.Key().String())
	}
}

func TestDefault_WildcardStaysOnOriginType(t *testing.T) {
	acc := block.MapAccessor{
		block.Pos(0, 0, 0): stone,
		block.Pos(1, 0, 0): stone,
		block.Pos(2, 0, 0): dirt,
		block.Pos(3, 0, 0): stone,
	}
	got := NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, block.Wildcard(), cfg(64), nil)
	assert.Equal(t, []block.Position{block.Pos(0, 0, 0), block.Pos(1, 0, 0)}, got)
}

func TestDefault_AliasesBridgeTypes(t *testing.T) {
	acc := block.MapAccessor{
		block.Pos(0, 0, 0): coal,
		block.Pos(0, 1, 0): deepCoal,
		block.Pos(0, 2, 0): coal,
	}
	spec := block.MustParseSpec("minecraft:coal_ore")
	aliases := block.NewList(block.MustParseSpec("minecraft:coal_ore"), block.MustParseSpec("minecraft:deepslate_coal_ore"))

	without := NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), nil)
	with := NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), aliases)
	assert.Len(t, without, 1)
	assert.Len(t, with, 3)
}

func TestThorough_CrossesDiagonals(t *testing.T) {
	acc := block.MapAccessor{
		block.Pos(0, 0, 0): coal,
		block.Pos(1, 1, 0): coal,
		block.Pos(2, 2, 1): coal,
	}
	spec := block.MustParseSpec("minecraft:coal_ore")
	assert.Len(t, NewDefault().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), nil), 1)
	assert.Len(t, NewThorough().Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, spec, cfg(64), nil), 3)
}

func TestTunnel_StaysInCrossSection(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(-4, -4, -4), block.Pos(4, 4, 4))

	// Player stands west of the block and hits its west face, so the tunnel runs east.
	got := NewTunnel().Allocate(acc, block.Pos(0, 0, 0), block.FaceWest, block.Wildcard(), cfg(1000), nil)
	require.NotEmpty(t, got)
	assertUnique(t, got)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.X, 0, "tunnel went back toward the player: %s", p)
		assert.LessOrEqual(t, absInt(p.Y), 1, "%s", p)
		assert.LessOrEqual(t, absInt(p.Z), 1, "%s", p)
	}
	// 5 layers (x = 0..4) of 3x3
	assert.Len(t, got, 45)
}

func TestTunnel_InvalidFace(t *testing.T) {
	acc := block.MapAccessor{block.Pos(0, 0, 0): stone}
	assert.Empty(t, NewTunnel().Allocate(acc, block.Pos(0, 0, 0), block.FaceNone, block.Wildcard(), cfg(10), nil))
}

func TestStaircase_Steps(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(-6, -6, -6), block.Pos(6, 6, 6))

	up := NewStaircase(true).Allocate(acc, block.Pos(0, 0, 0), block.FaceSouth, block.Wildcard(), cfg(64), nil)
	require.NotEmpty(t, up)
	assertUnique(t, up)
	// Hitting the south face digs north (-Z); each step rises by one.
	for _, p := range up {
		step := -p.Z
		assert.True(t, p.Y == step || p.Y == step+1, "off-stair position %s", p)
		assert.Equal(t, 0, p.X)
	}

	down := NewStaircase(false).Allocate(acc, block.Pos(0, 0, 0), block.FaceSouth, block.Wildcard(), cfg(64), nil)
	for _, p := range down {
		step := -p.Z
		assert.True(t, p.Y == -step || p.Y == -step+1, "off-stair position %s", p)
	}
}

func TestStaircase_VerticalFaceFallsBackToNorth(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(0, 0, -3), block.Pos(0, 4, 0))
	got := NewStaircase(true).Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, block.Wildcard(), cfg(64), nil)
	assert.Contains(t, got, block.Pos(0, 1, -1))
}

func TestCube_RespectsRadius(t *testing.T) {
	acc := block.MapAccessor{}
	fill(acc, stone, block.Pos(-5, -5, -5), block.Pos(5, 5, 5))
	got := NewCube(1).Allocate(acc, block.Pos(0, 0, 0), block.FaceUp, block.Wildcard(), cfg(1000), nil)
	assert.Len(t, got, 27)
	for _, p := range got {
		assert.LessOrEqual(t, p.Chebyshev(block.Pos(0, 0, 0)), 1)
	}
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(Builtins(DefaultCubeRadius, nil)...)
	require.NoError(t, err)
	assert.Equal(t, 6, reg.Size())
	assert.Equal(t, KeyDefault, reg.Keys()[0])

	p, ok := reg.Get(KeyTunnel)
	require.True(t, ok)
	assert.Equal(t, "veinminer.pattern.tunnel", p.Permission())

	def, _ := reg.Get(KeyDefault)
	assert.Equal(t, "", def.Permission())
	assert.Same(t, def, reg.GetOrDefault(namespaced.VeinMinerf("missing"), def))

	_, err = NewRegistry(NewDefault(), NewDefault())
	assert.Error(t, err)
}

func TestBuiltins_PermissionOverride(t *testing.T) {
	pats := Builtins(DefaultCubeRadius, map[namespaced.Key]string{KeyCube: "custom.cube", KeyDefault: "custom.default"})
	reg, err := NewRegistry(pats...)
	require.NoError(t, err)
	c, _ := reg.Get(KeyCube)
	d, _ := reg.Get(KeyDefault)
	assert.Equal(t, "custom.cube", c.Permission())
	assert.Equal(t, "custom.default", d.Permission())
}
