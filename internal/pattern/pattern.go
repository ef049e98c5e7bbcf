// Package pattern implements vein allocation: the block matcher, the shared
// traversal and the selectable patterns.
//
// Every pattern returns the full vein with the origin first. The origin counts
// toward the category's maximum vein size. An origin that is missing from the
// world or does not match the spec yields an empty result. Traversal is
// breadth-first with a fixed neighbour order, and only reads the accessor.
package pattern

import (
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

type Pattern interface {
	Key() namespaced.Key
	// Permission is the node needed to select the pattern; empty means none.
	Permission() string
	Allocate(acc block.Accessor, origin block.Position, face block.Face, spec block.Spec, cfg tool.Config, aliases *block.List) []block.Position
}

var (
	KeyDefault       = namespaced.VeinMinerf("default")
	KeyThorough      = namespaced.VeinMinerf("thorough")
	KeyTunnel        = namespaced.VeinMinerf("tunnel")
	KeyStaircaseUp   = namespaced.VeinMinerf("staircase_up")
	KeyStaircaseDown = namespaced.VeinMinerf("staircase_down")
	KeyCube          = namespaced.VeinMinerf("cube")
)

type Option func(*base)

// WithPermission overrides the pattern's permission node. Empty clears it.
func WithPermission(node string) Option {
	return func(b *base) { b.permission = node }
}

type base struct {
	key        namespaced.Key
	permission string
}

func newBase(key namespaced.Key, opts []Option) base {
	b := base{key: key, permission: "veinminer.pattern." + key.Key}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b base) Key() namespaced.Key { return b.key }
func (b base) Permission() string  { return b.permission }

// Builtins returns every pattern shipped with the server, default first.
// permissions overrides the node of the listed keys.
func Builtins(cubeRadius int, permissions map[namespaced.Key]string) []Pattern {
	opts := func(k namespaced.Key) []Option {
		if p, ok := permissions[k]; ok {
			return []Option{WithPermission(p)}
		}
		return nil
	}
	return []Pattern{
		NewDefault(opts(KeyDefault)...),
		NewThorough(opts(KeyThorough)...),
		NewTunnel(opts(KeyTunnel)...),
		NewStaircase(true, opts(KeyStaircaseUp)...),
		NewStaircase(false, opts(KeyStaircaseDown)...),
		NewCube(cubeRadius, opts(KeyCube)...),
	}
}
