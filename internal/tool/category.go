package tool

import (
	"strings"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

// Config bounds allocation for one category.
type Config struct {
	MaxVeinSize    int
	DisabledWorlds []string
}

func (c Config) WorldDisabled(world string) bool {
	for _, w := range c.DisabledWorlds {
		if strings.EqualFold(w, world) {
			return true
		}
	}
	return false
}

// Category is immutable once registered; reloads build new categories.
type Category struct {
	id       string
	priority int
	items    map[namespaced.Key]struct{}
	blocks   *block.List
	config   Config
}

// NewCategory builds a category. With no items it is a hand category and
// matches only an empty hand.
func NewCategory(id string, priority int, items []namespaced.Key, blocks *block.List, cfg Config) *Category {
	c := &Category{
		id:       strings.ToLower(strings.TrimSpace(id)),
		priority: priority,
		items:    make(map[namespaced.Key]struct{}, len(items)),
		blocks:   blocks,
		config:   cfg,
	}
	for _, it := range items {
		c.items[it] = struct{}{}
	}
	if c.blocks == nil {
		c.blocks = block.NewList()
	}
	return c
}

func (c *Category) ID() string          { return c.id }
func (c *Category) Priority() int       { return c.priority }
func (c *Category) Blocks() *block.List { return c.blocks }
func (c *Category) Config() Config      { return c.config }
func (c *Category) IsHand() bool        { return len(c.items) == 0 }

func (c *Category) Items() []namespaced.Key {
	out := make([]namespaced.Key, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

func (c *Category) MatchesItem(it Item) bool {
	if c.IsHand() {
		return it.IsEmpty()
	}
	if it.IsEmpty() {
		return false
	}
	_, ok := c.items[it.Type]
	return ok
}

// PermissionNode is the node that allows vein mining with this category.
func (c *Category) PermissionNode() string { return "veinminer.veinmine." + c.id }
