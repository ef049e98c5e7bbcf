package tool

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is built once per config load and read concurrently afterwards.
type Registry struct {
	byID    map[string]*Category
	ordered []*Category
	// resolve order: priority desc, then registration order.
	byPriority []*Category
}

func NewRegistry(cats ...*Category) (*Registry, error) {
	r := &Registry{byID: map[string]*Category{}}
	for _, c := range cats {
		if err := r.register(c); err != nil {
			return nil, err
		}
	}
	r.byPriority = append([]*Category(nil), r.ordered...)
	sort.SliceStable(r.byPriority, func(i, j int) bool {
		return r.byPriority[i].priority > r.byPriority[j].priority
	})
	return r, nil
}

func (r *Registry) register(c *Category) error {
	if c == nil || c.id == "" {
		return fmt.Errorf("category: empty id")
	}
	if _, ok := r.byID[c.id]; ok {
		return fmt.Errorf("category %q: registered twice", c.id)
	}
	r.byID[c.id] = c
	r.ordered = append(r.ordered, c)
	return nil
}

// Get looks a category up by id, case-insensitively.
func (r *Registry) Get(id string) (*Category, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return c, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Resolve returns the category for a held item: highest priority first, ties
// in registration order.
func (r *Registry) Resolve(it Item) (*Category, bool) {
	if r == nil {
		return nil, false
	}
	for _, c := range r.byPriority {
		if c.MatchesItem(it) {
			return c, true
		}
	}
	return nil, false
}

// All returns categories in registration order.
func (r *Registry) All() []*Category {
	if r == nil {
		return nil
	}
	return append([]*Category(nil), r.ordered...)
}

func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}
