// Package alias resolves the alias group of a matched block spec.
package alias

import (
	"fmt"

	"github.com/KyousabaMC/VeinMiner/internal/block"
)

// Registry holds named alias groups. Lookup returns the first group that
// contains the spec; a nil result means no aliasing.
type Registry struct {
	names  []string
	groups map[string]*block.List
}

type Group struct {
	Name  string
	Specs *block.List
}

func NewRegistry(groups ...Group) (*Registry, error) {
	r := &Registry{groups: map[string]*block.List{}}
	for _, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("alias: empty name")
		}
		if _, ok := r.groups[g.Name]; ok {
			return nil, fmt.Errorf("alias %q: registered twice", g.Name)
		}
		if g.Specs.Len() < 2 {
			return nil, fmt.Errorf("alias %q: needs at least two blocks", g.Name)
		}
		for _, s := range g.Specs.Specs() {
			if s.IsWildcard() {
				return nil, fmt.Errorf("alias %q: wildcard is not aliasable", g.Name)
			}
		}
		r.names = append(r.names, g.Name)
		r.groups[g.Name] = g.Specs
	}
	return r, nil
}

func (r *Registry) Lookup(s block.Spec) *block.List {
	if r == nil {
		return nil
	}
	for _, n := range r.names {
		if g := r.groups[n]; g.Contains(s) {
			return g
		}
	}
	return nil
}

func (r *Registry) Get(name string) (*block.List, bool) {
	if r == nil {
		return nil, false
	}
	g, ok := r.groups[name]
	return g, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r *Registry) All() []Group {
	if r == nil {
		return nil
	}
	out := make([]Group, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, Group{Name: n, Specs: r.groups[n]})
	}
	return out
}

func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
