package pattern

import (
	"fmt"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	byKey   map[namespaced.Key]Pattern
	ordered []Pattern
}

func NewRegistry(patterns ...Pattern) (*Registry, error) {
	r := &Registry{byKey: map[namespaced.Key]Pattern{}}
	for _, p := range patterns {
		if p == nil || p.Key().IsZero() {
			return nil, fmt.Errorf("pattern: empty key")
		}
		if _, ok := r.byKey[p.Key()]; ok {
			return nil, fmt.Errorf("pattern %s: registered twice", p.Key())
		}
		r.byKey[p.Key()] = p
		r.ordered = append(r.ordered, p)
	}
	return r, nil
}

func (r *Registry) Get(key namespaced.Key) (Pattern, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byKey[key]
	return p, ok
}

func (r *Registry) GetOrDefault(key namespaced.Key, def Pattern) Pattern {
	if p, ok := r.Get(key); ok {
		return p
	}
	return def
}

func (r *Registry) Has(key namespaced.Key) bool {
	_, ok := r.Get(key)
	return ok
}

// All returns patterns in registration order.
func (r *Registry) All() []Pattern {
	if r == nil {
		return nil
	}
	return append([]Pattern(nil), r.ordered...)
}

func (r *Registry) Keys() []namespaced.Key {
	if r == nil {
		return nil
	}
	out := make([]namespaced.Key, 0, len(r.ordered))
	for _, p := range r.ordered {
		out = append(out, p.Key())
	}
	return out
}

func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}
