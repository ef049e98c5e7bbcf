package block

import "fmt"

// List is a deduplicated set of specs kept in insertion order. It backs both
// category block lists and alias groups.
type List struct {
	specs []Spec
	index map[string]int
}

func NewList(specs ...Spec) *List {
	l := &List{index: map[string]int{}}
	for _, s := range specs {
		l.Add(s)
	}
	return l
}

// ParseList parses every entry with ParseSpec.
func ParseList(entries []string) (*List, error) {
	l := NewList()
	for _, e := range entries {
		s, err := ParseSpec(e)
		if err != nil {
			return nil, fmt.Errorf("block list: %w", err)
		}
		l.Add(s)
	}
	return l, nil
}

// Add reports whether the spec was not already present.
func (l *List) Add(s Spec) bool {
	key := s.String()
	if _, ok := l.index[key]; ok {
		return false
	}
	l.index[key] = len(l.specs)
	l.specs = append(l.specs, s)
	return true
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.specs)
}

func (l *List) Specs() []Spec {
	if l == nil {
		return nil
	}
	out := make([]Spec, len(l.specs))
	copy(out, l.specs)
	return out
}

func (l *List) Contains(s Spec) bool {
	if l == nil {
		return false
	}
	_, ok := l.index[s.String()]
	return ok
}

// ContainsState reports whether any member matches st. A nil list contains nothing.
func (l *List) ContainsState(st State) bool {
	if l == nil {
		return false
	}
	for _, s := range l.specs {
		if s.MatchesState(st) {
			return true
		}
	}
	return false
}

// Match returns the member spec that st resolves to: the first non-wildcard
// match, else the wildcard if the list has one.
func (l *List) Match(st State) (Spec, bool) {
	if l == nil {
		return Spec{}, false
	}
	wildcard := -1
	for i, s := range l.specs {
		if s.IsWildcard() {
			if wildcard < 0 {
				wildcard = i
			}
			continue
		}
		if s.MatchesState(st) {
			return s, true
		}
	}
	if wildcard >= 0 {
		return l.specs[wildcard], true
	}
	return Spec{}, false
}
