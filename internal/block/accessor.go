package block

// Accessor reads world block states. ok is false where the world has no data.
type Accessor interface {
	StateAt(pos Position) (State, bool)
}

// MapAccessor is a sparse in-memory Accessor; absent positions have no data.
type MapAccessor map[Position]State

func (m MapAccessor) StateAt(pos Position) (State, bool) {
	st, ok := m[pos]
	return st, ok
}
