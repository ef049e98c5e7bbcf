package world

import "github.com/KyousabaMC/VeinMiner/internal/block"

// Palette maps block states to the compact ids stored in chunks. Id 0 is
// always air.
type Palette struct {
	states []block.State
	ids    map[string]uint16
}

func NewPalette() *Palette {
	p := &Palette{ids: map[string]uint16{}}
	p.ID(block.Air)
	return p
}

// ID returns the id for st, assigning the next free one if st is new.
func (p *Palette) ID(st block.State) uint16 {
	k := st.String()
	if id, ok := p.ids[k]; ok {
		return id
	}
	id := uint16(len(p.states))
	p.states = append(p.states, st)
	p.ids[k] = id
	return id
}

func (p *Palette) State(id uint16) (block.State, bool) {
	if int(id) >= len(p.states) {
		return block.State{}, false
	}
	return p.states[id], true
}

func (p *Palette) Len() int { return len(p.states) }
