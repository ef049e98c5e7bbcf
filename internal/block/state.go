// Package block holds the block identity types the vein allocation works on:
// concrete world states, configured specs and lists of specs.
package block

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

var Air = State{Type: namespaced.Minecraftf("air")}

type Property struct {
	Name  string
	Value string
}

// State is a concrete block state as read from a world. Properties are kept
// sorted by name; treat a State as immutable.
type State struct {
	Type  namespaced.Key
	props []Property
}

func NewState(typ namespaced.Key, props map[string]string) State {
	return State{Type: typ, props: sortedProps(props)}
}

// ParseState parses "ns:type[k=v,...]". The namespace defaults to minecraft.
func ParseState(s string) (State, error) {
	typ, props, err := parseTypeAndProps(s)
	if err != nil {
		return State{}, err
	}
	return State{Type: typ, props: props}, nil
}

func MustParseState(s string) State {
	st, err := ParseState(s)
	if err != nil {
		panic(err)
	}
	return st
}

func (s State) Property(name string) (string, bool) {
	i := sort.Search(len(s.props), func(i int) bool { return s.props[i].Name >= name })
	if i < len(s.props) && s.props[i].Name == name {
		return s.props[i].Value, true
	}
	return "", false
}

func (s State) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

func (s State) IsAir() bool { return s.Type == Air.Type }

func (s State) Equal(o State) bool {
	if s.Type != o.Type || len(s.props) != len(o.props) {
		return false
	}
	for i := range s.props {
		if s.props[i] != o.props[i] {
			return false
		}
	}
	return true
}

func (s State) String() string { return formatTypeAndProps(s.Type, s.props) }

func sortedProps(m map[string]string) []Property {
	if len(m) == 0 {
		return nil
	}
	out := make([]Property, 0, len(m))
	for k, v := range m {
		out = append(out, Property{Name: strings.ToLower(k), Value: strings.ToLower(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func parseTypeAndProps(s string) (namespaced.Key, []Property, error) {
	s = strings.TrimSpace(s)
	typePart, rest, hasProps := strings.Cut(s, "[")
	typ, err := namespaced.FromString(typePart, namespaced.Minecraft)
	if err != nil {
		return namespaced.Key{}, nil, fmt.Errorf("block %q: %w", s, err)
	}
	if !hasProps {
		return typ, nil, nil
	}
	if !strings.HasSuffix(rest, "]") {
		return namespaced.Key{}, nil, fmt.Errorf("block %q: unterminated properties", s)
	}
	rest = strings.TrimSuffix(rest, "]")
	m := map[string]string{}
	if strings.TrimSpace(rest) != "" {
		for _, kv := range strings.Split(rest, ",") {
			k, v, ok := strings.Cut(kv, "=")
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if !ok || k == "" || v == "" {
				return namespaced.Key{}, nil, fmt.Errorf("block %q: bad property %q", s, kv)
			}
			if _, dup := m[strings.ToLower(k)]; dup {
				return namespaced.Key{}, nil, fmt.Errorf("block %q: duplicate property %q", s, k)
			}
			m[strings.ToLower(k)] = v
		}
	}
	return typ, sortedProps(m), nil
}

func formatTypeAndProps(typ namespaced.Key, props []Property) string {
	if len(props) == 0 {
		return typ.String()
	}
	var b strings.Builder
	b.WriteString(typ.String())
	b.WriteByte('[')
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteByte(']')
	return b.String()
}
