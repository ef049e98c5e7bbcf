package block

import (
	"strings"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

type SpecKind uint8

const (
	// KindType matches every state of one block type.
	KindType SpecKind = iota + 1
	// KindState matches states carrying all of the spec's properties.
	KindState
	// KindWildcard matches any state. Vein traversal anchors it to the origin's type.
	KindWildcard
)

const WildcardToken = "*"

// Spec is a configured, matchable block (a BlockSpec). It is immutable.
type Spec struct {
	kind  SpecKind
	typ   namespaced.Key
	props []Property
}

func Wildcard() Spec { return Spec{kind: KindWildcard} }

func TypeSpec(typ namespaced.Key) Spec { return Spec{kind: KindType, typ: typ} }

func StateSpec(typ namespaced.Key, props map[string]string) Spec {
	p := sortedProps(props)
	if len(p) == 0 {
		return TypeSpec(typ)
	}
	return Spec{kind: KindState, typ: typ, props: p}
}

// ParseSpec accepts "*", "type" or "type[k=v,...]".
func ParseSpec(s string) (Spec, error) {
	if strings.TrimSpace(s) == WildcardToken {
		return Wildcard(), nil
	}
	typ, props, err := parseTypeAndProps(s)
	if err != nil {
		return Spec{}, err
	}
	if len(props) == 0 {
		return TypeSpec(typ), nil
	}
	return Spec{kind: KindState, typ: typ, props: props}, nil
}

func MustParseSpec(s string) Spec {
	sp, err := ParseSpec(s)
	if err != nil {
		panic(err)
	}
	return sp
}

func (s Spec) Kind() SpecKind       { return s.kind }
func (s Spec) IsWildcard() bool     { return s.kind == KindWildcard }
func (s Spec) Type() namespaced.Key { return s.typ }

// MatchesState reports whether st satisfies the spec on its own, without an
// origin anchor. A wildcard matches everything here.
func (s Spec) MatchesState(st State) bool {
	switch s.kind {
	case KindWildcard:
		return true
	case KindType:
		return st.Type == s.typ
	case KindState:
		if st.Type != s.typ {
			return false
		}
		for _, p := range s.props {
			if v, ok := st.Property(p.Name); !ok || v != p.Value {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (s Spec) Equal(o Spec) bool { return s.String() == o.String() }

func (s Spec) String() string {
	if s.kind == KindWildcard {
		return WildcardToken
	}
	return formatTypeAndProps(s.typ, s.props)
}
