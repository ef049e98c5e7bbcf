package pattern

import "github.com/KyousabaMC/VeinMiner/internal/block"

// Matches reports whether current belongs to the vein described by spec.
//
// A wildcard spec is anchored to the broken origin's type, so one traversal
// never mixes block types through the wildcard. Exact specs only look at
// current. In both cases membership in aliases also qualifies.
func Matches(spec block.Spec, aliases *block.List, origin, current block.State) bool {
	if spec.IsWildcard() {
		return origin.Type == current.Type || aliases.ContainsState(current)
	}
	return spec.MatchesState(current) || aliases.ContainsState(current)
}
