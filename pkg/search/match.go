package search

import "strings"

// Match is a bitmask recording which component fields produced a search token.
// Higher bits rank higher when results are sorted by score.
type Match uint16

// Token match flags.
const (
	MatchNone        Match = 0
	MatchMediatype   Match = 1 << 0 // provided media type
	MatchPkgname     Match = 1 << 1 // package name
	MatchDescription Match = 1 << 2 // long description
	MatchSummary     Match = 1 << 3 // one-line summary
	MatchKeyword     Match = 1 << 4 // keyword list
	MatchName        Match = 1 << 5 // display name
	MatchID          Match = 1 << 6 // component id
)

var matchNames = []struct {
	flag Match
	name string
}{
	{MatchID, "id"},
	{MatchName, "name"},
	{MatchKeyword, "keyword"},
	{MatchSummary, "summary"},
	{MatchDescription, "description"},
	{MatchPkgname, "pkgname"},
	{MatchMediatype, "mediatype"},
}

// Has reports whether all bits of flag are set.
func (m Match) Has(flag Match) bool {
	return m&flag == flag
}

// String returns the set flags joined by "|".
func (m Match) String() string {
	if m == MatchNone {
		return "none"
	}
	var parts []string
	for _, n := range matchNames {
		if m.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
