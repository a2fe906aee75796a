package datasource

import (
	"path"
	"sort"
	"strings"
)

// LiteralPrefix returns the part of pattern before its first meta character.
// Listing by it is enough to find every candidate match.
func LiteralPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// MatchNames filters names with pattern and sorts the result. An invalid
// pattern is reported even when no name is tried.
func MatchNames(pattern string, names []string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if ok, _ := path.Match(pattern, n); ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}
