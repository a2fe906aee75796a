// Package builtin contains reusable row transformers.
//
// Distinct is the de-duplication transformer of the warehouse. It collapses
// rows that are equal in every field and keeps the earliest occurrence, so
// the output order is the first-seen order of the input. Two rows that share
// a primary key but differ elsewhere are both kept; DuplicateKeys reports how
// often that happens so callers can surface it.
package builtin

// Distinct removes rows equal to an earlier row.
type Distinct[T comparable] struct{}

// Apply returns a new slice; in is not modified.
func (Distinct[T]) Apply(in []T) []T {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, r := range in {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DuplicateKeys counts the keys that appear on more than one row of rows.
func DuplicateKeys[T any, K comparable](rows []T, key func(T) K) int {
	counts := make(map[K]int, len(rows))
	dups := 0
	for _, r := range rows {
		k := key(r)
		counts[k]++
		if counts[k] == 2 {
			dups++
		}
	}
	return dups
}
