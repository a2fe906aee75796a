package builtin

// Require removes every row for which any check returns false.
type Require[T any] struct {
	Checks []func(T) bool
}

// Apply returns a new slice holding the rows that pass all checks, in input
// order; in is not modified.
func (r Require[T]) Apply(in []T) []T {
	out := make([]T, 0, len(in))
	for _, row := range in {
		ok := true
		for _, check := range r.Checks {
			if !check(row) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}
