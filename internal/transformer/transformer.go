// Package transformer holds the pure stages that turn raw catalog and event
// records into the warehouse rows: CatalogExtractor (ExtractCatalog),
// EventExtractor (ExtractEvents, DeriveTime) and FactBuilder
// (BuildSongplays).
//
// Every stage takes slices and returns new slices. No stage performs I/O,
// reads the clock or consults the host time zone, so the same input always
// yields the same output.
package transformer

// Transformer rewrites a batch of rows.
type Transformer[T any] interface{ Apply([]T) []T }

// Func adapts a plain function to Transformer.
type Func[T any] func([]T) []T

func (f Func[T]) Apply(in []T) []T { return f(in) }

// Chain is an ordered list of transformers.
type Chain[T any] []Transformer[T]

func (c Chain[T]) Apply(in []T) []T {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
