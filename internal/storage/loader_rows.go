package storage

import "sync"

// Row is one column-aligned row taken from a RowPool. The loader frees it
// once the batch holding it has been handed to the backend.
type Row struct {
	V    []any
	pool *RowPool
}

// Free returns r to its pool. Rows built without a pool are left to the GC.
func (r *Row) Free() {
	if r == nil || r.pool == nil {
		return
	}
	clear(r.V)
	r.pool.p.Put(r)
}

// RowPool recycles rows of a fixed width, so mirroring a table allocates
// roughly one batch worth of value slices instead of one per row.
type RowPool struct {
	width int
	p     sync.Pool
}

// NewRowPool returns a pool of rows with width columns.
func NewRowPool(width int) *RowPool {
	rp := &RowPool{width: width}
	rp.p.New = func() any { return &Row{V: make([]any, width), pool: rp} }
	return rp
}

// Get returns a cleared row.
func (p *RowPool) Get() *Row { return p.p.Get().(*Row) }

// Width is the number of values per row.
func (p *RowPool) Width() int { return p.width }
