// Package reorder reconstructs original-index order from results that
// arrive in completion order. A Buffer holds out-of-order results until the
// consumer's cursor reaches them; filtered-out indices are recorded as
// tombstones so the cursor can pass them without emitting anything.
//
// Memory is bounded by the number of in-flight fetches, not by dataset
// size: an index is only buffered while some earlier index is still
// outstanding.
package reorder

import "github.com/facebookarchive/torchnet/dataset"

type entry struct {
	sample    dataset.Sample
	tombstone bool
}

// Buffer is the pending-result store plus a monotonically advancing
// cursor. Not safe for concurrent use; the iteration driver is its only
// caller.
type Buffer struct {
	cursor  int
	pending map[int]entry
}

// New creates an empty buffer with the cursor at index 0.
func New() *Buffer {
	return &Buffer{pending: make(map[int]entry)}
}

// Put records the result for original index i. Each index must be recorded
// at most once.
func (b *Buffer) Put(i int, s dataset.Sample) {
	b.pending[i] = entry{sample: s}
}

// PutTombstone records that index i was filtered out and produces no
// sample.
func (b *Buffer) PutTombstone(i int) {
	b.pending[i] = entry{tombstone: true}
}

// Pop advances past any tombstones at the cursor and, if the cursor's slot
// holds a real sample, emits it and advances. It returns ok=false when the
// cursor's slot is still unresolved, in which case the caller must feed
// more results before retrying.
func (b *Buffer) Pop() (dataset.Sample, bool) {
	for {
		e, ok := b.pending[b.cursor]
		if !ok {
			return nil, false
		}
		delete(b.pending, b.cursor)
		b.cursor++
		if !e.tombstone {
			return e.sample, true
		}
	}
}

// Pending returns the number of buffered, not-yet-released entries.
func (b *Buffer) Pending() int {
	return len(b.pending)
}

// Cursor returns the next original index the consumer is waiting on.
func (b *Buffer) Cursor() int {
	return b.cursor
}
