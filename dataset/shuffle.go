package dataset

import (
	"fmt"
	"math/rand/v2"
)

// ShuffleDataset presents an inner dataset in a random order. It draws a
// permutation of the underlying indices (uniform, without replacement) or,
// with replacement, a sequence of independent uniform draws. The drawn
// mapping is fixed until Resample is called, so Get is deterministic
// between redraws.
type ShuffleDataset struct {
	inner       Dataset
	rng         *rand.Rand
	perm        []int
	size        int
	replacement bool
}

// ShuffleOption configures a ShuffleDataset.
type ShuffleOption func(*ShuffleDataset)

// WithReplacement makes every logical index an independent uniform draw
// over the underlying dataset, instead of a permutation. With replacement
// the apparent size may exceed the underlying size.
func WithReplacement() ShuffleOption {
	return func(d *ShuffleDataset) {
		d.replacement = true
	}
}

// WithShuffleSize sets the apparent size. Without replacement it must not
// exceed the underlying size (the permutation is truncated to its first n
// entries); with replacement any positive size is valid.
func WithShuffleSize(n int) ShuffleOption {
	return func(d *ShuffleDataset) {
		if n > 0 {
			d.size = n
		}
	}
}

// WithSeed makes the shuffle reproducible. Mainly for tests.
func WithSeed(seed uint64) ShuffleOption {
	return func(d *ShuffleDataset) {
		d.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// NewShuffleDataset creates a shuffled view over inner and draws the
// initial mapping. It fails with ErrConfig when the requested size exceeds
// the underlying size without replacement.
func NewShuffleDataset(inner Dataset, opts ...ShuffleOption) (*ShuffleDataset, error) {
	d := &ShuffleDataset{
		inner: inner,
		size:  inner.Size(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if !d.replacement && d.size > inner.Size() {
		return nil, fmt.Errorf("%w: size %d exceeds underlying size %d without replacement",
			ErrConfig, d.size, inner.Size())
	}
	if d.replacement && d.size > 0 && inner.Size() == 0 {
		return nil, fmt.Errorf("%w: cannot draw with replacement from an empty dataset", ErrConfig)
	}
	d.Resample()
	return d, nil
}

// Size returns the apparent size of the shuffled view.
func (d *ShuffleDataset) Size() int {
	return d.size
}

// Get returns the underlying sample the current mapping assigns to i.
func (d *ShuffleDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= d.size {
		return nil, outOfRange(i, d.size)
	}
	return d.inner.Get(d.perm[i])
}

// Resample redraws the whole index mapping. The previous mapping is
// replaced wholesale, never partially mutated.
func (d *ShuffleDataset) Resample() {
	n := d.inner.Size()
	if d.replacement {
		perm := make([]int, d.size)
		for i := range perm {
			perm[i] = d.rng.IntN(n)
		}
		d.perm = perm
		return
	}
	d.perm = d.rng.Perm(n)[:d.size]
}
