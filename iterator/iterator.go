// Package iterator drives dataset iteration: a serial Iterator that walks a
// dataset on the caller's goroutine, and a ParallelIterator that fans
// fetches out across a pool of persistent workers, optionally
// reconstructing original index order.
//
// Both expose iteration as a restartable iter.Seq2[dataset.Sample, error]:
// call Run for a fresh pass, range over it, and simply break to abandon it.
package iterator

import (
	"iter"

	"github.com/facebookarchive/torchnet/dataset"
)

// Iterator walks a dataset sequentially, applying an optional index
// permutation, a per-sample transform, and a filter. Samples rejected by
// the filter are skipped transparently (the fetch still happens).
//
// Iterators chain: Filter and Transform return a new Iterator whose
// filter/transform run after everything the wrapped iterator applies, so
// composition order is preserved.
type Iterator struct {
	ds    dataset.Dataset
	inner *Iterator

	perm      func(i int) int
	filter    func(dataset.Sample) bool
	transform dataset.TransformFunc
}

// Option configures a serial Iterator.
type Option func(*Iterator)

// WithPerm remaps the iteration order: step i fetches index perm(i).
func WithPerm(perm func(i int) int) Option {
	return func(it *Iterator) {
		it.perm = perm
	}
}

// WithFilter admits only samples for which filter returns true. The filter
// runs after the transform.
func WithFilter(filter func(dataset.Sample) bool) Option {
	return func(it *Iterator) {
		it.filter = filter
	}
}

// WithTransform applies transform to every fetched sample, before the
// filter sees it.
func WithTransform(transform dataset.TransformFunc) Option {
	return func(it *Iterator) {
		it.transform = transform
	}
}

// New creates an iterator over ds.
func New(ds dataset.Dataset, opts ...Option) *Iterator {
	it := &Iterator{ds: ds}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Filter chains a new iterator whose filter runs after this iterator's own
// transform and filter.
func (it *Iterator) Filter(filter func(dataset.Sample) bool) *Iterator {
	return &Iterator{inner: it, filter: filter}
}

// Transform chains a new iterator whose transform runs after everything
// this iterator applies.
func (it *Iterator) Transform(transform dataset.TransformFunc) *Iterator {
	return &Iterator{inner: it, transform: transform}
}

// Run returns a fresh, lazily evaluated pass over the dataset. The
// sequence ends after the last admitted sample, or immediately after
// yielding the first error. Each call restarts from index 0.
func (it *Iterator) Run() iter.Seq2[dataset.Sample, error] {
	if it.inner != nil {
		return it.runChained()
	}
	return func(yield func(dataset.Sample, error) bool) {
		n := it.ds.Size()
		for i := range n {
			j := i
			if it.perm != nil {
				j = it.perm(i)
			}
			s, err := it.ds.Get(j)
			if err != nil {
				yield(nil, err)
				return
			}
			s, ok, err := it.apply(s)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

// runChained drives the wrapped iterator and layers this iterator's
// transform and filter on top of its output.
func (it *Iterator) runChained() iter.Seq2[dataset.Sample, error] {
	return func(yield func(dataset.Sample, error) bool) {
		for s, err := range it.inner.Run() {
			if err != nil {
				yield(nil, err)
				return
			}
			s, ok, err := it.apply(s)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

// apply runs the transform then the filter. ok reports whether the sample
// survived the filter.
func (it *Iterator) apply(s dataset.Sample) (dataset.Sample, bool, error) {
	if it.transform != nil {
		var err error
		s, err = it.transform(s)
		if err != nil {
			return nil, false, err
		}
	}
	if it.filter != nil && !it.filter(s) {
		return nil, false, nil
	}
	return s, true, nil
}
