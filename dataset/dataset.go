package dataset

import (
	"errors"
	"fmt"
)

// Sample is one logical unit of data: a field-keyed record, e.g.
// {"input": ..., "target": ...}. The schema is caller-defined; the core only
// inspects field values where batch merging needs to aggregate them.
type Sample = map[string]any

// Dataset is a finite, randomly indexable sequence of samples.
//
// Get must be a pure, repeatable function of the index for a fixed logical
// dataset state; the state changes only through an explicit Resample (see
// Resampler). Indices are 0-based: Get fails with ErrOutOfRange unless
// 0 <= i < Size().
type Dataset interface {
	// Size returns the number of samples, always >= 0.
	Size() int

	// Get returns the sample at index i.
	Get(i int) (Sample, error)
}

// Resampler is implemented by datasets that hold an internal permutation
// which can be redrawn on demand (e.g. ShuffleDataset). Between Resample
// calls, Get is deterministic.
type Resampler interface {
	Resample()
}

// Staged is implemented by datasets whose Get may cooperatively suspend:
// the fetch is issued first and materialized later, letting the dataset
// prepare a whole group of indices before producing any sample.
//
// BeginGet issues the fetch for index i. If the sample is already available
// it is returned with ready=true and must not be collected again. Otherwise
// the caller records i as pending and later calls CollectGet(i), which
// drives the fetch to completion.
//
// BatchDataset uses this protocol to issue every fetch of a batch before
// collecting any of them, preserving the dataset's prefetch grouping.
type Staged interface {
	Dataset

	BeginGet(i int) (s Sample, ready bool, err error)
	CollectGet(i int) (Sample, error)
}

var (
	// ErrOutOfRange reports an index outside [0, Size()) at any
	// dataset-shaped boundary.
	ErrOutOfRange = errors.New("index out of range")

	// ErrSamplerRange reports a user-supplied sampler or permutation
	// function that returned an index outside the underlying dataset.
	ErrSamplerRange = errors.New("sampler returned out-of-range index")

	// ErrNotDivisible reports a DivisibleOnly batch policy over a dataset
	// whose size is not a multiple of the batch size. Raised at
	// construction so the caller fails fast, never at fetch time.
	ErrNotDivisible = errors.New("dataset size not divisible by batch size")

	// ErrNotFound reports selection of an undefined partition name.
	ErrNotFound = errors.New("partition not found")

	// ErrConfig reports invalid construction parameters.
	ErrConfig = errors.New("invalid configuration")
)

// outOfRange builds the standard ErrOutOfRange failure for index i over a
// dataset of the given size.
func outOfRange(i, size int) error {
	return fmt.Errorf("%w: index %d, size %d", ErrOutOfRange, i, size)
}
