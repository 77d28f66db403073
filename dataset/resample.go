package dataset

import "fmt"

// SamplerFunc maps a logical index of a ResampleDataset to an index of its
// underlying dataset. The underlying dataset is passed in so samplers can
// depend on its size or contents.
type SamplerFunc func(d Dataset, i int) int

// ResampleDataset remaps logical indices to underlying indices through a
// sampler function, optionally changing the apparent size. It is the
// general index-remapping decorator; ShuffleDataset specializes it with a
// redrawable permutation.
type ResampleDataset struct {
	inner   Dataset
	sampler SamplerFunc
	size    int
}

// ResampleOption configures a ResampleDataset.
type ResampleOption func(*ResampleDataset)

// WithSize overrides the apparent size of the resampled dataset. Values
// outside (0, inf) are ignored and the underlying size is kept.
func WithSize(n int) ResampleOption {
	return func(d *ResampleDataset) {
		if n > 0 {
			d.size = n
		}
	}
}

// NewResampleDataset creates a resampling view over inner. A nil sampler
// means identity. The size defaults to the underlying size.
func NewResampleDataset(inner Dataset, sampler SamplerFunc, opts ...ResampleOption) *ResampleDataset {
	if sampler == nil {
		sampler = identitySampler
	}
	d := &ResampleDataset{
		inner:   inner,
		sampler: sampler,
		size:    inner.Size(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func identitySampler(_ Dataset, i int) int { return i }

// Size returns the configured size (underlying size unless overridden).
func (d *ResampleDataset) Size() int {
	return d.size
}

// Get maps i through the sampler and fetches the underlying sample. It
// fails with ErrOutOfRange when i is outside [0, Size()), and with
// ErrSamplerRange when the sampler maps i outside the underlying dataset.
func (d *ResampleDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= d.size {
		return nil, outOfRange(i, d.size)
	}
	j := d.sampler(d.inner, i)
	if j < 0 || j >= d.inner.Size() {
		return nil, fmt.Errorf("%w: sampler mapped %d to %d, underlying size %d",
			ErrSamplerRange, i, j, d.inner.Size())
	}
	return d.inner.Get(j)
}
