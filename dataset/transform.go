package dataset

// TransformFunc remaps one sample into another. It must be pure: the result
// may only depend on the input sample.
type TransformFunc func(Sample) (Sample, error)

// TransformDataset applies a pure per-sample transform on top of an inner
// dataset. Size is unchanged; Get delegates the bounds check to the inner
// dataset before transforming.
type TransformDataset struct {
	inner     Dataset
	transform TransformFunc
}

// NewTransformDataset wraps inner so that every fetched sample passes
// through transform.
func NewTransformDataset(inner Dataset, transform TransformFunc) *TransformDataset {
	return &TransformDataset{inner: inner, transform: transform}
}

// Size returns the inner dataset's size.
func (d *TransformDataset) Size() int {
	return d.inner.Size()
}

// Get fetches the inner sample at i and returns its transform.
func (d *TransformDataset) Get(i int) (Sample, error) {
	s, err := d.inner.Get(i)
	if err != nil {
		return nil, err
	}
	return d.transform(s)
}

// Resample forwards to the inner dataset when it supports resampling, so a
// transform stack stays redrawable.
func (d *TransformDataset) Resample() {
	if r, ok := d.inner.(Resampler); ok {
		r.Resample()
	}
}
