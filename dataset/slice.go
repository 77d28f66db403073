package dataset

// SliceDataset is the concrete leaf dataset: an in-memory slice of samples.
// It is the usual starting point for composing decorators and the dataset
// of choice in tests.
type SliceDataset struct {
	samples []Sample
}

// NewSliceDataset creates a dataset over the given samples. The slice is
// retained, not copied; callers must not mutate it afterwards.
func NewSliceDataset(samples []Sample) *SliceDataset {
	return &SliceDataset{samples: samples}
}

// FromValues builds a SliceDataset whose samples each carry a single field
// holding one of the given values.
//
// Example:
//
//	ds := dataset.FromValues("input", []int{1, 2, 3})
//	s, _ := ds.Get(1) // Sample{"input": 2}
func FromValues[V any](field string, values []V) *SliceDataset {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{field: v}
	}
	return NewSliceDataset(samples)
}

// Size returns the number of samples.
func (d *SliceDataset) Size() int {
	return len(d.samples)
}

// Get returns the sample at index i.
func (d *SliceDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= len(d.samples) {
		return nil, outOfRange(i, len(d.samples))
	}
	return d.samples[i], nil
}
