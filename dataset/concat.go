package dataset

// ConcatDataset chains several datasets end to end: logical indices cover
// the first dataset, then the second, and so on. Sizes are captured at
// construction, so the index layout is stable even if an inner dataset is
// resampled.
type ConcatDataset struct {
	inner   []Dataset
	offsets []int
	size    int
}

// NewConcatDataset concatenates the given datasets in order.
func NewConcatDataset(inner ...Dataset) *ConcatDataset {
	d := &ConcatDataset{
		inner:   inner,
		offsets: make([]int, len(inner)),
	}
	for i, ds := range inner {
		d.offsets[i] = d.size
		d.size += ds.Size()
	}
	return d
}

// Size returns the summed size of all inner datasets.
func (d *ConcatDataset) Size() int {
	return d.size
}

// Get locates the inner dataset holding logical index i and fetches from it.
func (d *ConcatDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= d.size {
		return nil, outOfRange(i, d.size)
	}
	// Linear scan: concatenations are short in practice.
	k := 0
	for k+1 < len(d.inner) && i >= d.offsets[k+1] {
		k++
	}
	return d.inner[k].Get(i - d.offsets[k])
}

// Resample forwards to every inner dataset that supports it.
func (d *ConcatDataset) Resample() {
	for _, ds := range d.inner {
		if r, ok := ds.(Resampler); ok {
			r.Resample()
		}
	}
}
