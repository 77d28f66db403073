package dataset

import "fmt"

// BatchPolicy decides what happens to the tail of a dataset whose size is
// not a multiple of the batch size.
type BatchPolicy int

const (
	// IncludeLast keeps the final partial batch; it holds fewer than
	// batchSize samples.
	IncludeLast BatchPolicy = iota

	// SkipLast silently drops the final partial batch.
	SkipLast

	// DivisibleOnly requires the dataset size to be an exact multiple of
	// the batch size and fails at construction otherwise.
	DivisibleOnly
)

// PermFunc remaps a sample index before batching. It receives the index and
// the dataset size and must return an index in [0, n).
type PermFunc func(i, n int) int

// FilterFunc admits or rejects one sample. Rejected samples are dropped
// before merging and shrink the batch they would have joined.
type FilterFunc func(Sample) bool

// BatchDataset groups consecutive (possibly permuted) samples of an inner
// dataset into aggregate samples. Each Get builds its batch from scratch;
// batches are not cached.
//
// When the inner dataset implements Staged, every fetch of a batch is
// issued before any pending fetch is collected, so datasets that prepare a
// whole prefetch group internally materialize it in one round trip.
type BatchDataset struct {
	inner     Dataset
	batchSize int
	policy    BatchPolicy
	perm      PermFunc
	filter    FilterFunc
	merge     MergeFunc
	size      int
}

// BatchOption configures a BatchDataset.
type BatchOption func(*BatchDataset)

// WithBatchPolicy sets the tail policy. Defaults to IncludeLast.
func WithBatchPolicy(p BatchPolicy) BatchOption {
	return func(d *BatchDataset) {
		d.policy = p
	}
}

// WithBatchPerm sets an index permutation applied before fetching.
func WithBatchPerm(perm PermFunc) BatchOption {
	return func(d *BatchDataset) {
		if perm != nil {
			d.perm = perm
		}
	}
}

// WithBatchFilter drops samples for which filter returns false before the
// merge, so a batch may end up smaller than batchSize.
func WithBatchFilter(filter FilterFunc) BatchOption {
	return func(d *BatchDataset) {
		d.filter = filter
	}
}

// WithMerge replaces the default per-field merge (MergeStack).
func WithMerge(merge MergeFunc) BatchOption {
	return func(d *BatchDataset) {
		if merge != nil {
			d.merge = merge
		}
	}
}

// NewBatchDataset creates a batched view over inner. It fails with
// ErrConfig for a non-positive batch size or unknown policy, and with
// ErrNotDivisible when DivisibleOnly is requested over a size that is not a
// multiple of batchSize.
func NewBatchDataset(inner Dataset, batchSize int, opts ...BatchOption) (*BatchDataset, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrConfig, batchSize)
	}
	d := &BatchDataset{
		inner:     inner,
		batchSize: batchSize,
		policy:    IncludeLast,
		perm:      func(i, n int) int { return i },
		merge:     MergeStack,
	}
	for _, opt := range opts {
		opt(d)
	}

	n := inner.Size()
	switch d.policy {
	case IncludeLast:
		d.size = (n + batchSize - 1) / batchSize
	case SkipLast:
		d.size = n / batchSize
	case DivisibleOnly:
		if n%batchSize != 0 {
			return nil, fmt.Errorf("%w: size %d, batch size %d", ErrNotDivisible, n, batchSize)
		}
		d.size = n / batchSize
	default:
		return nil, fmt.Errorf("%w: unknown batch policy %d", ErrConfig, d.policy)
	}
	return d, nil
}

// Size returns the number of batches under the configured policy.
func (d *BatchDataset) Size() int {
	return d.size
}

// BatchSize returns the configured batch size.
func (d *BatchDataset) BatchSize() int {
	return d.batchSize
}

// Get assembles batch b: it fetches up to batchSize consecutive samples
// starting at b*batchSize (each index mapped through the permutation),
// applies the filter, and merges the survivors per field.
func (d *BatchDataset) Get(b int) (Sample, error) {
	if b < 0 || b >= d.size {
		return nil, outOfRange(b, d.size)
	}
	n := d.inner.Size()
	start := b * d.batchSize
	count := min(d.batchSize, n-start)

	indices := make([]int, count)
	for k := range indices {
		j := d.perm(start+k, n)
		if j < 0 || j >= n {
			return nil, fmt.Errorf("%w: permutation mapped %d to %d, size %d",
				ErrSamplerRange, start+k, j, n)
		}
		indices[k] = j
	}

	var samples []Sample
	var err error
	if staged, ok := d.inner.(Staged); ok {
		samples, err = fetchStaged(staged, indices)
	} else {
		samples, err = fetchDirect(d.inner, indices)
	}
	if err != nil {
		return nil, err
	}

	if d.filter != nil {
		kept := samples[:0]
		for _, s := range samples {
			if d.filter(s) {
				kept = append(kept, s)
			}
		}
		samples = kept
	}
	return mergeSamples(samples, d.merge)
}

// Resample forwards to the inner dataset when it supports resampling.
func (d *BatchDataset) Resample() {
	if r, ok := d.inner.(Resampler); ok {
		r.Resample()
	}
}

func fetchDirect(ds Dataset, indices []int) ([]Sample, error) {
	samples := make([]Sample, len(indices))
	for k, j := range indices {
		s, err := ds.Get(j)
		if err != nil {
			return nil, err
		}
		samples[k] = s
	}
	return samples, nil
}

// fetchStaged issues every fetch of the batch first, then collects the ones
// that reported not-ready. A fetch that completes during BeginGet is
// recorded immediately and never collected.
func fetchStaged(ds Staged, indices []int) ([]Sample, error) {
	samples := make([]Sample, len(indices))
	var pending []int
	for k, j := range indices {
		s, ready, err := ds.BeginGet(j)
		if err != nil {
			return nil, err
		}
		if ready {
			samples[k] = s
		} else {
			pending = append(pending, k)
		}
	}
	for _, k := range pending {
		s, err := ds.CollectGet(indices[k])
		if err != nil {
			return nil, err
		}
		samples[k] = s
	}
	return samples, nil
}

// mergeSamples aggregates samples field by field, over the union of the
// fields the samples carry; a field only present in some samples is merged
// over just those samples.
func mergeSamples(samples []Sample, merge MergeFunc) (Sample, error) {
	var fields []string
	seen := make(map[string]bool)
	for _, s := range samples {
		for field := range s {
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}
	}

	batch := make(Sample, len(fields))
	for _, field := range fields {
		values := make([]any, 0, len(samples))
		for _, s := range samples {
			if v, ok := s[field]; ok {
				values = append(values, v)
			}
		}
		merged, err := merge(field, values)
		if err != nil {
			return nil, fmt.Errorf("merging field %q: %w", field, err)
		}
		batch[field] = merged
	}
	return batch, nil
}
