package dataset

import (
	"fmt"
	"math"
	"sort"
)

type partition struct {
	name   string
	offset int
	size   int
}

// SplitDataset carves an inner dataset into named contiguous,
// non-overlapping partitions, e.g. train/validation/test. Partitions are
// laid out in sorted name order so the carve-up is independent of map
// iteration order. Exactly one partition is active at a time; Select
// switches it, changing what Size and Get see. Selection is idempotent.
type SplitDataset struct {
	inner      Dataset
	partitions []partition
	active     int
}

// NewSplitDatasetByCount partitions inner by absolute sample counts. At
// least two partitions are required and the counts must not exceed the
// underlying size in total; either violation fails with ErrConfig. The
// initially active partition is the first in sorted name order.
func NewSplitDatasetByCount(inner Dataset, counts map[string]int) (*SplitDataset, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("%w: need at least two partitions, got %d", ErrConfig, len(counts))
	}
	names := sortedNames(counts)
	parts := make([]partition, 0, len(names))
	offset := 0
	for _, name := range names {
		n := counts[name]
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d for partition %q", ErrConfig, n, name)
		}
		parts = append(parts, partition{name: name, offset: offset, size: n})
		offset += n
	}
	if offset > inner.Size() {
		return nil, fmt.Errorf("%w: partitions cover %d samples, underlying size %d",
			ErrConfig, offset, inner.Size())
	}
	return &SplitDataset{inner: inner, partitions: parts}, nil
}

// NewSplitDatasetByWeight partitions inner by fractional weights. Weights
// must be non-negative and sum to at most 1; each partition receives
// floor(weight * size) samples. The same partition-count and ordering rules
// as NewSplitDatasetByCount apply.
func NewSplitDatasetByWeight(inner Dataset, weights map[string]float64) (*SplitDataset, error) {
	if len(weights) < 2 {
		return nil, fmt.Errorf("%w: need at least two partitions, got %d", ErrConfig, len(weights))
	}
	total := 0.0
	for name, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %g for partition %q", ErrConfig, w, name)
		}
		total += w
	}
	if total > 1 {
		return nil, fmt.Errorf("%w: weights sum to %g, must not exceed 1", ErrConfig, total)
	}
	counts := make(map[string]int, len(weights))
	for name, w := range weights {
		counts[name] = int(math.Floor(w * float64(inner.Size())))
	}
	return NewSplitDatasetByCount(inner, counts)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select makes the named partition active. Unknown names fail with
// ErrNotFound and leave the active partition unchanged.
func (d *SplitDataset) Select(name string) error {
	for i, p := range d.partitions {
		if p.name == name {
			d.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Active returns the name of the active partition.
func (d *SplitDataset) Active() string {
	return d.partitions[d.active].name
}

// Partitions returns the partition names in layout order.
func (d *SplitDataset) Partitions() []string {
	names := make([]string, len(d.partitions))
	for i, p := range d.partitions {
		names[i] = p.name
	}
	return names
}

// Size returns the active partition's size.
func (d *SplitDataset) Size() int {
	return d.partitions[d.active].size
}

// Get returns sample i of the active partition.
func (d *SplitDataset) Get(i int) (Sample, error) {
	p := d.partitions[d.active]
	if i < 0 || i >= p.size {
		return nil, outOfRange(i, p.size)
	}
	return d.inner.Get(p.offset + i)
}
