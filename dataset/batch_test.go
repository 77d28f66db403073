package dataset

import (
	"errors"
	"reflect"
	"testing"
)

func rangeDataset(n int) *SliceDataset {
	values := make([]int, n)
	for i := range values {
		values[i] = i + 1
	}
	return FromValues("input", values)
}

func TestBatchDataset_SizesByPolicy(t *testing.T) {
	tests := []struct {
		n, batchSize int
		policy       BatchPolicy
		want         int
	}{
		{10, 3, IncludeLast, 4},
		{10, 3, SkipLast, 3},
		{9, 3, DivisibleOnly, 3},
		{10, 10, IncludeLast, 1},
		{10, 15, IncludeLast, 1},
		{10, 15, SkipLast, 0},
		{0, 4, IncludeLast, 0},
	}
	for _, tt := range tests {
		ds, err := NewBatchDataset(rangeDataset(tt.n), tt.batchSize, WithBatchPolicy(tt.policy))
		if err != nil {
			t.Fatalf("n=%d batch=%d policy=%d: %v", tt.n, tt.batchSize, tt.policy, err)
		}
		if ds.Size() != tt.want {
			t.Errorf("n=%d batch=%d policy=%d: expected %d batches, got %d",
				tt.n, tt.batchSize, tt.policy, tt.want, ds.Size())
		}
	}
}

func TestBatchDataset_IncludeLastCoversAllSamples(t *testing.T) {
	for _, n := range []int{1, 7, 30, 100} {
		for _, batchSize := range []int{1, 3, 30, 64} {
			ds, err := NewBatchDataset(rangeDataset(n), batchSize)
			if err != nil {
				t.Fatalf("n=%d batch=%d: %v", n, batchSize, err)
			}
			total := 0
			for b := range ds.Size() {
				batch, err := ds.Get(b)
				if err != nil {
					t.Fatalf("n=%d batch=%d Get(%d): %v", n, batchSize, b, err)
				}
				got := len(batch["input"].([]int))
				if b < ds.Size()-1 && got != batchSize {
					t.Errorf("n=%d batch=%d: non-final batch %d has %d samples", n, batchSize, b, got)
				}
				total += got
			}
			if total != n {
				t.Errorf("n=%d batch=%d: batches cover %d samples", n, batchSize, total)
			}
		}
	}
}

func TestBatchDataset_ConcreteScenario(t *testing.T) {
	// 100 integer samples, batch size 30, IncludeLast: 4 batches, the
	// second holding 31..60, the last only 10 samples.
	ds, err := NewBatchDataset(rangeDataset(100), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Size() != 4 {
		t.Fatalf("expected 4 batches, got %d", ds.Size())
	}

	batch, err := ds.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	want := make([]int, 30)
	for i := range want {
		want[i] = 31 + i
	}
	if !reflect.DeepEqual(batch["input"], want) {
		t.Errorf("Get(1): expected %v, got %v", want, batch["input"])
	}

	last, err := ds.Get(3)
	if err != nil {
		t.Fatalf("Get(3): %v", err)
	}
	if got := len(last["input"].([]int)); got != 10 {
		t.Errorf("Get(3): expected 10 samples, got %d", got)
	}
}

func TestBatchDataset_SkipLastMatchesDivisibleOnly(t *testing.T) {
	// On an exactly divisible dataset the two policies must agree.
	skip, err := NewBatchDataset(rangeDataset(12), 4, WithBatchPolicy(SkipLast))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	div, err := NewBatchDataset(rangeDataset(12), 4, WithBatchPolicy(DivisibleOnly))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip.Size() != div.Size() {
		t.Fatalf("sizes differ: %d vs %d", skip.Size(), div.Size())
	}
	for b := range skip.Size() {
		s1, err1 := skip.Get(b)
		s2, err2 := div.Get(b)
		if err1 != nil || err2 != nil {
			t.Fatalf("Get(%d): %v / %v", b, err1, err2)
		}
		if !reflect.DeepEqual(s1, s2) {
			t.Errorf("batch %d differs: %v vs %v", b, s1, s2)
		}
	}
}

func TestBatchDataset_ConstructionErrors(t *testing.T) {
	if _, err := NewBatchDataset(rangeDataset(10), 0); !errors.Is(err, ErrConfig) {
		t.Errorf("zero batch size: expected ErrConfig, got %v", err)
	}
	if _, err := NewBatchDataset(rangeDataset(10), -1); !errors.Is(err, ErrConfig) {
		t.Errorf("negative batch size: expected ErrConfig, got %v", err)
	}
	if _, err := NewBatchDataset(rangeDataset(10), 3, WithBatchPolicy(DivisibleOnly)); !errors.Is(err, ErrNotDivisible) {
		t.Errorf("indivisible: expected ErrNotDivisible at construction, got %v", err)
	}
	if _, err := NewBatchDataset(rangeDataset(10), 3, WithBatchPolicy(BatchPolicy(99))); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown policy: expected ErrConfig, got %v", err)
	}
}

func TestBatchDataset_Perm(t *testing.T) {
	// Reverse the dataset before batching.
	ds, err := NewBatchDataset(rangeDataset(6), 3, WithBatchPerm(func(i, n int) int {
		return n - 1 - i
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch, err := ds.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(batch["input"], []int{6, 5, 4}) {
		t.Errorf("expected [6 5 4], got %v", batch["input"])
	}

	bad, err := NewBatchDataset(rangeDataset(6), 3, WithBatchPerm(func(i, n int) int { return n }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := bad.Get(0); !errors.Is(err, ErrSamplerRange) {
		t.Errorf("expected ErrSamplerRange, got %v", err)
	}
}

func TestBatchDataset_FilterDropsBeforeMerge(t *testing.T) {
	ds, err := NewBatchDataset(rangeDataset(10), 5, WithBatchFilter(func(s Sample) bool {
		return s["input"].(int)%2 == 0
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch, err := ds.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(batch["input"], []int{2, 4}) {
		t.Errorf("expected [2 4], got %v", batch["input"])
	}
}

// stagedDataset implements Staged: BeginGet only records the request and
// the sample materializes on CollectGet, except for indices in immediate,
// which complete during BeginGet.
type stagedDataset struct {
	inner     Dataset
	immediate map[int]bool

	begun     []int
	collected []int
}

func (d *stagedDataset) Size() int { return d.inner.Size() }

func (d *stagedDataset) Get(i int) (Sample, error) { return d.inner.Get(i) }

func (d *stagedDataset) BeginGet(i int) (Sample, bool, error) {
	if i < 0 || i >= d.inner.Size() {
		return nil, false, outOfRange(i, d.inner.Size())
	}
	d.begun = append(d.begun, i)
	if d.immediate[i] {
		s, err := d.inner.Get(i)
		return s, true, err
	}
	return nil, false, nil
}

func (d *stagedDataset) CollectGet(i int) (Sample, error) {
	d.collected = append(d.collected, i)
	return d.inner.Get(i)
}

func TestBatchDataset_StagedIssuesAllFetchesFirst(t *testing.T) {
	staged := &stagedDataset{inner: rangeDataset(6), immediate: map[int]bool{1: true}}
	ds, err := NewBatchDataset(staged, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch, err := ds.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(batch["input"], []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", batch["input"])
	}

	// All three fetches issued before any collection; index 1 completed
	// immediately and was never collected.
	if !reflect.DeepEqual(staged.begun, []int{0, 1, 2}) {
		t.Errorf("expected begun [0 1 2], got %v", staged.begun)
	}
	if !reflect.DeepEqual(staged.collected, []int{0, 2}) {
		t.Errorf("expected collected [0 2], got %v", staged.collected)
	}
}

func TestBatchDataset_OutOfRange(t *testing.T) {
	ds, err := NewBatchDataset(rangeDataset(10), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ds.Get(4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := ds.Get(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}
