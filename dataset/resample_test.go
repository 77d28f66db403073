package dataset

import (
	"errors"
	"testing"
)

func TestResampleDataset_IdentityByDefault(t *testing.T) {
	inner := FromValues("input", []int{1, 2, 3})
	ds := NewResampleDataset(inner, nil)

	if ds.Size() != 3 {
		t.Fatalf("expected size 3, got %d", ds.Size())
	}
	for i := range 3 {
		s, err := ds.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if s["input"] != i+1 {
			t.Errorf("Get(%d): expected %d, got %v", i, i+1, s["input"])
		}
	}
}

func TestResampleDataset_CustomSampler(t *testing.T) {
	inner := FromValues("input", []int{1, 2, 3, 4})

	// Reverse order.
	ds := NewResampleDataset(inner, func(d Dataset, i int) int {
		return d.Size() - 1 - i
	})
	s, err := ds.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["input"] != 4 {
		t.Errorf("expected 4, got %v", s["input"])
	}
}

func TestResampleDataset_SizeOverride(t *testing.T) {
	inner := FromValues("input", []int{1, 2, 3, 4})
	ds := NewResampleDataset(inner, func(d Dataset, i int) int { return i % d.Size() }, WithSize(10))

	if ds.Size() != 10 {
		t.Fatalf("expected size 10, got %d", ds.Size())
	}
	s, err := ds.Get(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["input"] != 3 {
		t.Errorf("expected 3, got %v", s["input"])
	}
}

func TestResampleDataset_Errors(t *testing.T) {
	inner := FromValues("input", []int{1, 2, 3})
	ds := NewResampleDataset(inner, func(Dataset, int) int { return 99 })

	if _, err := ds.Get(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for own bounds, got %v", err)
	}
	if _, err := ds.Get(0); !errors.Is(err, ErrSamplerRange) {
		t.Errorf("expected ErrSamplerRange for sampler result, got %v", err)
	}
}
