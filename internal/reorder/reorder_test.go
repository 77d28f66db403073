package reorder

import (
	"testing"

	"github.com/facebookarchive/torchnet/dataset"
)

func sampleFor(i int) dataset.Sample {
	return dataset.Sample{"input": i}
}

func TestBuffer_ReleasesInOrder(t *testing.T) {
	b := New()

	// Completion order 2, 0, 1: nothing releases until 0 arrives.
	b.Put(2, sampleFor(2))
	if _, ok := b.Pop(); ok {
		t.Fatal("expected no release before index 0 resolves")
	}

	b.Put(0, sampleFor(0))
	s, ok := b.Pop()
	if !ok || s["input"] != 0 {
		t.Fatalf("expected index 0, got %v (ok=%v)", s, ok)
	}
	if _, ok := b.Pop(); ok {
		t.Fatal("expected no release before index 1 resolves")
	}

	b.Put(1, sampleFor(1))
	for want := 1; want <= 2; want++ {
		s, ok := b.Pop()
		if !ok || s["input"] != want {
			t.Fatalf("expected index %d, got %v (ok=%v)", want, s, ok)
		}
	}
	if b.Pending() != 0 {
		t.Errorf("expected empty buffer, %d pending", b.Pending())
	}
}

func TestBuffer_SkipsTombstones(t *testing.T) {
	b := New()

	b.PutTombstone(0)
	b.PutTombstone(1)
	b.Put(2, sampleFor(2))

	s, ok := b.Pop()
	if !ok || s["input"] != 2 {
		t.Fatalf("expected index 2 after skipping tombstones, got %v (ok=%v)", s, ok)
	}
	if b.Cursor() != 3 {
		t.Errorf("expected cursor 3, got %d", b.Cursor())
	}
}

func TestBuffer_TrailingTombstones(t *testing.T) {
	b := New()

	b.Put(0, sampleFor(0))
	b.PutTombstone(1)

	if s, ok := b.Pop(); !ok || s["input"] != 0 {
		t.Fatalf("expected index 0, got %v (ok=%v)", s, ok)
	}
	// The trailing tombstone is consumed without releasing anything.
	if _, ok := b.Pop(); ok {
		t.Fatal("expected no release for a trailing tombstone")
	}
	if b.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", b.Cursor())
	}
	if b.Pending() != 0 {
		t.Errorf("expected empty buffer, %d pending", b.Pending())
	}
}

func TestBuffer_BoundedByInFlight(t *testing.T) {
	b := New()

	// Results for a window of 8 in-flight jobs arriving fully reversed
	// never buffer more than the window.
	const window = 8
	for i := window - 1; i >= 0; i-- {
		b.Put(i, sampleFor(i))
		if b.Pending() > window {
			t.Fatalf("buffer grew past the in-flight window: %d", b.Pending())
		}
	}
	for want := range window {
		s, ok := b.Pop()
		if !ok || s["input"] != want {
			t.Fatalf("expected index %d, got %v (ok=%v)", want, s, ok)
		}
	}
}
