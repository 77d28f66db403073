// Package dataset provides the dataset abstraction of the data-loading
// pipeline: a finite, randomly indexable sequence of samples, plus
// composable decorators for transforming, resampling, shuffling, splitting,
// concatenating and batching it.
//
// A Sample is a field-keyed record; a Dataset exposes Size and Get. Every
// decorator is itself a Dataset, so they nest freely.
//
// # Basic Usage
//
//	ds := dataset.FromValues("input", []int{1, 2, 3, 4, 5})
//	shuffled, err := dataset.NewShuffleDataset(ds)
//	if err != nil {
//	    return err
//	}
//	batched, err := dataset.NewBatchDataset(shuffled, 2)
//	if err != nil {
//	    return err
//	}
//	batch, err := batched.Get(0) // e.g. Sample{"input": []int{3, 1}}
//
// # Resampling
//
// ShuffleDataset (and anything wrapping it) implements Resampler: calling
// Resample redraws the permutation wholesale. Between redraws, Get is a
// deterministic function of the index.
//
// # Batching
//
// BatchDataset groups consecutive samples and merges them field by field.
// The tail policy decides what happens when the size does not divide
// evenly (IncludeLast, SkipLast, DivisibleOnly), and the merge function
// controls aggregation; MergeStack, the default, stacks equal-shaped
// numeric fields along one extra leading dimension. TensorMerge upgrades
// the stacked fields to gomlx tensors for training loops that want them.
//
// # Train/validation splits
//
//	split, err := dataset.NewSplitDatasetByWeight(ds, map[string]float64{
//	    "train": 0.8,
//	    "val":   0.2,
//	})
//	_ = split.Select("train")
//
// Partitions are contiguous, non-overlapping and laid out in sorted name
// order; selecting one changes what Size and Get see.
package dataset
