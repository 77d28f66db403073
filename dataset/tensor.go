package dataset

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// TensorMerge wraps a MergeFunc so that stacked float fields come out as
// gomlx tensors instead of Go slices, letting batches feed a gomlx training
// loop directly. Non-float fields keep whatever next produced.
//
// Example:
//
//	bd, _ := dataset.NewBatchDataset(ds, 32,
//	    dataset.WithMerge(dataset.TensorMerge(dataset.MergeStack)))
//	batch, _ := bd.Get(0)
//	input := batch["input"].(*tensors.Tensor) // shape [32, featureDim]
func TensorMerge(next MergeFunc) MergeFunc {
	return func(field string, values []any) (any, error) {
		merged, err := next(field, values)
		if err != nil {
			return nil, err
		}
		switch merged.(type) {
		case [][]float32, []float32, [][]float64, []float64:
			return tensors.FromAnyValue(merged), nil
		}
		return merged, nil
	}
}
