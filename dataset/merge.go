package dataset

// MergeFunc aggregates the values one field takes across the samples of a
// batch into a single batched value. It receives the field name and the
// per-sample values in batch order.
type MergeFunc func(field string, values []any) (any, error)

// MergeStack is the default merge: equal-length numeric vectors are stacked
// into a matrix with one extra leading dimension, numeric scalars are
// collected into a vector, and everything else passes through unchanged as
// an ordered list.
//
// Stacked forms, per element type:
//
//	[]float32 -> [][]float32    float32 -> []float32
//	[]float64 -> [][]float64    float64 -> []float64
//	[]int     -> [][]int        int     -> []int
//
// Vectors of differing lengths within one field are not stackable and fall
// back to the ordered-list form.
func MergeStack(_ string, values []any) (any, error) {
	if len(values) == 0 {
		return []any{}, nil
	}
	if stacked, ok := stackVectors[float32](values); ok {
		return stacked, nil
	}
	if stacked, ok := stackVectors[float64](values); ok {
		return stacked, nil
	}
	if stacked, ok := stackVectors[int](values); ok {
		return stacked, nil
	}
	if col, ok := collectScalars[float32](values); ok {
		return col, nil
	}
	if col, ok := collectScalars[float64](values); ok {
		return col, nil
	}
	if col, ok := collectScalars[int](values); ok {
		return col, nil
	}
	out := make([]any, len(values))
	copy(out, values)
	return out, nil
}

// stackVectors stacks values into a [][]T when every value is a []T of the
// same length.
func stackVectors[T any](values []any) ([][]T, bool) {
	out := make([][]T, len(values))
	for i, v := range values {
		row, ok := v.([]T)
		if !ok || (i > 0 && len(row) != len(out[0])) {
			return nil, false
		}
		out[i] = row
	}
	return out, true
}

// collectScalars gathers values into a []T when every value is a T.
func collectScalars[T any](values []any) ([]T, bool) {
	out := make([]T, len(values))
	for i, v := range values {
		s, ok := v.(T)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
