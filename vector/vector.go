// Package vector defines the caller-facing SparseVector type and its
// normalization rules: sorted by dim_id, no duplicate dims, no NaN
// weights.
package vector

import (
	"math"
	"sort"

	"github.com/myscale/sparse-index/errs"
)

// Pair is one non-zero coordinate of a sparse vector.
type Pair struct {
	DimID  uint32
	Weight float32
}

// SparseVector is an unordered collection of Pairs with unique dim_ids.
type SparseVector []Pair

// Normalize returns v sorted by DimID ascending, rejecting duplicate
// dim_ids and NaN weights per §3 and the NaN-rejection decision in §9.
func Normalize(v SparseVector) (SparseVector, error) {
	out := make(SparseVector, len(v))
	copy(out, v)
	sort.Slice(out, func(i, j int) bool { return out[i].DimID < out[j].DimID })

	for i, p := range out {
		if math.IsNaN(float64(p.Weight)) {
			return nil, errs.Newf(errs.InvalidArgument, "NaN weight at dim %d", p.DimID)
		}
		if i > 0 && out[i-1].DimID == p.DimID {
			return nil, errs.Newf(errs.InvalidArgument, "duplicate dim_id %d in sparse vector", p.DimID)
		}
	}
	return out, nil
}
