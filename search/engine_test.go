package search

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/format"
	"github.com/myscale/sparse-index/segment"
	"github.com/myscale/sparse-index/vector"
)

func buildRandomSegment(t *testing.T, opts segment.Options, numRows, numDims int, seed int64) *segment.ReadSegment {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	b := segment.NewBuilder(opts)
	for row := 0; row < numRows; row++ {
		var coords vector.SparseVector
		for d := 0; d < numDims; d++ {
			if r.Intn(3) == 0 {
				coords = append(coords, vector.Pair{DimID: uint32(d), Weight: r.Float32()*2 - 1})
			}
		}
		if len(coords) == 0 {
			coords = vector.SparseVector{{DimID: 0, Weight: r.Float32()}}
		}
		b.Insert(uint32(row), coords)
	}
	_, name, err := b.Seal()
	require.NoError(t, err)
	rs, err := segment.Open(opts.Dir + "/" + name)
	require.NoError(t, err)
	return rs
}

func TestOptimizedMatchesBruteForce(t *testing.T) {
	dir := t.TempDir()
	opts := segment.Options{Dir: dir, ElementType: format.F32}
	rs := buildRandomSegment(t, opts, 2000, 12, 42)
	defer rs.Close()

	q := Query{
		Dims: vector.SparseVector{
			{DimID: 0, Weight: 1},
			{DimID: 3, Weight: -2},
			{DimID: 7, Weight: 0.5},
			{DimID: 11, Weight: 3},
		},
		TopK: 10,
	}

	bf := BruteForce(context.Background(), rs, q)
	opt := Optimized(context.Background(), rs, q)

	require.Len(t, opt.Candidates, len(bf.Candidates))
	for i := range bf.Candidates {
		require.Equal(t, bf.Candidates[i].RowID, opt.Candidates[i].RowID)
		require.InDelta(t, bf.Candidates[i].Score, opt.Candidates[i].Score, 1e-4)
	}
}

func TestOptimizedRespectsFilter(t *testing.T) {
	dir := t.TempDir()
	opts := segment.Options{Dir: dir, ElementType: format.F32}
	rs := buildRandomSegment(t, opts, 500, 5, 7)
	defer rs.Close()

	filter := NewBitmap(500)
	for i := uint32(0); i < 500; i += 2 {
		filter.Set(i)
	}

	q := Query{
		Dims:   vector.SparseVector{{DimID: 0, Weight: 1}, {DimID: 2, Weight: 1}},
		TopK:   20,
		Filter: filter,
	}

	res := Optimized(context.Background(), rs, q)
	for _, c := range res.Candidates {
		require.Zero(t, c.RowID%2)
	}
}

func TestMergeResultsCombinesSegments(t *testing.T) {
	a := Result{Candidates: []Candidate{{RowID: 1, Score: 5}, {RowID: 2, Score: 1}}}
	b := Result{Candidates: []Candidate{{RowID: 3, Score: 9}}}
	merged := MergeResults([]Result{a, b}, 2)
	require.Len(t, merged.Candidates, 2)
	require.Equal(t, uint32(3), merged.Candidates[0].RowID)
	require.Equal(t, uint32(1), merged.Candidates[1].RowID)
}
