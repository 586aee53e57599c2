package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopKKeepsOnlyBestK(t *testing.T) {
	k := NewTopK(3)
	k.Offer(Candidate{RowID: 1, Score: 1})
	k.Offer(Candidate{RowID: 2, Score: 5})
	k.Offer(Candidate{RowID: 3, Score: 3})
	k.Offer(Candidate{RowID: 4, Score: 9})
	k.Offer(Candidate{RowID: 5, Score: 0})

	sorted := k.Sorted()
	require.Len(t, sorted, 3)
	require.Equal(t, []float32{9, 5, 3}, []float32{sorted[0].Score, sorted[1].Score, sorted[2].Score})
}

func TestTopKTieBreaksByLowerRowID(t *testing.T) {
	k := NewTopK(2)
	k.Offer(Candidate{RowID: 10, Score: 5})
	k.Offer(Candidate{RowID: 2, Score: 5})
	sorted := k.Sorted()
	require.Equal(t, uint32(2), sorted[0].RowID)
	require.Equal(t, uint32(10), sorted[1].RowID)
}

func TestTopKMinScoreBeforeFullIsNegativeInfinity(t *testing.T) {
	k := NewTopK(3)
	require.True(t, math.IsInf(float64(k.MinScore()), -1))
	k.Offer(Candidate{RowID: 1, Score: 1})
	require.True(t, math.IsInf(float64(k.MinScore()), -1))
}

func TestTopKZeroCapacityKeepsNothing(t *testing.T) {
	k := NewTopK(0)
	k.Offer(Candidate{RowID: 1, Score: 1})
	require.Equal(t, 0, k.Len())
}
