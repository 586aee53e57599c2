package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSortsByDimID(t *testing.T) {
	v := SparseVector{{DimID: 5, Weight: 1}, {DimID: 1, Weight: 2}, {DimID: 3, Weight: 3}}
	got, err := Normalize(v)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3, 5}, []uint32{got[0].DimID, got[1].DimID, got[2].DimID})
}

func TestNormalizeRejectsDuplicateDimID(t *testing.T) {
	v := SparseVector{{DimID: 1, Weight: 1}, {DimID: 1, Weight: 2}}
	_, err := Normalize(v)
	require.Error(t, err)
}

func TestNormalizeRejectsNaN(t *testing.T) {
	v := SparseVector{{DimID: 1, Weight: float32(math.NaN())}}
	_, err := Normalize(v)
	require.Error(t, err)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	v := SparseVector{{DimID: 2, Weight: 1}, {DimID: 1, Weight: 2}}
	_, err := Normalize(v)
	require.NoError(t, err)
	require.Equal(t, uint32(2), v[0].DimID)
}
