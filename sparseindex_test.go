package sparseindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/vector"
)

func TestFlatSurfaceLifecycle(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, CreateIndex(dir, nil))
	defer Close(dir)

	require.NoError(t, Insert(dir, 1, vector.SparseVector{{DimID: 1, Weight: 1}}))
	require.NoError(t, Insert(dir, 2, vector.SparseVector{{DimID: 1, Weight: 2}, {DimID: 2, Weight: 1}}))
	require.NoError(t, Commit(dir))

	res, err := Search(context.Background(), dir, vector.SparseVector{{DimID: 1, Weight: 1}}, nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	stats, err := StatsOf(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.NumRows)
}

func TestCreateIndexTwiceFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CreateIndex(dir, nil))
	defer Close(dir)

	require.Error(t, CreateIndex(dir, nil))
}

func TestOperationsOnUnopenedIndexFail(t *testing.T) {
	require.Error(t, Insert("/nonexistent", 1, nil))
	require.Error(t, Commit("/nonexistent"))
	require.Error(t, Close("/nonexistent"))
}
