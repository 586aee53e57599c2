package index

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/search"
	"github.com/myscale/sparse-index/vector"
)

func TestCreateInsertCommitSearch(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(WithNumBuilderThreads(2))

	o, err := Create(dir, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, o.Insert(1, vector.SparseVector{{DimID: 1, Weight: 1}, {DimID: 2, Weight: 2}}))
	require.NoError(t, o.Insert(2, vector.SparseVector{{DimID: 1, Weight: 3}}))
	require.NoError(t, o.Insert(3, vector.SparseVector{{DimID: 2, Weight: 5}}))

	require.NoError(t, o.Commit(true))

	res := o.Search(context.Background(), search.Query{
		Dims: vector.SparseVector{{DimID: 1, Weight: 1}, {DimID: 2, Weight: 1}},
		TopK: 10,
	})
	require.NotEmpty(t, res.Candidates)

	stats := o.Stats()
	require.Equal(t, uint64(3), stats.NumRows)

	require.NoError(t, o.Close())
}

func TestCreateRejectsExistingManifest(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()

	o, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, o.Close())

	_, err = Create(dir, cfg, nil)
	require.Error(t, err)
}

func TestOpenReattachesToCommittedSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(WithNumBuilderThreads(1))

	o, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, o.Insert(1, vector.SparseVector{{DimID: 1, Weight: 1}}))
	require.NoError(t, o.Commit(true))
	require.NoError(t, o.Close())

	reopened, err := Open(dir, cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.Stats()
	require.Equal(t, 1, stats.NumSegments)
	require.Equal(t, uint64(1), stats.NumRows)
}

func TestMergeTickDeletesSupersededSegmentFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(WithNumBuilderThreads(1), WithMergeTierSize(2))

	o, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	defer o.Close()

	for i := uint32(0); i < 2; i++ {
		require.NoError(t, o.Insert(i, vector.SparseVector{{DimID: 1, Weight: float32(i + 1)}}))
		require.NoError(t, o.Commit(true))
	}

	o.liveMu.RLock()
	var paths []string
	for _, ls := range o.live {
		paths = append(paths, ls.rs.Path)
	}
	o.liveMu.RUnlock()
	require.Len(t, paths, 2)

	o.mergeTick()

	for _, p := range paths {
		_, err := os.Stat(p)
		require.True(t, os.IsNotExist(err), "superseded segment file %s should have been removed", p)
	}

	stats := o.Stats()
	require.Equal(t, 1, stats.NumSegments)
	require.Equal(t, uint64(2), stats.NumRows)
}

func TestOpenFailsWhenDirectoryAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()

	o, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	defer o.Close()

	_, err = Open(dir, cfg, nil)
	require.Error(t, err)
}
