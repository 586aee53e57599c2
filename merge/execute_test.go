package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/format"
	"github.com/myscale/sparse-index/segment"
	"github.com/myscale/sparse-index/vector"
)

func sealOne(t *testing.T, dir string, rows map[uint32]vector.SparseVector, opts segment.Options) *segment.ReadSegment {
	t.Helper()
	b := segment.NewBuilder(opts)
	for rowID, coords := range rows {
		b.Insert(rowID, coords)
	}
	_, name, err := b.Seal()
	require.NoError(t, err)
	rs, err := segment.Open(dir + "/" + name)
	require.NoError(t, err)
	return rs
}

func TestExecuteMergesDisjointSources(t *testing.T) {
	dir := t.TempDir()
	opts := segment.Options{Dir: dir, ElementType: format.F32}

	s1 := sealOne(t, dir, map[uint32]vector.SparseVector{
		1: {{DimID: 10, Weight: 1}},
		2: {{DimID: 10, Weight: 2}},
	}, opts)
	defer s1.Close()

	s2 := sealOne(t, dir, map[uint32]vector.SparseVector{
		3: {{DimID: 10, Weight: 3}},
		4: {{DimID: 20, Weight: 4}},
	}, opts)
	defer s2.Close()

	newID, newName, err := Execute(opts, []*segment.ReadSegment{s1, s2})
	require.NoError(t, err)
	require.NotEqual(t, "", newName)

	merged, err := segment.Open(dir + "/" + newName)
	require.NoError(t, err)
	defer merged.Close()

	require.Equal(t, newID, merged.ID)
	require.Equal(t, []uint32{10, 20}, merged.Dims())
	require.Equal(t, uint32(4), merged.NumRows())

	list, ok := merged.List(10)
	require.True(t, ok)
	c := list.Cursor()
	var rowIDs []uint32
	for c.Next() {
		rowIDs = append(rowIDs, c.RowID())
	}
	require.Equal(t, []uint32{1, 2, 3}, rowIDs)
	require.Equal(t, float32(3), list.MaxWeight())
}
