package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/posting"
)

func cursorOver(rowIDs []uint32) posting.Cursor {
	entries := make([]posting.Entry, len(rowIDs))
	for i, r := range rowIDs {
		entries[i] = posting.Entry{RowID: r, Weight: float32(r)}
	}
	l := posting.NewPlainList(entries, float32(len(rowIDs)))
	c := l.Cursor()
	c.Next()
	return c
}

func TestCursorHeapDrainsInRowIDOrder(t *testing.T) {
	cursors := []posting.Cursor{
		cursorOver([]uint32{5, 10, 50}),
		cursorOver([]uint32{1, 20}),
		cursorOver([]uint32{3, 4, 100}),
	}
	h := NewCursorHeap(cursors)

	var got []uint32
	for !h.Empty() {
		got = append(got, h.Min().RowID())
		h.Advance()
	}
	require.Equal(t, []uint32{1, 3, 4, 5, 10, 20, 50, 100}, got)
}

func TestCursorHeapDropsAlreadyDoneCursors(t *testing.T) {
	done := cursorOver(nil)
	live := cursorOver([]uint32{1})
	h := NewCursorHeap([]posting.Cursor{done, live})
	require.False(t, h.Empty())
	require.Equal(t, uint32(1), h.Min().RowID())
}
