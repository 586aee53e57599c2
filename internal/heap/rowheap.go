// Package heap implements a small array-backed binary min-heap of
// posting-list cursors keyed by the cursor's current row_id, in the same
// siftUp/siftDown style as a classic k-way posting-list merge heap.
package heap

import "github.com/myscale/sparse-index/posting"

// CursorHeap orders a set of live cursors by their current RowID so the
// smallest row_id across all of them is always at index 0.
type CursorHeap struct {
	cursors []posting.Cursor
}

// NewCursorHeap builds a heap from cursors already advanced to their
// first entry; cursors that are Done are dropped.
func NewCursorHeap(cursors []posting.Cursor) *CursorHeap {
	h := &CursorHeap{}
	for _, c := range cursors {
		if !c.Done() {
			h.cursors = append(h.cursors, c)
		}
	}
	for i := len(h.cursors)/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
	return h
}

func (h *CursorHeap) Empty() bool { return len(h.cursors) == 0 }

// Min returns the cursor currently at the root (smallest row_id).
func (h *CursorHeap) Min() posting.Cursor { return h.cursors[0] }

// Advance moves the root cursor forward and re-heapifies; a cursor that
// becomes Done is removed from the heap.
func (h *CursorHeap) Advance() {
	if h.cursors[0].Next() {
		h.siftDown(0)
		return
	}
	last := len(h.cursors) - 1
	h.cursors[0] = h.cursors[last]
	h.cursors = h.cursors[:last]
	if len(h.cursors) > 0 {
		h.siftDown(0)
	}
}

func (h *CursorHeap) siftDown(i int) {
	n := len(h.cursors)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && h.cursors[l].RowID() < h.cursors[smallest].RowID() {
			smallest = l
		}
		if r < n && h.cursors[r].RowID() < h.cursors[smallest].RowID() {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.cursors[i], h.cursors[smallest] = h.cursors[smallest], h.cursors[i]
		i = smallest
	}
}
