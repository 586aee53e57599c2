package posting

import "sort"

// PlainList stores row-ids and weights as two contiguous decoded arrays.
// It is the in-memory representation produced directly from a Builder and
// is also what ReadSegment materializes for dim_directory entries whose
// segment was built with compressed=false.
type PlainList struct {
	RowIDs  []uint32
	Weights []float32
	Max     float32
}

func NewPlainList(entries []Entry, max float32) *PlainList {
	l := &PlainList{
		RowIDs:  make([]uint32, len(entries)),
		Weights: make([]float32, len(entries)),
		Max:     max,
	}
	for i, e := range entries {
		l.RowIDs[i] = e.RowID
		l.Weights[i] = e.Weight
	}
	return l
}

func (l *PlainList) Len() int           { return len(l.RowIDs) }
func (l *PlainList) MaxWeight() float32 { return l.Max }

func (l *PlainList) Cursor() Cursor {
	return &plainCursor{list: l, idx: -1}
}

type plainCursor struct {
	list *PlainList
	idx  int // -1 before first Next/Seek
}

func (c *plainCursor) Done() bool { return c.idx >= len(c.list.RowIDs) }

func (c *plainCursor) RowID() uint32 { return c.list.RowIDs[c.idx] }

func (c *plainCursor) Weight() float32 { return c.list.Weights[c.idx] }

func (c *plainCursor) Next() bool {
	c.idx++
	return !c.Done()
}

// Seek advances to the first entry with RowID >= target using galloping
// search: an exponential probe to bracket the target, followed by a binary
// search within the bracket. This handles both small seeks (common when
// candidates are dense) and large seeks (common when candidates are
// sparse) with the same code path.
func (c *plainCursor) Seek(target uint32) bool {
	rowIDs := c.list.RowIDs
	start := c.idx
	if start < 0 {
		start = 0
	}
	if start < len(rowIDs) && rowIDs[start] >= target {
		c.idx = start
		return true
	}

	lo := start
	step := 1
	hi := lo + 1
	for hi < len(rowIDs) && rowIDs[hi] < target {
		lo = hi
		step *= 2
		hi = lo + step
	}
	if hi > len(rowIDs) {
		hi = len(rowIDs)
	}

	// Binary search for the first index in (lo, hi] with RowIDs[idx] >= target.
	i := sort.Search(hi-lo, func(i int) bool { return rowIDs[lo+i] >= target }) + lo
	c.idx = i
	return !c.Done()
}
