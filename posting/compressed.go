package posting

import "github.com/myscale/sparse-index/internal/bitpack"

// CompressedList stores row-ids delta-encoded and bit-packed in blocks of
// bitpack.BlockSize; the final partial block is not packed at all: its
// row-ids are kept as plain uint32 values in Tail. Weights are kept
// contiguous and never bit-packed, per §4.3.
type CompressedList struct {
	Blocks  []bitpack.Block
	Tail    []uint32 // uncompressed row-ids of the final partial block
	Weights []float32
	Max     float32
}

func NewCompressedList(entries []Entry, max float32) *CompressedList {
	l := &CompressedList{Weights: make([]float32, len(entries)), Max: max}
	rowIDs := make([]uint32, len(entries))
	for i, e := range entries {
		rowIDs[i] = e.RowID
		l.Weights[i] = e.Weight
	}

	n := len(rowIDs)
	full := n / bitpack.BlockSize * bitpack.BlockSize
	for i := 0; i < full; i += bitpack.BlockSize {
		l.Blocks = append(l.Blocks, bitpack.EncodeBlock(rowIDs[i:i+bitpack.BlockSize]))
	}
	if full < n {
		l.Tail = rowIDs[full:]
	}
	return l
}

func (l *CompressedList) Len() int {
	return len(l.Blocks)*bitpack.BlockSize + len(l.Tail)
}

func (l *CompressedList) MaxWeight() float32 { return l.Max }

func (l *CompressedList) Cursor() Cursor {
	return &compressedCursor{list: l, blockIdx: -1, within: -1}
}

// RowIDAt returns the row-id of the i'th entry in the list (0-based),
// spanning both packed blocks and the uncompressed tail.
func (l *CompressedList) RowIDAt(i int) uint32 {
	blockCount := len(l.Blocks) * bitpack.BlockSize
	if i < blockCount {
		b := l.Blocks[i/bitpack.BlockSize]
		return bitpack.At(b, i%bitpack.BlockSize)
	}
	return l.Tail[i-blockCount]
}

// blockMin returns the minimum row-id of block index bi, where bi may
// address one of the packed blocks or the synthetic tail "block".
func (l *CompressedList) blockMin(bi int) uint32 {
	if bi < len(l.Blocks) {
		return l.Blocks[bi].Min
	}
	return l.Tail[0]
}

func (l *CompressedList) blockCount(bi int) int {
	if bi < len(l.Blocks) {
		return l.Blocks[bi].Count
	}
	return len(l.Tail)
}

func (l *CompressedList) numBlocks() int {
	n := len(l.Blocks)
	if len(l.Tail) > 0 {
		n++
	}
	return n
}

type compressedCursor struct {
	list     *CompressedList
	blockIdx int // which block (or the synthetic tail block) the cursor is in
	within   int // index within the current block
	global   int // absolute entry index, for Weights lookup
}

func (c *compressedCursor) Done() bool {
	return c.blockIdx >= c.list.numBlocks()
}

func (c *compressedCursor) RowID() uint32 {
	return c.list.RowIDAt(c.global)
}

func (c *compressedCursor) Weight() float32 {
	return c.list.Weights[c.global]
}

func (c *compressedCursor) Next() bool {
	if c.blockIdx < 0 {
		c.blockIdx, c.within, c.global = 0, 0, 0
		return !c.Done()
	}
	c.within++
	c.global++
	if c.within >= c.list.blockCount(c.blockIdx) {
		c.blockIdx++
		c.within = 0
	}
	return !c.Done()
}

// Seek skips whole blocks whose minimum is still below target before
// unpacking within the block that may contain it, per §4.3's "cursor seek
// exploits block minima" requirement.
func (c *compressedCursor) Seek(target uint32) bool {
	if c.blockIdx < 0 {
		c.blockIdx, c.within, c.global = 0, 0, 0
	}
	total := c.list.numBlocks()
	for c.blockIdx < total-1 && c.list.blockMin(c.blockIdx+1) <= target {
		c.global += c.list.blockCount(c.blockIdx) - c.within
		c.blockIdx++
		c.within = 0
	}
	if c.Done() {
		return false
	}
	// Linear scan within the located block; blocks are capped at
	// bitpack.BlockSize so this is bounded work.
	for !c.Done() && c.RowID() < target {
		if !c.Next() {
			return false
		}
	}
	return !c.Done()
}
