package posting

import (
	"encoding/binary"

	"github.com/myscale/sparse-index/internal/bitpack"
	"github.com/myscale/sparse-index/weight"
)

// EncodePlain serializes a PlainList as:
//
//	[num_entries:4][row_ids: n*4][weights: n*codec.Width()]
func EncodePlain(l *PlainList, codec weight.Codec) []byte {
	n := len(l.RowIDs)
	out := make([]byte, 0, 4+n*4+n*codec.Width())
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(n))
	out = append(out, hdr[:]...)
	for _, id := range l.RowIDs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], id)
		out = append(out, b[:]...)
	}
	for _, w := range l.Weights {
		out = codec.Encode(out, w)
	}
	return out
}

// DecodePlain reads the layout written by EncodePlain. max is the
// dim_directory entry's cached max weight.
func DecodePlain(data []byte, codec weight.Codec, max float32) *PlainList {
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	off := 4
	rowIDs := make([]uint32, n)
	for i := 0; i < n; i++ {
		rowIDs[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	weights := make([]float32, n)
	width := codec.Width()
	for i := 0; i < n; i++ {
		weights[i] = codec.Decode(data[off : off+width])
		off += width
	}
	return &PlainList{RowIDs: rowIDs, Weights: weights, Max: max}
}

// EncodeCompressed serializes a CompressedList as:
//
//	[num_entries:4][num_full_blocks:4]
//	  per block: [min:4][bit_width:1][packed_len:4][packed bytes]
//	[tail_count:4][tail row_ids: tail_count*4]
//	[weights: num_entries*codec.Width()]
func EncodeCompressed(l *CompressedList, codec weight.Codec) []byte {
	var out []byte
	var u32 [4]byte

	binary.LittleEndian.PutUint32(u32[:], uint32(l.Len()))
	out = append(out, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], uint32(len(l.Blocks)))
	out = append(out, u32[:]...)

	for _, b := range l.Blocks {
		binary.LittleEndian.PutUint32(u32[:], b.Min)
		out = append(out, u32[:]...)
		out = append(out, byte(b.BitWidth))
		binary.LittleEndian.PutUint32(u32[:], uint32(len(b.Packed)))
		out = append(out, u32[:]...)
		out = append(out, b.Packed...)
	}

	binary.LittleEndian.PutUint32(u32[:], uint32(len(l.Tail)))
	out = append(out, u32[:]...)
	for _, id := range l.Tail {
		binary.LittleEndian.PutUint32(u32[:], id)
		out = append(out, u32[:]...)
	}

	for _, w := range l.Weights {
		out = codec.Encode(out, w)
	}
	return out
}

func DecodeCompressed(data []byte, codec weight.Codec, max float32) *CompressedList {
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	numBlocks := int(binary.LittleEndian.Uint32(data[4:8]))
	off := 8

	blocks := make([]bitpack.Block, numBlocks)
	remaining := n
	for i := 0; i < numBlocks; i++ {
		min := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		bw := data[off]
		off++
		packedLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		packed := data[off : off+packedLen]
		off += packedLen
		count := bitpack.BlockSize
		if remaining < bitpack.BlockSize {
			count = remaining
		}
		blocks[i] = bitpack.Block{Min: min, BitWidth: bw, Count: count, Packed: packed}
		remaining -= count
	}

	tailCount := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	tail := make([]uint32, tailCount)
	for i := 0; i < tailCount; i++ {
		tail[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}

	weights := make([]float32, n)
	width := codec.Width()
	for i := 0; i < n; i++ {
		weights[i] = codec.Decode(data[off : off+width])
		off += width
	}

	return &CompressedList{Blocks: blocks, Tail: tail, Weights: weights, Max: max}
}
