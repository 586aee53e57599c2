package bitpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	rowIDs := []uint32{10, 11, 15, 100, 1000, 1001, 1002}
	b := EncodeBlock(rowIDs)
	require.Equal(t, uint32(10), b.Min)
	require.Equal(t, len(rowIDs), b.Count)
	require.Equal(t, rowIDs, DecodeBlock(b))
}

func TestEncodeBlockConstantDeltaZeroBitWidth(t *testing.T) {
	b := EncodeBlock([]uint32{5})
	require.Equal(t, uint8(0), b.BitWidth)
	require.Equal(t, []uint32{5}, DecodeBlock(b))
}

func TestAtMatchesDecodeBlock(t *testing.T) {
	rowIDs := []uint32{3, 7, 8, 40, 4000, 4096}
	b := EncodeBlock(rowIDs)
	full := DecodeBlock(b)
	for i := range rowIDs {
		require.Equal(t, full[i], At(b, i))
	}
}

func TestEncodeBlockFullSize(t *testing.T) {
	rowIDs := make([]uint32, BlockSize)
	for i := range rowIDs {
		rowIDs[i] = uint32(i * 3)
	}
	b := EncodeBlock(rowIDs)
	require.Equal(t, rowIDs, DecodeBlock(b))
}
