package posting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/weight"
)

func TestEncodeDecodePlainRoundTrip(t *testing.T) {
	es := entries([]uint32{1, 2, 9, 40}, []float32{0.1, 0.2, -0.3, 5})
	l := NewPlainList(es, 5)
	codec := weight.F32Codec{}

	raw := EncodePlain(l, codec)
	got := DecodePlain(raw, codec, l.Max)

	require.Equal(t, l.RowIDs, got.RowIDs)
	require.Equal(t, l.Weights, got.Weights)
}

func TestEncodeDecodeCompressedRoundTrip(t *testing.T) {
	n := 400
	rowIDs := make([]uint32, n)
	weights := make([]float32, n)
	for i := 0; i < n; i++ {
		rowIDs[i] = uint32(i)
		weights[i] = float32(i) * 0.25
	}
	es := entries(rowIDs, weights)
	l := NewCompressedList(es, weights[n-1])
	codec := weight.F32Codec{}

	raw := EncodeCompressed(l, codec)
	got := DecodeCompressed(raw, codec, l.Max)

	require.Equal(t, l.Weights, got.Weights)
	gc, wc := got.Cursor(), l.Cursor()
	for wc.Next() {
		require.True(t, gc.Next())
		require.Equal(t, wc.RowID(), gc.RowID())
	}
}

func TestEncodePlainWithU8Codec(t *testing.T) {
	es := entries([]uint32{1, 2, 3}, []float32{-1, 0, 1})
	l := NewPlainList(es, 1)
	params := weight.DeriveQuantParams([]float32{-1, 0, 1})
	codec := weight.U8Codec{Params: params}

	raw := EncodePlain(l, codec)
	got := DecodePlain(raw, codec, l.Max)
	for i, w := range l.Weights {
		require.InDelta(t, w, got.Weights[i], float64(params.Step))
	}
}
