package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myscale/sparse-index/format"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:     Version,
		Flags:       FlagCompressed | FlagQuantized,
		ElementType: format.U8,
		Compressed:  true,
		QuantMin:    -1.5,
		QuantStep:   0.01,
		NumDims:     3,
		NumRows:     1000,
	}
	got, err := ParseHeader(h.Bytes())
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	b := Header{Version: Version}.Bytes()
	b[0] = 'X'
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderRejectsBadVersion(t *testing.T) {
	b := Header{Version: Version + 1}.Bytes()
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderRejectsShortInput(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize-1))
	require.Error(t, err)
}

func TestDimEntryRoundTrip(t *testing.T) {
	e := DimEntry{DimID: 42, ListOffset: 1024, ListLen: 256, MaxWeight: 3.5}
	got := ParseDimEntry(e.Bytes())
	require.Equal(t, e, got)
}
