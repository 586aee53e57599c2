package section

import (
	"encoding/binary"
	"math"

	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/format"
)

// Header is the fixed-size prefix of a segment file, parsed eagerly on
// mmap load; everything after it (the dim_directory and posting-list
// region) is addressed by offset rather than parsed upfront.
type Header struct {
	Version     uint32
	Flags       uint32
	ElementType format.ElementType
	Compressed  bool
	QuantMin    float32
	QuantStep   float32
	NumDims     uint32
	NumRows     uint32
}

// Bytes serializes h into the fixed HeaderSize-byte layout.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:8], Magic)
	binary.LittleEndian.PutUint32(b[8:12], h.Version)
	binary.LittleEndian.PutUint32(b[12:16], h.Flags)
	b[16] = byte(h.ElementType)
	if h.Compressed {
		b[17] = 1
	}
	binary.LittleEndian.PutUint32(b[18:22], math.Float32bits(h.QuantMin))
	binary.LittleEndian.PutUint32(b[22:26], math.Float32bits(h.QuantStep))
	binary.LittleEndian.PutUint32(b[26:30], h.NumDims)
	binary.LittleEndian.PutUint32(b[30:34], h.NumRows)
	return b
}

// ParseHeader reads a Header from the start of a segment file's bytes,
// rejecting bad magic or an unsupported version before any other field is
// trusted.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, errs.New(errs.Corruption, "segment shorter than header")
	}
	if string(data[0:8]) != Magic {
		return h, errs.New(errs.Corruption, "bad segment magic")
	}
	h.Version = binary.LittleEndian.Uint32(data[8:12])
	if h.Version != Version {
		return h, errs.Newf(errs.Corruption, "unsupported segment version %d", h.Version)
	}
	h.Flags = binary.LittleEndian.Uint32(data[12:16])
	h.ElementType = format.ElementType(data[16])
	h.Compressed = data[17] != 0
	h.QuantMin = math.Float32frombits(binary.LittleEndian.Uint32(data[18:22]))
	h.QuantStep = math.Float32frombits(binary.LittleEndian.Uint32(data[22:26]))
	h.NumDims = binary.LittleEndian.Uint32(data[26:30])
	h.NumRows = binary.LittleEndian.Uint32(data[30:34])
	return h, nil
}
