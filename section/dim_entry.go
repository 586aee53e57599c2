package section

import (
	"encoding/binary"
	"math"
)

// DimEntry is one row of the dim_directory: it locates the posting list
// for dim_id within the posting_list_region and caches that list's max
// weight for the pruning search. The directory is sorted by DimID and
// binary-searched at query time.
type DimEntry struct {
	DimID      uint32
	ListOffset uint64 // relative to the start of posting_list_region
	ListLen    uint32 // length in bytes of the encoded list
	MaxWeight  float32
}

func (e DimEntry) Bytes() []byte {
	b := make([]byte, DimEntrySize)
	binary.LittleEndian.PutUint32(b[0:4], e.DimID)
	binary.LittleEndian.PutUint64(b[4:12], e.ListOffset)
	binary.LittleEndian.PutUint32(b[12:16], e.ListLen)
	binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(e.MaxWeight))
	return b
}

func ParseDimEntry(data []byte) DimEntry {
	return DimEntry{
		DimID:      binary.LittleEndian.Uint32(data[0:4]),
		ListOffset: binary.LittleEndian.Uint64(data[4:12]),
		ListLen:    binary.LittleEndian.Uint32(data[12:16]),
		MaxWeight:  math.Float32frombits(binary.LittleEndian.Uint32(data[16:20])),
	}
}
