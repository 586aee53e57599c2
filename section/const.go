// Package section defines the binary layout of a sealed segment file:
// the fixed header, the per-dimension directory entries, and the
// constants tying them together. All multi-byte fields are little-endian.
package section

const (
	// Magic identifies a sparse-index segment file.
	Magic = "SPIXSEG1"

	Version uint32 = 1

	// HeaderSize is the size in bytes of the fixed header block, through
	// num_rows (magic, version, flags, element_type, compressed,
	// quantization params, num_dims, num_rows).
	HeaderSize = 8 + 4 + 4 + 1 + 1 + 8 + 4 + 4

	// DimEntrySize is the size in bytes of one dim_directory entry:
	// dim_id(4) + list_offset(8) + list_len(4) + max_weight(4).
	DimEntrySize = 4 + 8 + 4 + 4

	// FooterSize is the size in bytes of the trailing crc32 checksum.
	FooterSize = 4
)

// Flags bitmask values, stored in the header's flags field.
const (
	FlagCompressed uint32 = 1 << iota
	FlagQuantized
)
