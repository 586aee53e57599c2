package segment

import (
	"encoding/binary"
	"hash/crc32"
)

// footerBytes computes the §4.4 footer: a crc32 over everything written
// so far, appended as 4 little-endian bytes.
func footerBytes(data []byte) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], crc32.ChecksumIEEE(data))
	return b[:]
}
