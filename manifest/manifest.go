// Package manifest implements the small binary record naming an index's
// current generation: the set of live segment ids. It is rewritten
// atomically by writing manifest.tmp and renaming over manifest, following
// the same temp-file-then-rename idiom the segment seal protocol uses.
package manifest

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/myscale/sparse-index/errs"
)

const (
	Magic          = "SPIXMAN1"
	Version uint32 = 1

	FileName    = "manifest"
	TmpFileName = "manifest.tmp"
)

// Manifest is the durable record of one index generation: which segment
// files currently constitute the live set.
type Manifest struct {
	Generation uint64
	Segments   []uuid.UUID
}

// Bytes serializes m as [magic:8][version:4][generation:8][count:4]
// [segment_id:16]xN[crc32:4].
func (m Manifest) Bytes() []byte {
	size := 8 + 4 + 8 + 4 + len(m.Segments)*16 + 4
	b := make([]byte, size)
	off := 0
	copy(b[off:off+8], Magic)
	off += 8
	binary.LittleEndian.PutUint32(b[off:off+4], Version)
	off += 4
	binary.LittleEndian.PutUint64(b[off:off+8], m.Generation)
	off += 8
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(len(m.Segments)))
	off += 4
	for _, id := range m.Segments {
		raw, _ := id.MarshalBinary()
		copy(b[off:off+16], raw)
		off += 16
	}
	crc := crc32.ChecksumIEEE(b[:off])
	binary.LittleEndian.PutUint32(b[off:off+4], crc)
	return b
}

// Parse reads a Manifest from its serialized bytes, verifying magic,
// version and crc32 before trusting the segment list.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if len(data) < 8+4+8+4+4 {
		return m, errs.New(errs.Corruption, "manifest shorter than fixed header")
	}
	if string(data[0:8]) != Magic {
		return m, errs.New(errs.Corruption, "bad manifest magic")
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != Version {
		return m, errs.Newf(errs.Corruption, "unsupported manifest version %d", version)
	}
	m.Generation = binary.LittleEndian.Uint64(data[12:20])
	count := binary.LittleEndian.Uint32(data[20:24])

	want := 24 + int(count)*16 + 4
	if len(data) != want {
		return m, errs.New(errs.Corruption, "manifest length does not match segment count")
	}
	gotCRC := binary.LittleEndian.Uint32(data[want-4:])
	wantCRC := crc32.ChecksumIEEE(data[:want-4])
	if gotCRC != wantCRC {
		return m, errs.New(errs.Corruption, "manifest crc32 mismatch")
	}

	off := 24
	m.Segments = make([]uuid.UUID, count)
	for i := range m.Segments {
		id, err := uuid.FromBytes(data[off : off+16])
		if err != nil {
			return Manifest{}, errs.Wrap(errs.Corruption, err, "bad segment id in manifest")
		}
		m.Segments[i] = id
		off += 16
	}
	return m, nil
}

// Load reads and parses the manifest file in dir. NotFound is returned
// when the directory has never been committed (no manifest yet).
func Load(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return Manifest{}, errs.Wrap(errs.NotFound, err, "manifest not found")
	}
	if err != nil {
		return Manifest{}, errs.Wrap(errs.IoError, err, "reading manifest")
	}
	return Parse(data)
}

// Write atomically rewrites dir's manifest: write manifest.tmp, fsync it,
// then rename over manifest, and fsync the containing directory so the
// rename itself is durable.
func Write(dir string, m Manifest) error {
	tmpPath := filepath.Join(dir, TmpFileName)
	finalPath := filepath.Join(dir, FileName)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errs.Wrap(errs.IoError, err, "creating manifest.tmp")
	}
	if _, err := f.Write(m.Bytes()); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, "writing manifest.tmp")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, "fsyncing manifest.tmp")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, "closing manifest.tmp")
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errs.Wrap(errs.IoError, err, "renaming manifest.tmp onto manifest")
	}
	if dirF, err := os.Open(dir); err == nil {
		dirF.Sync()
		dirF.Close()
	}
	return nil
}
