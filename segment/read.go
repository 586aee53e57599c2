package segment

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/posting"
	"github.com/myscale/sparse-index/section"
	"github.com/myscale/sparse-index/weight"
)

// ReadSegment is the mmap-backed, read-only view of one sealed segment
// file. It exclusively owns its mapping (§9): callers must Close it, and
// must not do so while a search still references it.
type ReadSegment struct {
	Path   string
	ID     uuid.UUID
	Header section.Header

	file *os.File
	data mmap.MMap

	dimDir       []section.DimEntry // parsed eagerly; cheap fixed-size rows
	postRegion   []byte             // sub-slice of data, zero-copy
	quantParams  weight.QuantParams
	codec        weight.Codec
}

// Open mmaps path read-only, validates the header and crc32 footer, and
// parses the dim_directory. Corruption at this point is returned as an
// error rather than panicking, per §7's "corruption detected at
// load_index aborts opening".
func Open(path string) (*ReadSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "opening segment file")
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IoError, err, "mmaping segment file")
	}

	rs, err := parse(path, f, m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	return rs, nil
}

func parse(path string, f *os.File, data []byte) (*ReadSegment, error) {
	if len(data) < section.HeaderSize+section.FooterSize {
		return nil, errs.New(errs.Corruption, "segment file too short")
	}
	hdr, err := section.ParseHeader(data)
	if err != nil {
		return nil, err
	}

	body := data[:len(data)-section.FooterSize]
	wantCRC := binary.LittleEndian.Uint32(data[len(data)-section.FooterSize:])
	gotCRC := crc32.ChecksumIEEE(body)
	if gotCRC != wantCRC {
		return nil, errs.New(errs.Corruption, "segment crc32 mismatch")
	}

	off := section.HeaderSize
	dimDir := make([]section.DimEntry, hdr.NumDims)
	for i := range dimDir {
		dimDir[i] = section.ParseDimEntry(data[off : off+section.DimEntrySize])
		off += section.DimEntrySize
		if i > 0 && dimDir[i].DimID <= dimDir[i-1].DimID {
			return nil, errs.New(errs.Corruption, "dim_directory out of order")
		}
	}
	postRegion := data[off : len(data)-section.FooterSize]

	id, err := segmentIDFromPath(path)
	if err != nil {
		return nil, err
	}

	quant := weight.QuantParams{Min: hdr.QuantMin, Step: hdr.QuantStep}
	return &ReadSegment{
		Path:        path,
		ID:          id,
		Header:      hdr,
		file:        f,
		data:        data,
		dimDir:      dimDir,
		postRegion:  postRegion,
		quantParams: quant,
		codec:       weight.For(hdr.ElementType, quant),
	}, nil
}

// segmentIDFromPath extracts the uuid from a "segment-<uuid>.idx" filename.
func segmentIDFromPath(path string) (uuid.UUID, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".idx")
	base = strings.TrimPrefix(base, "segment-")
	id, err := uuid.Parse(base)
	if err != nil {
		return uuid.Nil, errs.Wrap(errs.Corruption, err, "segment filename is not a valid uuid")
	}
	return id, nil
}

// Close unmaps the segment file. It is an error to call this while a
// search snapshot still references the segment.
func (rs *ReadSegment) Close() error {
	if err := rs.data.Unmap(); err != nil {
		rs.file.Close()
		return errs.Wrap(errs.IoError, err, "unmapping segment")
	}
	if err := rs.file.Close(); err != nil {
		return errs.Wrap(errs.IoError, err, "closing segment file")
	}
	return nil
}

// NumDims and NumRows expose the segment's header counters.
func (rs *ReadSegment) NumDims() uint32 { return rs.Header.NumDims }
func (rs *ReadSegment) NumRows() uint32 { return rs.Header.NumRows }

// Dims returns the sorted list of dim_ids present in this segment.
func (rs *ReadSegment) Dims() []uint32 {
	out := make([]uint32, len(rs.dimDir))
	for i, e := range rs.dimDir {
		out[i] = e.DimID
	}
	return out
}

// List binary-searches the dim_directory for dimID and decodes that
// dimension's posting list. Returns (nil, false) if the segment has no
// entries for dimID — a normal, non-error outcome queries must handle.
func (rs *ReadSegment) List(dimID uint32) (posting.List, bool) {
	i := sort.Search(len(rs.dimDir), func(i int) bool { return rs.dimDir[i].DimID >= dimID })
	if i >= len(rs.dimDir) || rs.dimDir[i].DimID != dimID {
		return nil, false
	}
	e := rs.dimDir[i]
	raw := rs.postRegion[e.ListOffset : e.ListOffset+uint64(e.ListLen)]
	if rs.Header.Compressed {
		return posting.DecodeCompressed(raw, rs.codec, e.MaxWeight), true
	}
	return posting.DecodePlain(raw, rs.codec, e.MaxWeight), true
}
