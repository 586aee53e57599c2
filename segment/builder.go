// Package segment implements the segment lifecycle's two built halves:
// Builder (in-memory accumulation through the seal protocol) and
// ReadSegment (the mmap-backed read-only view of a sealed file).
package segment

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/format"
	"github.com/myscale/sparse-index/posting"
	"github.com/myscale/sparse-index/section"
	"github.com/myscale/sparse-index/vector"
	"github.com/myscale/sparse-index/weight"
)

// Options pins the physical encoding a Builder (and its sealed output)
// uses; these are fixed for the lifetime of the index that owns the
// builder.
type Options struct {
	Dir         string
	ElementType format.ElementType
	Compressed  bool
}

// Builder holds one segment's in-memory accumulator: a growable posting
// list per dimension. Every method takes the builder's own mutex, so
// concurrent Insert calls on one builder are serialized here.
type Builder struct {
	opts Options

	mu            sync.Mutex
	dims          map[uint32]*posting.Builder
	totalEntries  int
	bytesEstimate int64
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, dims: make(map[uint32]*posting.Builder)}
}

// Insert adds one already-normalized sparse vector's coordinates to their
// respective per-dimension builders.
func (b *Builder) Insert(rowID uint32, coords vector.SparseVector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range coords {
		d := b.dims[c.DimID]
		if d == nil {
			d = &posting.Builder{}
			b.dims[c.DimID] = d
		}
		d.Add(rowID, c.Weight)
	}
	b.totalEntries += len(coords)
	// 4 bytes row-id + 4 bytes weight per entry is a deliberately rough
	// estimate; it only needs to be in the right order of magnitude to
	// trip the seal threshold at a sane point.
	b.bytesEstimate += int64(len(coords)) * 8
}

// ShouldSeal reports whether either resource threshold has been crossed.
func (b *Builder) ShouldSeal(thresholdEntries int, thresholdBytes int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalEntries >= thresholdEntries || b.bytesEstimate >= thresholdBytes
}

// Empty reports whether the builder holds no entries (none inserted since
// creation or the last Seal); commit skips sealing empty builders.
func (b *Builder) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalEntries == 0
}

// DimData is one dimension's fully sorted entries, the unit SealDims
// consumes. Both Builder.Seal (from its in-memory accumulator) and the
// merger (from a k-way merge of source segments) produce these.
type DimData struct {
	DimID   uint32
	Entries []posting.Entry
	Max     float32
}

// Seal executes the seal protocol (§4.5): sort and verify each dimension,
// compute quantization parameters if enabled, write to a temp file, fsync,
// and rename to segment-<uuid>.idx. A failure at any step removes the temp
// file and returns the error; no partial segment is ever left registered.
func (b *Builder) Seal() (uuid.UUID, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dimIDs := make([]uint32, 0, len(b.dims))
	for id := range b.dims {
		dimIDs = append(dimIDs, id)
	}
	sort.Slice(dimIDs, func(i, j int) bool { return dimIDs[i] < dimIDs[j] })

	dims := make([]DimData, 0, len(dimIDs))
	for _, id := range dimIDs {
		entries, max, err := b.dims[id].Finalize()
		if err != nil {
			return uuid.Nil, "", err
		}
		dims = append(dims, DimData{DimID: id, Entries: entries, Max: max})
	}

	id, finalName, err := SealDims(b.opts, dims)
	if err != nil {
		return uuid.Nil, "", err
	}
	b.dims = make(map[uint32]*posting.Builder)
	b.totalEntries = 0
	b.bytesEstimate = 0
	return id, finalName, nil
}

// SealDims runs the write half of the seal protocol (steps 2–6 of §4.5)
// over already-sorted, already-deduplicated per-dimension data. It is
// shared between Builder.Seal and the Merger, which produces DimData via
// a k-way merge of source segments rather than from a live accumulator.
func SealDims(opts Options, dims []DimData) (uuid.UUID, string, error) {
	var allWeights int
	for _, d := range dims {
		allWeights += len(d.Entries)
	}

	var quant weight.QuantParams
	if opts.ElementType == format.U8 {
		all := make([]float32, 0, allWeights)
		for _, d := range dims {
			for _, e := range d.Entries {
				all = append(all, e.Weight)
			}
		}
		quant = weight.DeriveQuantParams(all)
	}
	codec := weight.For(opts.ElementType, quant)

	var region []byte
	dirEntries := make([]section.DimEntry, 0, len(dims))
	seenRows := make(map[uint32]struct{})
	for _, d := range dims {
		offset := uint64(len(region))
		var encoded []byte
		if opts.Compressed {
			cl := posting.NewCompressedList(d.Entries, d.Max)
			encoded = posting.EncodeCompressed(cl, codec)
		} else {
			pl := posting.NewPlainList(d.Entries, d.Max)
			encoded = posting.EncodePlain(pl, codec)
		}
		region = append(region, encoded...)
		dirEntries = append(dirEntries, section.DimEntry{
			DimID:      d.DimID,
			ListOffset: offset,
			ListLen:    uint32(len(encoded)),
			MaxWeight:  d.Max,
		})
		for _, e := range d.Entries {
			seenRows[e.RowID] = struct{}{}
		}
	}

	hdr := section.Header{
		Version:     section.Version,
		ElementType: opts.ElementType,
		Compressed:  opts.Compressed,
		QuantMin:    quant.Min,
		QuantStep:   quant.Step,
		NumDims:     uint32(len(dirEntries)),
		NumRows:     uint32(len(seenRows)),
	}
	if opts.Compressed {
		hdr.Flags |= section.FlagCompressed
	}
	if opts.ElementType == format.U8 {
		hdr.Flags |= section.FlagQuantized
	}

	id := uuid.New()
	finalName := "segment-" + id.String() + ".idx"
	if err := writeSegmentFile(opts.Dir, finalName, hdr, dirEntries, region); err != nil {
		return uuid.Nil, "", err
	}
	return id, finalName, nil
}

func writeSegmentFile(dir, finalName string, hdr section.Header, dirEntries []section.DimEntry, region []byte) error {
	tmpPath := filepath.Join(dir, finalName+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errs.Wrap(errs.IoError, err, "creating segment temp file")
	}

	fail := func(err error, msg string) error {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, msg)
	}

	var buf []byte
	buf = append(buf, hdr.Bytes()...)
	for _, e := range dirEntries {
		buf = append(buf, e.Bytes()...)
	}
	buf = append(buf, region...)
	buf = append(buf, footerBytes(buf)...)

	if _, err := f.Write(buf); err != nil {
		return fail(err, "writing segment body")
	}
	if err := f.Sync(); err != nil {
		return fail(err, "fsyncing segment")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, "closing segment temp file")
	}
	finalPath := filepath.Join(dir, finalName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.IoError, err, "renaming segment into place")
	}
	return nil
}
