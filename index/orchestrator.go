package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/manifest"
	"github.com/myscale/sparse-index/merge"
	"github.com/myscale/sparse-index/search"
	"github.com/myscale/sparse-index/segment"
	"github.com/myscale/sparse-index/vector"
)

const lockFileName = "LOCK"

// liveSegment pairs an open ReadSegment with the registration sequence
// number the merge policy uses to pick the oldest members of a tier, and a
// reference count pinning it open for in-flight searches. Per §9's "a
// ReadSegment exclusively owns its mapping; searches borrow it through a
// reference-counted snapshot", a segment the merger wants to retire is not
// unmapped until its last pinning search releases it.
type liveSegment struct {
	rs       *segment.ReadSegment
	seq      uint64
	log      *zap.SugaredLogger
	refs     int32
	retiring int32
}

// pin must only be called while holding at least a read lock on liveMu, in
// the same critical section that read it out of the live map — this keeps
// it strictly ordered against retire, which only runs under the write lock.
func (ls *liveSegment) pin() { atomic.AddInt32(&ls.refs, 1) }

// unpin releases one pin; if the segment was already retiring and this was
// the last pin, it is unmapped and its file deleted now.
func (ls *liveSegment) unpin() {
	if atomic.AddInt32(&ls.refs, -1) == 0 && atomic.LoadInt32(&ls.retiring) == 1 {
		ls.closeAndRemove()
	}
}

// retire marks ls as superseded by a merge; it unmaps and deletes its file
// immediately if unpinned, or defers to the pin holder's final unpin
// otherwise. Per §4.7 step 5, the file is only removed once no outstanding
// search snapshot still references it.
func (ls *liveSegment) retire() {
	atomic.StoreInt32(&ls.retiring, 1)
	if atomic.LoadInt32(&ls.refs) == 0 {
		ls.closeAndRemove()
	}
}

func (ls *liveSegment) closeAndRemove() {
	path := ls.rs.Path
	if err := ls.rs.Close(); err != nil && ls.log != nil {
		ls.log.Warnw("merge gc: failed to close superseded segment", "path", path, "err", err)
	}
	if err := os.Remove(path); err != nil && ls.log != nil {
		ls.log.Warnw("merge gc: failed to remove superseded segment file", "path", path, "err", err)
	}
}

// Orchestrator is the IndexOrchestrator of §4.6: it owns the directory
// lock, the builder pool, the manifest, and the background merger. None of
// its methods holds more than one of its locks at a time, following the
// no-nested-locking note of §9.
type Orchestrator struct {
	dir    string
	cfg    Config
	log    *zap.SugaredLogger
	lock   *flock.Flock
	closed bool

	buildersMu sync.RWMutex
	builders   []*segment.Builder

	liveMu   sync.RWMutex
	live     map[uuid.UUID]*liveSegment
	nextSeq  uint64
	genCount uint64

	mergeWG   sync.WaitGroup
	mergeStop chan struct{}
	merger    *merge.Merger
}

// Create initializes a brand-new index directory: it must not already
// contain a manifest.
func Create(dir string, cfg Config, log *zap.SugaredLogger) (*Orchestrator, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.IoError, err, "creating index directory")
	}
	if _, err := manifest.Load(dir); !errs.Is(err, errs.NotFound) {
		if err == nil {
			return nil, errs.New(errs.AlreadyExists, "index directory already has a manifest")
		}
		return nil, err
	}
	if err := manifest.Write(dir, manifest.Manifest{Generation: 0}); err != nil {
		return nil, err
	}
	return open(dir, cfg, log)
}

// Open attaches to an existing index directory, loading its manifest and
// mmapping every live segment named in it.
func Open(dir string, cfg Config, log *zap.SugaredLogger) (*Orchestrator, error) {
	return open(dir, cfg, log)
}

func open(dir string, cfg Config, log *zap.SugaredLogger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	lk := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lk.TryLock()
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "acquiring index directory lock")
	}
	if !ok {
		return nil, errs.New(errs.Busy, "index directory is locked by another process")
	}

	man, err := manifest.Load(dir)
	if err != nil {
		lk.Unlock()
		return nil, err
	}

	o := &Orchestrator{
		dir:       dir,
		cfg:       cfg,
		log:       log,
		lock:      lk,
		live:      make(map[uuid.UUID]*liveSegment),
		genCount:  man.Generation,
		mergeStop: make(chan struct{}),
	}

	for _, id := range man.Segments {
		path := filepath.Join(dir, "segment-"+id.String()+".idx")
		rs, err := segment.Open(path)
		if err != nil {
			o.closeAllLive()
			lk.Unlock()
			return nil, err
		}
		o.nextSeq++
		o.live[id] = &liveSegment{rs: rs, seq: o.nextSeq, log: log}
	}
	warnOrphanSegments(dir, man, log)

	n := cfg.NumBuilderThreads
	if n <= 0 {
		n = runtime.NumCPU()
		if n > 4 {
			n = 4
		}
	}
	opts := segment.Options{Dir: dir, ElementType: cfg.ElementType, Compressed: cfg.Compressed}
	o.builders = make([]*segment.Builder, n)
	for i := range o.builders {
		o.builders[i] = segment.NewBuilder(opts)
	}

	o.merger = merge.New(merge.DefaultPolicy(), opts, log)
	if cfg.MergeTierSize > 0 {
		o.merger.Policy.TierSize = cfg.MergeTierSize
	}

	o.mergeWG.Add(1)
	go o.mergeLoop()

	return o, nil
}

// builderFor hashes row_id to one of the builder pool's slots with
// xxhash, per §4.6's insert routing, so all of a row's coordinates go to
// the same builder.
func (o *Orchestrator) builderFor(rowID uint32) *segment.Builder {
	h := xxhash.Sum64String(fmt.Sprintf("%d", rowID))
	o.buildersMu.RLock()
	defer o.buildersMu.RUnlock()
	return o.builders[h%uint64(len(o.builders))]
}

// Insert normalizes coords and routes the row to its builder.
func (o *Orchestrator) Insert(rowID uint32, coords vector.SparseVector) error {
	norm, err := vector.Normalize(coords)
	if err != nil {
		return err
	}
	o.builderFor(rowID).Insert(rowID, norm)
	return nil
}

// Commit seals every non-empty builder whose resource threshold has been
// crossed (or, if force is true, every non-empty builder regardless) and
// atomically publishes the resulting segments into the manifest.
func (o *Orchestrator) Commit(force bool) error {
	o.buildersMu.RLock()
	builders := append([]*segment.Builder(nil), o.builders...)
	o.buildersMu.RUnlock()

	var sealed []uuid.UUID
	for _, b := range builders {
		if b.Empty() {
			continue
		}
		if !force && !b.ShouldSeal(o.cfg.SealThresholdEntries, o.cfg.SealThresholdBytes) {
			continue
		}
		id, name, err := b.Seal()
		if err != nil {
			return err
		}
		rs, err := segment.Open(filepath.Join(o.dir, name))
		if err != nil {
			return err
		}
		o.registerLive(id, rs)
		sealed = append(sealed, id)
	}
	if len(sealed) == 0 {
		return nil
	}
	return o.publishManifest()
}

func (o *Orchestrator) registerLive(id uuid.UUID, rs *segment.ReadSegment) {
	o.liveMu.Lock()
	defer o.liveMu.Unlock()
	o.nextSeq++
	o.live[id] = &liveSegment{rs: rs, seq: o.nextSeq, log: o.log}
}

// publishManifest swaps in a new manifest listing exactly the current
// live set, bumping the generation number, per §4.6's atomic swap.
func (o *Orchestrator) publishManifest() error {
	o.liveMu.Lock()
	o.genCount++
	gen := o.genCount
	ids := make([]uuid.UUID, 0, len(o.live))
	for id := range o.live {
		ids = append(ids, id)
	}
	o.liveMu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return manifest.Write(o.dir, manifest.Manifest{Generation: gen, Segments: ids})
}

// Search fans the query out across every live segment with the optimized
// MaxScore traversal, then merges the per-segment top-k into one global
// result, per §4.8's cross-segment merge.
func (o *Orchestrator) Search(ctx context.Context, q search.Query) search.Result {
	o.liveMu.RLock()
	pinned := make([]*liveSegment, 0, len(o.live))
	for _, ls := range o.live {
		ls.pin()
		pinned = append(pinned, ls)
	}
	o.liveMu.RUnlock()

	defer func() {
		for _, ls := range pinned {
			ls.unpin()
		}
	}()

	if len(pinned) == 0 {
		return search.Result{}
	}

	results := make([]search.Result, len(pinned))
	var wg sync.WaitGroup
	for i, ls := range pinned {
		wg.Add(1)
		go func(i int, rs *segment.ReadSegment) {
			defer wg.Done()
			results[i] = search.Optimized(ctx, rs, q)
		}(i, ls.rs)
	}
	wg.Wait()

	return search.MergeResults(results, q.TopK)
}

// mergeLoop is the dedicated background merger goroutine of §5: it ticks
// on an interval, and at most one merge executes at a time because this
// loop never overlaps itself.
func (o *Orchestrator) mergeLoop() {
	defer o.mergeWG.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-o.mergeStop:
			return
		case <-ticker.C:
			o.mergeTick()
		}
	}
}

func (o *Orchestrator) mergeTick() {
	o.liveMu.RLock()
	candidates := make([]merge.Candidate, 0, len(o.live))
	for id, ls := range o.live {
		candidates = append(candidates, merge.Candidate{ID: id, NumRows: ls.rs.NumRows(), Seq: ls.seq})
	}
	o.liveMu.RUnlock()

	result := o.merger.Tick(candidates, o.openSources)
	if result == nil {
		return
	}

	newRS, err := segment.Open(filepath.Join(o.dir, result.NewName))
	if err != nil {
		o.log.Warnw("merge: failed to open merged segment, discarding result", "err", err)
		return
	}

	o.liveMu.Lock()
	for _, id := range result.Replaced {
		if ls, ok := o.live[id]; ok {
			ls.retire()
			delete(o.live, id)
		}
	}
	o.nextSeq++
	o.live[result.NewID] = &liveSegment{rs: newRS, seq: o.nextSeq, log: o.log}
	o.liveMu.Unlock()

	if err := o.publishManifest(); err != nil {
		o.log.Warnw("merge: publishing manifest after merge failed", "err", err)
	}
}

// openSources resolves merge candidate ids to their already-open
// ReadSegments; the merger borrows these mappings without closing them.
func (o *Orchestrator) openSources(ids []uuid.UUID) ([]*segment.ReadSegment, error) {
	o.liveMu.RLock()
	defer o.liveMu.RUnlock()
	out := make([]*segment.ReadSegment, 0, len(ids))
	for _, id := range ids {
		ls, ok := o.live[id]
		if !ok {
			return nil, errs.Newf(errs.NotFound, "merge source segment %s no longer live", id)
		}
		out = append(out, ls.rs)
	}
	return out, nil
}

// warnOrphanSegments surfaces segment-<uuid>.idx files present in dir but
// absent from the manifest: sealed segments left behind by a crash between
// write and the manifest rewrite that would have registered them, or
// superseded segments from a merge whose manifest publish then failed.
// They are never referenced, so leaving them in place is always safe; this
// only logs, it never deletes, since cleanup is not this library's call to
// make on the caller's behalf.
func warnOrphanSegments(dir string, man manifest.Manifest, log *zap.SugaredLogger) {
	matches, err := filepath.Glob(filepath.Join(dir, "segment-*.idx"))
	if err != nil {
		return
	}
	known := make(map[string]struct{}, len(man.Segments))
	for _, id := range man.Segments {
		known["segment-"+id.String()+".idx"] = struct{}{}
	}
	for _, path := range matches {
		if _, ok := known[filepath.Base(path)]; !ok {
			log.Warnw("orphan segment file not referenced by manifest", "path", path)
		}
	}
}

func (o *Orchestrator) closeAllLive() {
	o.liveMu.Lock()
	defer o.liveMu.Unlock()
	for _, ls := range o.live {
		ls.rs.Close()
	}
	o.live = make(map[uuid.UUID]*liveSegment)
}

// Close stops the background merger, unmaps every live segment, and
// releases the directory lock.
func (o *Orchestrator) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	close(o.mergeStop)
	o.mergeWG.Wait()
	o.closeAllLive()
	return o.lock.Unlock()
}

// Stats reports a coarse snapshot of the live segment set, for
// introspection (§12).
type Stats struct {
	Generation  uint64
	NumSegments int
	NumRows     uint64
}

func (o *Orchestrator) Stats() Stats {
	o.liveMu.RLock()
	defer o.liveMu.RUnlock()
	s := Stats{Generation: o.genCount, NumSegments: len(o.live)}
	for _, ls := range o.live {
		s.NumRows += uint64(ls.rs.NumRows())
	}
	return s
}
