// Package sparseindex is the flat operation surface of §6: a small set of
// path-addressed functions backed by a registry of open index directories,
// in the style of ignite's Instance facade but keyed by directory rather
// than held as a single handle, since the external interface here is
// stateless functions rather than a constructed object.
package sparseindex

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/index"
	"github.com/myscale/sparse-index/search"
	"github.com/myscale/sparse-index/vector"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]*index.Orchestrator)
)

// Logger is the package-wide sugared logger; callers may replace it
// before creating or opening any index.
var Logger = zap.NewNop().Sugar()

// CreateIndex initializes a new index directory at path, parsing
// configJSON into an index.Config (empty configJSON uses the defaults).
func CreateIndex(path string, configJSON []byte) error {
	cfg, err := index.ParseConfigJSON(configJSON)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "parsing config_json")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[path]; ok {
		return errs.New(errs.AlreadyExists, "index already open at this path")
	}
	o, err := index.Create(path, cfg, Logger)
	if err != nil {
		return err
	}
	registry[path] = o
	return nil
}

// LoadIndex opens an existing index directory at path.
func LoadIndex(path string, configJSON []byte) error {
	cfg, err := index.ParseConfigJSON(configJSON)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "parsing config_json")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[path]; ok {
		return errs.New(errs.AlreadyExists, "index already open at this path")
	}
	o, err := index.Open(path, cfg, Logger)
	if err != nil {
		return err
	}
	registry[path] = o
	return nil
}

func lookup(path string) (*index.Orchestrator, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	o, ok := registry[path]
	if !ok {
		return nil, errs.New(errs.NotFound, "no index open at this path")
	}
	return o, nil
}

// Insert normalizes and inserts one row's sparse vector into the index
// open at path.
func Insert(path string, rowID uint32, coords vector.SparseVector) error {
	o, err := lookup(path)
	if err != nil {
		return err
	}
	return o.Insert(rowID, coords)
}

// Commit force-seals every non-empty builder, regardless of whether it
// has crossed its resource threshold, and publishes the result into the
// manifest. Rows inserted since the last commit are not searchable until
// this returns.
func Commit(path string) error {
	o, err := lookup(path)
	if err != nil {
		return err
	}
	return o.Commit(true)
}

// CommitAll is an alias for Commit kept for callers that want to be
// explicit that every builder is force-sealed.
func CommitAll(path string) error {
	return Commit(path)
}

// Search runs a top-k query against the index open at path.
func Search(ctx context.Context, path string, query vector.SparseVector, filter *search.Bitmap, topK int) (search.Result, error) {
	o, err := lookup(path)
	if err != nil {
		return search.Result{}, err
	}
	norm, err := vector.Normalize(query)
	if err != nil {
		return search.Result{}, err
	}
	return o.Search(ctx, search.Query{Dims: norm, TopK: topK, Filter: filter}), nil
}

// Close releases the index open at path: the background merger, every
// mmapped segment, and the directory lock.
func Close(path string) error {
	registryMu.Lock()
	o, ok := registry[path]
	if ok {
		delete(registry, path)
	}
	registryMu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, "no index open at this path")
	}
	return o.Close()
}

// StatsOf reports a coarse snapshot of the live segment set for the index
// open at path.
func StatsOf(path string) (index.Stats, error) {
	o, err := lookup(path)
	if err != nil {
		return index.Stats{}, err
	}
	return o.Stats(), nil
}
