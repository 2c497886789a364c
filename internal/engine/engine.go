// Package engine orchestrates recollex's subsystems — the metadata store,
// segment readers/writer, manifest/lock, filter policy, candidate
// supplier, scorer, and rank merger — behind the add/search/remove surface
// the spec describes. It follows the same constructor-with-Config-struct
// and atomic-closed-flag shape the teacher's own engine used, generalized
// from a single KV index to the full query pipeline.
package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/cache"
	"github.com/chrsbats/recollex/internal/metadata"
	"github.com/chrsbats/recollex/internal/segment"
	recerrors "github.com/chrsbats/recollex/pkg/errors"
	"github.com/chrsbats/recollex/pkg/filesys"
	"github.com/chrsbats/recollex/pkg/options"
	"github.com/chrsbats/recollex/pkg/seginfo"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

// Engine is the core query and storage engine. It owns the single write
// path for its data directory; concurrent readers need no external
// synchronization, but concurrent writers must serialize through writeMu
// (or use a single Engine from one goroutine at a time for writes).
type Engine struct {
	dataDir string
	opts    *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool

	store *metadata.Store
	lock  *segment.ManifestLock

	manifestMu sync.RWMutex
	manifest   *segment.Manifest

	readers *cache.LRU[string, *segment.Reader]

	encoder Encoder

	writeMu       sync.Mutex
	writer        *segment.Writer
	pendingDocs   []metadata.DocRow
	pendingDeltas map[string]*bitmap.Bitmap
}

// Config holds everything needed to open an Engine.
type Config struct {
	DataDir string
	Encoder Encoder
	Logger  *zap.SugaredLogger
	Options *options.Options
}

// Open creates the index directory (and SQL file) if missing, or loads an
// existing one, reconciling any crash artifacts left from an interrupted
// flush.
func Open(ctx context.Context, cfg *Config) (*Engine, error) {
	opts := cfg.Options
	if opts == nil {
		defaults := options.NewDefaultOptions()
		opts = &defaults
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if err := filesys.CreateDir(cfg.DataDir, 0755, true); err != nil {
		return nil, recerrors.ClassifyDirectoryCreationError(err, cfg.DataDir)
	}
	segRoot := filepath.Join(cfg.DataDir, opts.SegmentOptions.Directory)
	if err := filesys.CreateDir(segRoot, 0755, true); err != nil {
		return nil, recerrors.ClassifyDirectoryCreationError(err, segRoot)
	}

	if err := gcOrphans(cfg.DataDir, opts); err != nil {
		return nil, err
	}

	manifest, err := segment.ReadManifest(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := metadata.Open(filepath.Join(cfg.DataDir, "meta.sqlite"), opts.Caches.BitmapEntries)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dataDir:       cfg.DataDir,
		opts:          opts,
		log:           log,
		store:         store,
		lock:          segment.NewManifestLock(cfg.DataDir),
		manifest:      manifest,
		encoder:       cfg.Encoder,
		writer:        segment.NewWriter(),
		pendingDeltas: make(map[string]*bitmap.Bitmap),
	}
	e.readers = cache.New[string, *segment.Reader](opts.Caches.SegmentReaderEntries, 0, nil, func(_ string, r *segment.Reader) {
		r.Close()
	})

	return e, nil
}

// gcOrphans removes unpublished seg_XXX.tmp directories and published
// segment directories unknown to manifest.json — artifacts of a crash before
// a segment rename, or between a segment rename and the following manifest
// rename, respectively.
func gcOrphans(dataDir string, opts *options.Options) error {
	segDir := opts.SegmentOptions.Directory
	prefix := opts.SegmentOptions.Prefix

	tmpDirs, err := seginfo.ListOrphanTmpDirs(dataDir, segDir, prefix)
	if err != nil {
		return err
	}
	for _, d := range tmpDirs {
		if err := filesys.DeleteDir(d); err != nil {
			return err
		}
	}

	manifest, err := segment.ReadManifest(dataDir)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(manifest.Segments))
	for _, s := range manifest.Segments {
		known[s.Name] = true
	}

	dirs, err := seginfo.ListSegmentDirs(dataDir, segDir, prefix)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if !known[filepath.Base(d)] {
			if err := filesys.DeleteDir(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every cached resource. Idempotent: a second call is a no-op.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.readers.Close()
	return e.store.Close()
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// currentManifest returns a snapshot of the manifest as of now — a single
// query snapshots this once at the start and uses it for the whole call.
func (e *Engine) currentManifest() *segment.Manifest {
	e.manifestMu.RLock()
	defer e.manifestMu.RUnlock()
	m := *e.manifest
	segs := make([]segment.SegmentRecord, len(e.manifest.Segments))
	copy(segs, e.manifest.Segments)
	m.Segments = segs
	return &m
}

// getReader returns a cached, open Reader for the named segment, opening
// and caching it on miss, pinned with one Acquire the caller must Release
// when done — an LRU eviction (or a concurrent Compact rewriting this
// segment) can otherwise unmap the reader's array files mid-query.
func (e *Engine) getReader(name string) (*segment.Reader, error) {
	if r, ok := e.readers.Get(name); ok {
		r.Acquire()
		return r, nil
	}
	dir := filepath.Join(e.dataDir, e.opts.SegmentOptions.Directory, name)
	r, err := segment.OpenReader(dir)
	if err != nil {
		return nil, err
	}
	e.readers.Put(name, r)
	r.Acquire()
	return r, nil
}
