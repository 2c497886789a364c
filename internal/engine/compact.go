package engine

import (
	"context"

	"github.com/chrsbats/recollex/internal/compaction"
	"github.com/chrsbats/recollex/internal/segment"
	"github.com/chrsbats/recollex/pkg/seginfo"
)

// Compact rewrites every segment holding at least one tombstoned row,
// dropping those rows for good and reconciling postings, DF stats, and the
// docs table to match. It is the physical counterpart to Remove/RemoveBy's
// logical tombstone — without a compaction pass, term_df and postings drift
// from the true alive set forever once a delete happens.
func (e *Engine) Compact(ctx context.Context) (compaction.Result, error) {
	if err := e.checkOpen(); err != nil {
		return compaction.Result{}, err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.flush(ctx); err != nil {
		return compaction.Result{}, err
	}

	if err := e.lock.Acquire(e.opts.ManifestLockTimeout); err != nil {
		return compaction.Result{}, err
	}
	defer e.lock.Release()

	onDisk, err := segment.ReadManifest(e.dataDir)
	if err != nil {
		return compaction.Result{}, err
	}

	dirs, err := seginfo.ListSegmentDirs(e.dataDir, e.opts.SegmentOptions.Directory, e.opts.SegmentOptions.Prefix)
	if err != nil {
		return compaction.Result{}, err
	}
	nextSegID, err := seginfo.NextSegmentID(dirs, e.opts.SegmentOptions.Prefix)
	if err != nil {
		return compaction.Result{}, err
	}

	newManifest, result, err := compaction.Run(ctx, e.dataDir, e.opts, e.store, onDisk, nextSegID)
	if err != nil {
		return compaction.Result{}, err
	}

	if result.SegmentsRewritten == 0 && result.SegmentsDropped == 0 {
		return result, nil
	}

	if err := segment.WriteManifest(e.dataDir, newManifest); err != nil {
		return compaction.Result{}, err
	}

	e.manifestMu.Lock()
	e.manifest = newManifest
	e.manifestMu.Unlock()

	kept := make(map[string]bool, len(newManifest.Segments))
	for _, s := range newManifest.Segments {
		kept[s.Name] = true
	}
	for _, rec := range onDisk.Segments {
		if !kept[rec.Name] {
			e.readers.Remove(rec.Name)
		}
	}

	if result.CleanupErr != nil {
		e.log.Infow("compaction left orphaned segment directories for a later startup sweep", "error", result.CleanupErr)
	}

	return result, nil
}
