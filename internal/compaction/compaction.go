// Package compaction physically drops tombstoned rows by rewriting the
// segments that contain them and swapping in a fresh manifest, reconciling
// the docs table, term/tag postings, and per-term DF stats to match. It is
// the physical counterpart to Remove/RemoveBy's logical tombstone: those
// only ever add to the tombstones bitmap, so DF and postings drift from
// their true alive-set values until a compaction pass runs.
package compaction

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/metadata"
	"github.com/chrsbats/recollex/internal/segment"
	"github.com/chrsbats/recollex/internal/tags"
	"github.com/chrsbats/recollex/pkg/filesys"
	"github.com/chrsbats/recollex/pkg/options"
)

// Store is the slice of metadata.Store compaction needs to reconcile
// postings, docs, and stats. *metadata.Store satisfies this directly.
type Store interface {
	Begin(ctx context.Context) (*sql.Tx, error)
	GetBitmap(ctx context.Context, name string) (*bitmap.Bitmap, error)
	GetDocsByIDs(ctx context.Context, ids []uint64) (map[uint64]*metadata.DocRow, error)
	PutDocs(ctx context.Context, tx *sql.Tx, rows []metadata.DocRow) error
	DeleteDocs(ctx context.Context, tx *sql.Tx, ids []uint64) error
	RemoveFrom(ctx context.Context, tx *sql.Tx, name string, delta *bitmap.Bitmap, now int64) error
	IncrStat(ctx context.Context, tx *sql.Tx, key string, delta int64) error
}

// Result summarizes one compaction pass.
type Result struct {
	SegmentsRewritten int
	SegmentsDropped   int // every row tombstoned; the segment is removed outright
	RowsDropped       int
	CleanupErr        error // best-effort old-directory removal failures, non-fatal
}

// Run rewrites every segment in manifest that contains at least one
// tombstoned row, reconciles the metadata store in one transaction, and
// returns the new manifest to publish. The caller holds the manifest lock
// and writeMu for the duration (recollex assumes a single writer) and is
// responsible for calling segment.WriteManifest with the returned manifest.
// nextSegID must already exceed every segment id currently on disk.
func Run(ctx context.Context, dataDir string, opts *options.Options, store Store, manifest *segment.Manifest, nextSegID uint64) (*segment.Manifest, Result, error) {
	tombstones, err := store.GetBitmap(ctx, "tombstones")
	if err != nil {
		return nil, Result{}, err
	}
	if tombstones.Cardinality() == 0 {
		return manifest, Result{}, nil
	}

	segDir := opts.SegmentOptions.Directory
	prefix := opts.SegmentOptions.Prefix

	var result Result
	newSegments := make([]segment.SegmentRecord, 0, len(manifest.Segments))
	var oldDirs []string

	allRemoved := bitmap.Empty()
	termDeltas := make(map[string]*bitmap.Bitmap)
	dfDeltas := make(map[uint32]int64)
	var survivorUpdates []metadata.DocRow

	var nextRow uint64
	for _, rec := range manifest.Segments {
		reader, err := segment.OpenReader(filepath.Join(dataDir, segDir, rec.Name))
		if err != nil {
			return nil, Result{}, err
		}

		var survivorOffsets, removedOffsets []uint32
		for row := 0; row < reader.RowCount(); row++ {
			docID := reader.DocIDAt(uint32(row))
			if tombstones.Contains(uint32(docID)) {
				removedOffsets = append(removedOffsets, uint32(row))
			} else {
				survivorOffsets = append(survivorOffsets, uint32(row))
			}
		}

		if len(removedOffsets) == 0 {
			reader.Close()
			count := rec.RowCount()
			newSegments = append(newSegments, segment.SegmentRecord{Name: rec.Name, Rows: [2]uint64{nextRow, nextRow + count}})
			nextRow += count
			continue
		}

		removedView := reader.SliceRows(removedOffsets)
		removedDocIDs := make([]uint64, 0, len(removedOffsets))
		for i := 0; i < removedView.RowCount(); i++ {
			docID := removedView.RowIDs[i]
			removedDocIDs = append(removedDocIDs, docID)
			allRemoved.Add(uint32(docID))

			indices, _ := removedView.Row(i)
			for _, idx := range indices {
				name := termBitmapName(uint32(idx))
				addDelta(termDeltas, name, uint32(docID))
				dfDeltas[uint32(idx)]++
			}
		}

		removedDocs, err := store.GetDocsByIDs(ctx, removedDocIDs)
		if err != nil {
			reader.Close()
			return nil, Result{}, err
		}
		for _, docID := range removedDocIDs {
			if d, ok := removedDocs[docID]; ok {
				for _, l := range tags.FromJSON(d.Tags) {
					addDelta(termDeltas, l.BitmapName(), uint32(docID))
				}
			}
		}
		result.RowsDropped += len(removedOffsets)

		if len(survivorOffsets) == 0 {
			reader.Close()
			result.SegmentsDropped++
			oldDirs = append(oldDirs, filepath.Join(dataDir, segDir, rec.Name))
			continue
		}

		survivorView := reader.SliceRows(survivorOffsets)
		survivorDocIDs := make([]uint64, survivorView.RowCount())
		w := segment.NewWriter()
		for i := 0; i < survivorView.RowCount(); i++ {
			indices, data := survivorView.Row(i)
			w.AddRow(survivorView.RowIDs[i], indices, data)
			survivorDocIDs[i] = survivorView.RowIDs[i]
		}
		reader.Close()

		newRec, err := w.Flush(dataDir, segDir, prefix, nextSegID, nextRow)
		if err != nil {
			return nil, Result{}, err
		}
		nextSegID++

		survivorDocs, err := store.GetDocsByIDs(ctx, survivorDocIDs)
		if err != nil {
			return nil, Result{}, err
		}
		for i, docID := range survivorDocIDs {
			d, ok := survivorDocs[docID]
			if !ok {
				continue
			}
			survivorUpdates = append(survivorUpdates, metadata.DocRow{
				DocID:     docID,
				SegmentID: newRec.Name,
				RowOffset: uint32(i),
				Seq:       d.Seq,
				Text:      d.Text,
				Tags:      d.Tags,
			})
		}

		newSegments = append(newSegments, newRec)
		nextRow += newRec.RowCount()
		result.SegmentsRewritten++
		oldDirs = append(oldDirs, filepath.Join(dataDir, segDir, rec.Name))
	}

	now := time.Now().Unix()
	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, Result{}, err
	}
	if len(survivorUpdates) > 0 {
		if err := store.PutDocs(ctx, tx, survivorUpdates); err != nil {
			tx.Rollback()
			return nil, Result{}, err
		}
	}
	removedIDs := allRemoved.ToSlice()
	docIDs := make([]uint64, len(removedIDs))
	for i, id := range removedIDs {
		docIDs[i] = uint64(id)
	}
	if len(docIDs) > 0 {
		if err := store.DeleteDocs(ctx, tx, docIDs); err != nil {
			tx.Rollback()
			return nil, Result{}, err
		}
	}
	for name, delta := range termDeltas {
		if err := store.RemoveFrom(ctx, tx, name, delta, now); err != nil {
			tx.Rollback()
			return nil, Result{}, err
		}
	}
	if err := store.RemoveFrom(ctx, tx, "universe", allRemoved, now); err != nil {
		tx.Rollback()
		return nil, Result{}, err
	}
	if err := store.RemoveFrom(ctx, tx, "tombstones", allRemoved, now); err != nil {
		tx.Rollback()
		return nil, Result{}, err
	}
	for termID, delta := range dfDeltas {
		if err := store.IncrStat(ctx, tx, "term_df:"+strconv.FormatUint(uint64(termID), 10), -delta); err != nil {
			tx.Rollback()
			return nil, Result{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, Result{}, err
	}

	newManifest := &segment.Manifest{Version: segment.ManifestVersion, Dims: manifest.Dims, Segments: newSegments}

	var cleanupErr error
	for _, dir := range oldDirs {
		if err := filesys.DeleteDir(dir); err != nil {
			cleanupErr = multierr.Append(cleanupErr, err)
		}
	}
	result.CleanupErr = cleanupErr

	return newManifest, result, nil
}

func addDelta(deltas map[string]*bitmap.Bitmap, name string, docID uint32) {
	b, ok := deltas[name]
	if !ok {
		b = bitmap.Empty()
		deltas[name] = b
	}
	b.Add(docID)
}

func termBitmapName(id uint32) string {
	return "term:" + strconv.FormatUint(uint64(id), 10)
}
