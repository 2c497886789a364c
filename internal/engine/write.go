package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/filterpolicy"
	"github.com/chrsbats/recollex/internal/metadata"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/internal/segment"
	"github.com/chrsbats/recollex/internal/tags"
	recerrors "github.com/chrsbats/recollex/pkg/errors"
	"github.com/chrsbats/recollex/pkg/seginfo"
)

// Row is one document's pre-encoded sparse vector plus its side attributes,
// ready to be appended to the write buffer.
type Row struct {
	Indices []int32
	Data    []float32
	Text    *string
	Tags    []tags.Label
}

// Add encodes text through the configured encoder and appends it as a
// single-row batch, returning its assigned doc_id.
func (e *Engine) Add(ctx context.Context, text string, labels []tags.Label) (uint64, error) {
	ids, err := e.AddMany(ctx, []string{text}, [][]tags.Label{labels})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AddMany encodes a batch of texts (each with its own tag set) and appends
// them as one write-buffer batch, returning their assigned doc_ids in order.
func (e *Engine) AddMany(ctx context.Context, texts []string, labelSets [][]tags.Label) ([]uint64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(texts))
	for i, v := range vectors {
		indices := make([]int32, len(v))
		data := make([]float32, len(v))
		for j, t := range v {
			indices[j] = int32(t.ID)
			data[j] = t.Weight
		}
		rows[i] = Row{Indices: indices, Data: data, Text: &texts[i], Tags: labelSets[i]}
	}
	return e.AddEncoded(ctx, rows)
}

// AddEncoded appends pre-encoded rows directly, skipping the encoder —
// the path a caller supplying its own SPLADE vectors uses. doc_id and seq
// are always assigned by the engine's own counters.
func (e *Engine) AddEncoded(ctx context.Context, rows []Row) ([]uint64, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	dims := e.encoder.Dims()
	for i, r := range rows {
		if err := validateIndices(uint64(i), r.Indices, dims); err != nil {
			return nil, err
		}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	docIDs := make([]uint64, len(rows))
	for i, r := range rows {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return nil, err
		}
		docID, err := e.store.NextDocID(ctx, tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		seq, err := e.store.NextSeq(ctx, tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		rowOffset := uint32(e.writer.Rows())
		e.writer.AddRow(docID, r.Indices, r.Data)

		tagText, err := tags.ToJSON(r.Tags)
		if err != nil {
			return nil, err
		}
		e.pendingDocs = append(e.pendingDocs, metadata.DocRow{
			DocID:     docID,
			RowOffset: rowOffset,
			Seq:       seq,
			Text:      r.Text,
			Tags:      tagText,
		})

		e.addDelta("universe", uint32(docID))
		for _, idx := range r.Indices {
			e.addDelta(termBitmapName(uint32(idx)), uint32(docID))
		}
		for _, l := range r.Tags {
			e.addDelta(l.BitmapName(), uint32(docID))
		}

		docIDs[i] = docID
	}

	if e.writer.EstimatedBytes() >= e.opts.SegmentOptions.Size {
		if err := e.flush(ctx); err != nil {
			return nil, err
		}
	}

	return docIDs, nil
}

func (e *Engine) addDelta(name string, docID uint32) {
	b, ok := e.pendingDeltas[name]
	if !ok {
		b = bitmap.Empty()
		e.pendingDeltas[name] = b
	}
	b.Add(docID)
}

func termBitmapName(id uint32) string {
	return "term:" + strconv.FormatUint(uint64(id), 10)
}

func validateIndices(rowIdx uint64, indices []int32, dims uint32) error {
	var prev int32 = -1
	for i, idx := range indices {
		if idx <= prev {
			return recerrors.NewNonAscendingIndicesError(rowIdx, i)
		}
		if uint32(idx) >= dims {
			return recerrors.NewTermOutOfRangeError(uint32(idx), dims)
		}
		prev = idx
	}
	return nil
}

// flush materializes the in-memory write buffer as a new segment: renames
// it into place, extends the manifest, and commits the batch's docs/bitmap
// deltas in a single metadata transaction — in that order, so a crash
// leaves either the pre-flush or full post-flush state, never half of one.
// Caller must hold writeMu.
func (e *Engine) flush(ctx context.Context) error {
	if e.writer.Rows() == 0 {
		return nil
	}

	if err := e.lock.Acquire(e.opts.ManifestLockTimeout); err != nil {
		return err
	}
	defer e.lock.Release()

	onDisk, err := segment.ReadManifest(e.dataDir)
	if err != nil {
		return err
	}
	e.manifestMu.RLock()
	inMemCount := len(e.manifest.Segments)
	e.manifestMu.RUnlock()
	if len(onDisk.Segments) != inMemCount {
		return recerrors.NewConcurrentModificationError(inMemCount, len(onDisk.Segments))
	}

	startRow := onDisk.TotalRows()
	dirs, err := seginfo.ListSegmentDirs(e.dataDir, e.opts.SegmentOptions.Directory, e.opts.SegmentOptions.Prefix)
	if err != nil {
		return err
	}
	id, err := seginfo.NextSegmentID(dirs, e.opts.SegmentOptions.Prefix)
	if err != nil {
		return err
	}
	record, err := e.writer.Flush(e.dataDir, e.opts.SegmentOptions.Directory, e.opts.SegmentOptions.Prefix, id, startRow)
	if err != nil {
		return err
	}

	if onDisk.Dims == 0 {
		onDisk.Dims = e.encoder.Dims()
	}
	onDisk.Segments = append(onDisk.Segments, record)
	if err := segment.WriteManifest(e.dataDir, onDisk); err != nil {
		return err
	}

	for i := range e.pendingDocs {
		e.pendingDocs[i].SegmentID = record.Name
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := e.store.PutDocs(ctx, tx, e.pendingDocs); err != nil {
		tx.Rollback()
		return err
	}
	now := time.Now().Unix()
	for name, delta := range e.pendingDeltas {
		if err := e.store.UnionInto(ctx, tx, name, delta, now); err != nil {
			tx.Rollback()
			return err
		}
		if termID, ok := strings.CutPrefix(name, "term:"); ok {
			if err := e.store.IncrStat(ctx, tx, "term_df:"+termID, int64(delta.Cardinality())); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	e.manifestMu.Lock()
	e.manifest = onDisk
	e.manifestMu.Unlock()

	e.writer = segment.NewWriter()
	e.pendingDocs = nil
	e.pendingDeltas = make(map[string]*bitmap.Bitmap)

	return nil
}

// Flush forces a flush of any buffered rows, independent of the segment
// size threshold — used by callers that want durability before reopening
// or before a controlled shutdown.
func (e *Engine) Flush(ctx context.Context) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.flush(ctx)
}

// Remove tombstones the given doc_ids. Unknown ids are accepted silently —
// tombstoning an id that was never alive is a harmless no-op.
func (e *Engine) Remove(ctx context.Context, docIDs ...uint64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if len(docIDs) == 0 {
		return nil
	}
	ids := make([]uint32, len(docIDs))
	for i, id := range docIDs {
		ids[i] = uint32(id)
	}
	delta := bitmap.OfMany(ids)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := e.store.UnionInto(ctx, tx, "tombstones", delta, time.Now().Unix()); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RemoveBy tombstones every doc_id matching scope, returning the count that
// was (or, if dryRun, would be) affected. dry_run computes the count without
// touching the tombstones bitmap.
func (e *Engine) RemoveBy(ctx context.Context, scope query.Scope, dryRun bool) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	matched, err := filterpolicy.MatchScope(ctx, e.store, scope)
	if err != nil {
		return 0, err
	}
	count := int(matched.Cardinality())
	if dryRun || count == 0 {
		return count, nil
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.store.UnionInto(ctx, tx, "tombstones", matched, time.Now().Unix()); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
