package compaction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/metadata"
	"github.com/chrsbats/recollex/internal/segment"
	"github.com/chrsbats/recollex/pkg/filesys"
	"github.com/chrsbats/recollex/pkg/options"
)

func openTestStore(t *testing.T, dataDir string) *metadata.Store {
	t.Helper()
	s, err := metadata.Open(filepath.Join(dataDir, "meta.sqlite"), 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeSegment(t *testing.T, dataDir string, id uint64, rows [][2]any) segment.SegmentRecord {
	t.Helper()
	w := segment.NewWriter()
	for _, r := range rows {
		docID := r[0].(uint64)
		term := r[1].(int32)
		w.AddRow(docID, []int32{term}, []float32{1})
	}
	rec, err := w.Flush(dataDir, "segments", "seg", id, 0)
	require.NoError(t, err)
	return rec
}

func seedStore(t *testing.T, store *metadata.Store, docs []metadata.DocRow, postings map[string][]uint32, tombstoned []uint32) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.PutDocs(ctx, tx, docs))

	now := time.Now().Unix()
	all := make([]uint32, 0, len(docs))
	for _, d := range docs {
		all = append(all, uint32(d.DocID))
	}
	require.NoError(t, store.UnionInto(ctx, tx, "universe", bitmap.OfMany(all), now))
	for name, ids := range postings {
		require.NoError(t, store.UnionInto(ctx, tx, name, bitmap.OfMany(ids), now))
		require.NoError(t, store.IncrStat(ctx, tx, "term_df:"+name[len("term:"):], int64(len(ids))))
	}
	if len(tombstoned) > 0 {
		require.NoError(t, store.UnionInto(ctx, tx, "tombstones", bitmap.OfMany(tombstoned), now))
	}
	require.NoError(t, tx.Commit())
}

func TestRunNoOpWithoutTombstones(t *testing.T) {
	dataDir := t.TempDir()
	store := openTestStore(t, dataDir)
	ctx := context.Background()

	rec := writeSegment(t, dataDir, 1, [][2]any{{uint64(1), int32(10)}})
	manifest := &segment.Manifest{Version: segment.ManifestVersion, Dims: 100, Segments: []segment.SegmentRecord{rec}}

	got, result, err := Run(ctx, dataDir, testOpts(), store, manifest, 2)
	require.NoError(t, err)
	require.Same(t, manifest, got)
	require.Equal(t, Result{}, result)
}

func TestRunRewritesSegmentDroppingTombstonedRow(t *testing.T) {
	dataDir := t.TempDir()
	store := openTestStore(t, dataDir)
	ctx := context.Background()

	rec := writeSegment(t, dataDir, 1, [][2]any{
		{uint64(1), int32(10)},
		{uint64(2), int32(10)},
		{uint64(3), int32(20)},
	})
	text1, text2, text3 := "a", "b", "c"
	seedStore(t, store,
		[]metadata.DocRow{
			{DocID: 1, SegmentID: rec.Name, RowOffset: 0, Seq: 1, Text: &text1, Tags: "[]"},
			{DocID: 2, SegmentID: rec.Name, RowOffset: 1, Seq: 2, Text: &text2, Tags: "[]"},
			{DocID: 3, SegmentID: rec.Name, RowOffset: 2, Seq: 3, Text: &text3, Tags: "[]"},
		},
		map[string][]uint32{"term:10": {1, 2}, "term:20": {3}},
		[]uint32{2},
	)

	manifest := &segment.Manifest{Version: segment.ManifestVersion, Dims: 100, Segments: []segment.SegmentRecord{rec}}
	newManifest, result, err := Run(ctx, dataDir, testOpts(), store, manifest, 2)
	require.NoError(t, err)
	require.Equal(t, 1, result.SegmentsRewritten)
	require.Equal(t, 0, result.SegmentsDropped)
	require.Equal(t, 1, result.RowsDropped)
	require.NoError(t, result.CleanupErr)

	require.Len(t, newManifest.Segments, 1)
	newRec := newManifest.Segments[0]
	require.NotEqual(t, rec.Name, newRec.Name)
	require.Equal(t, uint64(2), newRec.RowCount())

	reader, err := segment.OpenReader(filepath.Join(dataDir, "segments", newRec.Name))
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, 2, reader.RowCount())
	require.Equal(t, uint64(1), reader.DocIDAt(0))
	require.Equal(t, uint64(3), reader.DocIDAt(1))

	d1, err := store.GetDoc(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, newRec.Name, d1.SegmentID)
	require.Equal(t, uint32(0), d1.RowOffset)

	d3, err := store.GetDoc(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, newRec.Name, d3.SegmentID)
	require.Equal(t, uint32(1), d3.RowOffset)

	d2, err := store.GetDoc(ctx, 2)
	require.NoError(t, err)
	require.Nil(t, d2)

	term10, err := store.GetBitmap(ctx, "term:10")
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, term10.ToSlice())

	universe, err := store.GetBitmap(ctx, "universe")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3}, universe.ToSlice())

	tombstones, err := store.GetBitmap(ctx, "tombstones")
	require.NoError(t, err)
	require.Equal(t, uint64(0), tombstones.Cardinality())

	df10, err := store.GetStat(ctx, "term_df:10")
	require.NoError(t, err)
	require.Equal(t, int64(1), df10)

	ok, err := filesys.Exists(filepath.Join(dataDir, "segments", rec.Name))
	require.NoError(t, err)
	require.False(t, ok, "old segment directory should be removed")
}

func TestRunDropsSegmentFullyTombstoned(t *testing.T) {
	dataDir := t.TempDir()
	store := openTestStore(t, dataDir)
	ctx := context.Background()

	rec := writeSegment(t, dataDir, 1, [][2]any{{uint64(1), int32(10)}})
	text1 := "a"
	seedStore(t, store,
		[]metadata.DocRow{{DocID: 1, SegmentID: rec.Name, RowOffset: 0, Seq: 1, Text: &text1, Tags: "[]"}},
		map[string][]uint32{"term:10": {1}},
		[]uint32{1},
	)

	manifest := &segment.Manifest{Version: segment.ManifestVersion, Dims: 100, Segments: []segment.SegmentRecord{rec}}
	newManifest, result, err := Run(ctx, dataDir, testOpts(), store, manifest, 2)
	require.NoError(t, err)
	require.Equal(t, 0, result.SegmentsRewritten)
	require.Equal(t, 1, result.SegmentsDropped)
	require.Empty(t, newManifest.Segments)

	d1, err := store.GetDoc(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, d1)
}

func testOpts() *options.Options {
	o := options.NewDefaultOptions()
	return &o
}
