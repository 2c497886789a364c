package metadata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/recollex/internal/bitmap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "meta.sqlite")
	s, err := Open(dbPath, 16)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNextDocIDAndSeqMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	id1, err := s.NextDocID(ctx, tx)
	require.NoError(t, err)
	seq1, err := s.NextSeq(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	id2, err := s.NextDocID(ctx, tx)
	require.NoError(t, err)
	seq2, err := s.NextSeq(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(1), id1)
	require.Equal(t, uint64(2), id2)
	require.Equal(t, int64(1), seq1)
	require.Equal(t, int64(2), seq2)
}

func TestCounterSurvivesRolledBackFlush(t *testing.T) {
	// Mirrors the crash-safety scenario: doc_id/seq are committed in their
	// own short transaction independent of the later flush transaction, so
	// a rollback of the flush never re-issues a previously assigned id.
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	id, err := s.NextDocID(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.Equal(t, uint64(1), id)

	flushTx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutDocs(ctx, flushTx, []DocRow{{DocID: id, SegmentID: "seg_00001", RowOffset: 0, Seq: 1}}))
	require.NoError(t, flushTx.Rollback())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	nextID, err := s.NextDocID(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.Equal(t, uint64(2), nextID)

	doc, err := s.GetDoc(ctx, id)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestPutDocsAndGetDocsByIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	text := "hello world"
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutDocs(ctx, tx, []DocRow{
		{DocID: 1, SegmentID: "seg_00001", RowOffset: 0, Seq: 1, Text: &text, Tags: "[]"},
		{DocID: 2, SegmentID: "seg_00001", RowOffset: 1, Seq: 2, Tags: "[]"},
	}))
	require.NoError(t, tx.Commit())

	got, err := s.GetDocsByIDs(ctx, []uint64{1, 2, 999})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "seg_00001", got[1].SegmentID)
	require.Equal(t, &text, got[1].Text)
	require.Nil(t, got[999])
}

func TestUnionIntoPersistsBitmapDeltas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UnionInto(ctx, tx, "term:7", bitmap.OfMany([]uint32{1, 2}), 100))
	require.NoError(t, tx.Commit())

	b, err := s.GetBitmap(ctx, "term:7")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, b.ToSlice())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.RemoveFrom(ctx, tx, "term:7", bitmap.OfOne(1), 200))
	require.NoError(t, tx.Commit())

	b, err = s.GetBitmap(ctx, "term:7")
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, b.ToSlice())
}

func TestGetBitmapMissingIsEmpty(t *testing.T) {
	s := openTestStore(t)
	b, err := s.GetBitmap(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.Equal(t, uint64(0), b.Cardinality())
}

func TestIncrStatAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.IncrStat(ctx, tx, "term_df:1", 3))
	require.NoError(t, s.IncrStat(ctx, tx, "term_df:1", 2))
	require.NoError(t, tx.Commit())

	v, err := s.GetStat(ctx, "term_df:1")
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestGetStatMissingIsZero(t *testing.T) {
	s := openTestStore(t)
	v, err := s.GetStat(context.Background(), "missing")
	require.NoError(t, err)
	require.Equal(t, int64(0), v)
}
