package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/internal/segment"
)

type fakeBitmapSource struct {
	postings map[string]*bitmap.Bitmap
}

func (f fakeBitmapSource) GetBitmap(_ context.Context, name string) (*bitmap.Bitmap, error) {
	if b, ok := f.postings[name]; ok {
		return b, nil
	}
	return bitmap.Empty(), nil
}

func buildTestReader(t *testing.T) (*segment.Reader, []segment.SegmentRecord) {
	t.Helper()
	dataDir := t.TempDir()
	w := segment.NewWriter()
	w.AddRow(10, []int32{1, 3, 5}, []float32{1, 1, 1})
	w.AddRow(20, []int32{2, 3}, []float32{2, 2})
	w.AddRow(30, []int32{1, 5}, []float32{3, 3})

	record, err := w.Flush(dataDir, "segments", "seg", 1, 0)
	require.NoError(t, err)

	reader, err := segment.OpenReader(dataDir + "/segments/" + record.Name)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	return reader, []segment.SegmentRecord{record}
}

func TestSliceAndAccumulatorKernelsAgree(t *testing.T) {
	reader, _ := buildTestReader(t)
	terms := []query.Term{{ID: 1, Weight: 1}, {ID: 3, Weight: 2}, {ID: 5, Weight: 0.5}}

	offsets := []uint32{0, 1, 2}
	sliceScores := sliceKernel(reader, offsets, terms)

	src := fakeBitmapSource{postings: map[string]*bitmap.Bitmap{
		"term:1": bitmap.OfMany([]uint32{10, 30}),
		"term:3": bitmap.OfMany([]uint32{10, 20}),
		"term:5": bitmap.OfMany([]uint32{10, 30}),
	}}
	candidates := bitmap.OfMany([]uint32{10, 20, 30})

	accScores, err := accumulatorKernel(context.Background(), reader, src, candidates, terms)
	require.NoError(t, err)

	sliceByRow := make(map[uint32]float32, len(sliceScores))
	for _, s := range sliceScores {
		sliceByRow[s.RowOffset] = s.Score
	}
	for _, s := range accScores {
		require.InDelta(t, sliceByRow[s.RowOffset], s.Score, 1e-6)
	}
	require.Len(t, accScores, len(sliceScores))
}

func TestScoreChoosesKernelByThreshold(t *testing.T) {
	reader, _ := buildTestReader(t)
	terms := []query.Term{{ID: 1, Weight: 1}}
	src := fakeBitmapSource{postings: map[string]*bitmap.Bitmap{
		"term:1": bitmap.OfMany([]uint32{10, 30}),
	}}
	candidates := bitmap.OfMany([]uint32{10, 20, 30})
	offsets := []uint32{0, 1, 2}

	got, err := Score(context.Background(), reader, src, candidates, offsets, terms, 1)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	got, err = Score(context.Background(), reader, src, candidates, offsets, terms, 100)
	require.NoError(t, err)
	require.Len(t, got, 3) // every candidate row is seeded, even ones no posting touches

	var zeroRow bool
	for _, sr := range got {
		if sr.RowOffset == 1 { // docID 20, absent from term:1's postings
			zeroRow = true
			require.Equal(t, float32(0), sr.Score)
		}
	}
	require.True(t, zeroRow, "row for docID 20 must still be present at score 0")
}
