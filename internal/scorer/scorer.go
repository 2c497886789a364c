// Package scorer computes exact sparse dot products between a query vector
// and candidate rows of a segment, using one of two kernels chosen by
// candidate-set size. Both kernels must agree bit-exactly on the same
// input: they differ only in access pattern, not arithmetic.
package scorer

import (
	"context"
	"sort"
	"strconv"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/internal/segment"
)

// ScoredRow is one segment row's score, keyed by its row offset so the
// caller can resolve doc_id/seq/text afterward.
type ScoredRow struct {
	RowOffset uint32
	Score     float32
}

// BitmapSource resolves term postings for the accumulator kernel.
type BitmapSource interface {
	GetBitmap(ctx context.Context, name string) (*bitmap.Bitmap, error)
}

// Score computes dot products for every row offset in offsets (already
// resolved from candidate doc_ids within this segment), choosing the slice
// kernel when len(offsets) >= threshold and the accumulator kernel
// otherwise.
func Score(ctx context.Context, reader *segment.Reader, src BitmapSource, segCandidates *bitmap.Bitmap, offsets []uint32, terms []query.Term, threshold int) ([]ScoredRow, error) {
	if len(offsets) >= threshold {
		return sliceKernel(reader, offsets, terms), nil
	}
	return accumulatorKernel(ctx, reader, src, segCandidates, terms)
}

// queryVector builds a dense lookup from term id to weight, used by both
// kernels; query vectors are small (a handful of MUST/SHOULD terms) so a
// map is cheap relative to densifying the full dims-wide row.
func queryVector(terms []query.Term) map[uint32]float32 {
	qv := make(map[uint32]float32, len(terms))
	for _, t := range terms {
		qv[t.ID] = t.Weight
	}
	return qv
}

// sliceKernel gathers the candidate rows into a compact CSR view and
// computes each row's dot product against the query vector by walking its
// (already sorted) term indices.
func sliceKernel(reader *segment.Reader, offsets []uint32, terms []query.Term) []ScoredRow {
	qv := queryVector(terms)
	view := reader.SliceRows(offsets)

	out := make([]ScoredRow, 0, len(offsets))
	for i := 0; i < view.RowCount(); i++ {
		indices, data := view.Row(i)
		var score float32
		for j, idx := range indices {
			if w, ok := qv[uint32(idx)]; ok {
				score += w * data[j]
			}
		}
		out = append(out, ScoredRow{RowOffset: offsets[i], Score: score})
	}
	return out
}

// accumulatorKernel walks each query term's posting bitmap intersected with
// this segment's candidate set, resolving matching doc_ids to row offsets
// and accumulating weight*X[r,t] into a per-row score map. Preferred when
// the candidate set is small relative to the segment: it touches only the
// rows that can possibly score, rather than every candidate row's full
// index list.
func accumulatorKernel(ctx context.Context, reader *segment.Reader, src BitmapSource, segCandidates *bitmap.Bitmap, terms []query.Term) ([]ScoredRow, error) {
	scores := make(map[uint32]float32)

	// Seed every candidate row at zero first so rows with no matching
	// posting still surface in the output, matching the slice kernel's
	// row set exactly.
	segCandidates.IterSorted(func(docID uint32) bool {
		if row, ok := reader.RowOf(uint64(docID)); ok {
			scores[row] = 0
		}
		return true
	})

	for _, t := range terms {
		postings, err := src.GetBitmap(ctx, "term:"+strconv.FormatUint(uint64(t.ID), 10))
		if err != nil {
			return nil, err
		}
		matching := bitmap.Intersect(segCandidates, postings)

		matching.IterSorted(func(docID uint32) bool {
			row, ok := reader.RowOf(uint64(docID))
			if !ok {
				return true
			}
			weight := rowTermWeight(reader, row, t.ID)
			scores[row] += t.Weight * weight
			return true
		})
	}

	out := make([]ScoredRow, 0, len(scores))
	for row, score := range scores {
		out = append(out, ScoredRow{RowOffset: row, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowOffset < out[j].RowOffset })
	return out, nil
}

// rowTermWeight looks up X[row, termID] by binary-searching the row's
// sorted term indices (invariant: indices within a row are strictly
// ascending).
func rowTermWeight(reader *segment.Reader, row uint32, termID uint32) float32 {
	view := reader.SliceRows([]uint32{row})
	indices, data := view.Row(0)
	i := sort.Search(len(indices), func(i int) bool { return indices[i] >= int32(termID) })
	if i < len(indices) && indices[i] == int32(termID) {
		return data[i]
	}
	return 0
}
