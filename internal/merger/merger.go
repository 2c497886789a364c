// Package merger performs the k-way top-k merge across segment score
// batches, plus the recency-profile variant that orders by seq instead of
// score.
package merger

import (
	"container/heap"
	"sort"
)

// Record is one scored candidate, fully resolved (doc_id, seq) so the
// merger's tie-breaks don't need a second lookup pass.
type Record struct {
	DocID     uint64
	SegmentID string
	RowOffset uint32
	Score     float32
	Seq       int64
}

// less reports whether a has lower merge priority than b — i.e. a is the
// one to evict first from a size-k min-heap. Primary key score ascending
// (so the heap root is the lowest score), ties broken by lower seq first,
// then higher doc_id first (the inverse of the final sort's tie-break,
// since the heap root is the first candidate to be evicted).
func less(a, b Record) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.DocID > b.DocID
}

// heapSlice implements container/heap.Interface over []Record using less.
type heapSlice []Record

func (h heapSlice) Len() int            { return len(h) }
func (h heapSlice) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h heapSlice) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x interface{}) { *h = append(*h, x.(Record)) }
func (h *heapSlice) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopKByScore maintains a min-heap of size k across every record and
// returns the sorted-descending top-k, ties broken by higher seq then
// lower doc_id (the spec's score-profile tie-break).
type TopKByScore struct {
	k int
	h heapSlice
}

// NewTopKByScore returns a merger that keeps the k highest-scoring records
// seen via Add.
func NewTopKByScore(k int) *TopKByScore {
	return &TopKByScore{k: k}
}

// Add offers one record to the running top-k.
func (m *TopKByScore) Add(r Record) {
	if m.k <= 0 {
		return
	}
	if len(m.h) < m.k {
		heap.Push(&m.h, r)
		return
	}
	if less(m.h[0], r) {
		heap.Pop(&m.h)
		heap.Push(&m.h, r)
	}
}

// Results returns the accumulated top-k sorted descending by score, ties
// broken by higher seq then lower doc_id.
func (m *TopKByScore) Results() []Record {
	out := append([]Record(nil), m.h...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq > out[j].Seq
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

// TopKByRecency selects the top-k records by seq descending, ignoring
// score (the recency profile reports score as 0.0 unless a min_score
// filter was applied upstream).
func TopKByRecency(records []Record, k int) []Record {
	sort.Slice(records, func(i, j int) bool { return records[i].Seq > records[j].Seq })
	if k > 0 && len(records) > k {
		records = records[:k]
	}
	return records
}
