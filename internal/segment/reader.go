package segment

import (
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/chrsbats/recollex/pkg/errors"
)

// CsrView is a compact, read-only slice of rows gathered from a segment,
// used directly by the scorer's slice kernel.
type CsrView struct {
	Indptr  []int64
	Indices []int32
	Data    []float32
	RowIDs  []uint64
}

// RowCount returns the number of rows in the view.
func (v CsrView) RowCount() int {
	if len(v.Indptr) == 0 {
		return 0
	}
	return len(v.Indptr) - 1
}

// Row returns the term indices and weights for row i within the view.
func (v CsrView) Row(i int) ([]int32, []float32) {
	start, end := v.Indptr[i], v.Indptr[i+1]
	return v.Indices[start:end], v.Data[start:end]
}

// Reader opens a segment directory's four array files read-only, memory
// mapped, and answers row/doc_id lookups without copying the payload.
type Reader struct {
	indptr  *mappedArray
	indices *mappedArray
	data    *mappedArray
	rowIDs  *mappedArray

	rowIDSlice []uint64 // cached typed view, sorted ascending by construction

	// refs starts at 1, held by whoever opened the reader (the engine's
	// segment-reader LRU). Acquire/Release let an in-flight query pin the
	// reader past an LRU eviction, so a concurrent Compact rewriting this
	// segment can't unmap its mmap'd slices out from under a running scorer.
	refs atomic.Int32
}

// OpenReader mmaps every array file under dir (a published segment
// directory, e.g. ".../segments/seg_00003").
func OpenReader(dir string) (*Reader, error) {
	indptr, err := openMappedArray(filepath.Join(dir, "indptr"), dtypeInt64)
	if err != nil {
		return nil, err
	}
	indices, err := openMappedArray(filepath.Join(dir, "indices"), dtypeInt32)
	if err != nil {
		indptr.Close()
		return nil, err
	}
	data, err := openMappedArray(filepath.Join(dir, "data"), dtypeFloat32)
	if err != nil {
		indptr.Close()
		indices.Close()
		return nil, err
	}
	rowIDs, err := openMappedArray(filepath.Join(dir, "row_ids"), dtypeUint64)
	if err != nil {
		indptr.Close()
		indices.Close()
		data.Close()
		return nil, err
	}

	r := &Reader{indptr: indptr, indices: indices, data: data, rowIDs: rowIDs}
	r.rowIDSlice = rowIDs.uint64Slice()
	r.refs.Store(1)

	if int64(r.RowCount())+1 != int64(len(indptr.int64Slice())) {
		r.Close()
		return nil, errors.NewArrayHeaderError(nil, dir, "indptr length does not match row_ids length+1")
	}
	return r, nil
}

// RowCount returns the number of rows in the segment.
func (r *Reader) RowCount() int {
	return len(r.rowIDSlice)
}

// DocIDAt returns the doc_id stored at the given row offset.
func (r *Reader) DocIDAt(row uint32) uint64 {
	return r.rowIDSlice[row]
}

// RowOf returns the row offset for a doc_id via binary search over the
// sorted row_ids array, or false if absent in this segment.
func (r *Reader) RowOf(docID uint64) (uint32, bool) {
	ids := r.rowIDSlice
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= docID })
	if i < len(ids) && ids[i] == docID {
		return uint32(i), true
	}
	return 0, false
}

// SliceRows gathers the given row offsets into a compact CsrView, used by
// the scorer's slice kernel. Offsets need not be sorted or contiguous.
func (r *Reader) SliceRows(offsets []uint32) CsrView {
	indptrAll := r.indptr.int64Slice()
	indicesAll := r.indices.int32Slice()
	dataAll := r.data.float32Slice()

	view := CsrView{
		Indptr: make([]int64, 0, len(offsets)+1),
		RowIDs: make([]uint64, 0, len(offsets)),
	}
	view.Indptr = append(view.Indptr, 0)

	for _, row := range offsets {
		start, end := indptrAll[row], indptrAll[row+1]
		view.Indices = append(view.Indices, indicesAll[start:end]...)
		view.Data = append(view.Data, dataAll[start:end]...)
		view.Indptr = append(view.Indptr, int64(len(view.Indices)))
		view.RowIDs = append(view.RowIDs, r.rowIDSlice[row])
	}
	return view
}

// Acquire pins the reader for the duration of one query, so a concurrent
// Close (from an LRU eviction or compaction) won't unmap its array files
// until the query calls Release.
func (r *Reader) Acquire() {
	r.refs.Add(1)
}

// Release undoes one Acquire, unmapping the underlying array files once the
// last reference (including the LRU's own) is released.
func (r *Reader) Release() error {
	if r.refs.Add(-1) > 0 {
		return nil
	}
	return r.unmap()
}

// Close drops the LRU's own reference — the one held since OpenReader.
// Safe to call once; the segment-reader LRU's eviction callback calls this.
func (r *Reader) Close() error {
	return r.Release()
}

func (r *Reader) unmap() error {
	var err error
	for _, a := range []*mappedArray{r.indptr, r.indices, r.data, r.rowIDs} {
		if a == nil {
			continue
		}
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
