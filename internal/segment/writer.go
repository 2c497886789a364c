package segment

import (
	"path/filepath"

	"github.com/chrsbats/recollex/pkg/errors"
	"github.com/chrsbats/recollex/pkg/filesys"
	"github.com/chrsbats/recollex/pkg/seginfo"
)

// Writer accumulates CSR rows in memory until Flush materializes them as a
// new segment directory. One Writer corresponds to one in-flight segment;
// callers create a new Writer after each successful flush.
type Writer struct {
	indptr  []int64 // length rows+1, indptr[0] == 0
	indices []int32
	data    []float32
	rowIDs  []uint64
}

// NewWriter returns an empty row buffer.
func NewWriter() *Writer {
	return &Writer{indptr: []int64{0}}
}

// AddRow appends one row's sparse entries. indices must be strictly
// ascending and below dims; callers validate before calling AddRow.
func (w *Writer) AddRow(docID uint64, indices []int32, data []float32) {
	w.indices = append(w.indices, indices...)
	w.data = append(w.data, data...)
	w.indptr = append(w.indptr, w.indptr[len(w.indptr)-1]+int64(len(indices)))
	w.rowIDs = append(w.rowIDs, docID)
}

// Rows returns the number of rows buffered so far.
func (w *Writer) Rows() int {
	return len(w.rowIDs)
}

// EstimatedBytes approximates the CSR payload size, used to decide when to
// flush against the configured segment size threshold.
func (w *Writer) EstimatedBytes() uint64 {
	return uint64(len(w.indptr)*8 + len(w.indices)*4 + len(w.data)*4 + len(w.rowIDs)*8)
}

// Flush materializes the buffered rows as a new segment directory under
// dataDir/segmentDir, named by id and prefix. It writes into a .tmp
// directory, fsyncs every array file, then atomically renames the
// directory into place. The caller is responsible for appending the
// returned record to the manifest under the manifest lock.
func (w *Writer) Flush(dataDir, segmentDir, prefix string, id uint64, startRow uint64) (SegmentRecord, error) {
	name := seginfo.GenerateName(id, prefix)
	tmpName := seginfo.TmpName(id, prefix)
	segRoot := filepath.Join(dataDir, segmentDir)
	tmpPath := filepath.Join(segRoot, tmpName)
	finalPath := filepath.Join(segRoot, name)

	if err := filesys.CreateDir(tmpPath, 0755, true); err != nil {
		return SegmentRecord{}, errors.ClassifyDirectoryCreationError(err, tmpPath)
	}

	if err := w.writeArrays(tmpPath); err != nil {
		filesys.DeleteDir(tmpPath)
		return SegmentRecord{}, err
	}

	if err := filesys.AtomicRename(tmpPath, finalPath); err != nil {
		return SegmentRecord{}, errors.ClassifyRenameError(err, tmpPath, finalPath)
	}

	rows := uint64(w.Rows())
	return SegmentRecord{Name: name, Rows: [2]uint64{startRow, startRow + rows}}, nil
}

func (w *Writer) writeArrays(dir string) error {
	if err := writeArrayFile(filepath.Join(dir, "indptr"), dtypeInt64, uint64(len(w.indptr)), int64sToBytes(w.indptr)); err != nil {
		return err
	}
	if err := writeArrayFile(filepath.Join(dir, "indices"), dtypeInt32, uint64(len(w.indices)), int32sToBytes(w.indices)); err != nil {
		return err
	}
	if err := writeArrayFile(filepath.Join(dir, "data"), dtypeFloat32, uint64(len(w.data)), float32sToBytes(w.data)); err != nil {
		return err
	}
	if err := writeArrayFile(filepath.Join(dir, "row_ids"), dtypeUint64, uint64(len(w.rowIDs)), uint64sToBytes(w.rowIDs)); err != nil {
		return err
	}
	return nil
}
