// Each CSR array (indptr, indices, data, row_ids) is written as a standalone
// file: a small fixed binary header, then a raw little-endian payload of the
// declared dtype and length. This mirrors the manual
// encoding/binary field-at-a-time framing the weaviate example segment format
// uses for its own binary layout, adapted to a fixed-size header (magic,
// dtype, length) instead of a parsed text dict, since recollex has exactly
// four known dtypes and no need for numpy's general-purpose header grammar.
package segment

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/chrsbats/recollex/pkg/errors"
	"github.com/edsrzf/mmap-go"
)

// dtype tags the payload's element type.
type dtype uint8

const (
	dtypeInt64   dtype = 1 // indptr
	dtypeInt32   dtype = 2 // indices
	dtypeFloat32 dtype = 3 // data
	dtypeUint64  dtype = 4 // row_ids
)

func (d dtype) elemSize() int {
	switch d {
	case dtypeInt64, dtypeUint64:
		return 8
	case dtypeInt32, dtypeFloat32:
		return 4
	default:
		return 0
	}
}

// arrayMagic identifies a recollex array file; arrayHeaderSize is fixed so
// the payload offset never requires parsing.
const (
	arrayMagic      uint32 = 0x5243_5831 // "RCX1"
	arrayHeaderSize        = 16          // magic(4) + dtype(1) + pad(3) + length(8)
)

// writeArrayHeader writes the fixed header: magic, dtype, and element count
// (not byte count — readers compute payload size as length*elemSize).
func writeArrayHeader(f *os.File, dt dtype, length uint64) error {
	var hdr [arrayHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], arrayMagic)
	hdr[4] = byte(dt)
	binary.LittleEndian.PutUint64(hdr[8:16], length)
	_, err := f.Write(hdr[:])
	return err
}

// readArrayHeader validates and parses the fixed header at the start of data.
func readArrayHeader(path string, data []byte, want dtype) (length uint64, err error) {
	if len(data) < arrayHeaderSize {
		return 0, errors.NewArrayHeaderError(nil, path, "file shorter than header")
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != arrayMagic {
		return 0, errors.NewArrayHeaderError(nil, path, fmt.Sprintf("bad magic 0x%x", magic))
	}
	got := dtype(data[4])
	if got != want {
		return 0, errors.NewArrayHeaderError(nil, path, fmt.Sprintf("dtype %d, want %d", got, want))
	}
	length = binary.LittleEndian.Uint64(data[8:16])
	wantBytes := arrayHeaderSize + int(length)*want.elemSize()
	if len(data) != wantBytes {
		return 0, errors.NewArrayHeaderError(nil, path, fmt.Sprintf("payload is %d bytes, header declares %d", len(data)-arrayHeaderSize, wantBytes-arrayHeaderSize))
	}
	return length, nil
}

// writeArrayFile writes a complete array file (header + payload) to path,
// fsyncing before close. Callers that need atomic publish write to a .tmp
// path and rename the containing segment directory afterward.
func writeArrayFile(path string, dt dtype, length uint64, payload []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.ClassifyFileOpenError(err, path, path)
	}
	defer f.Close()

	if err := writeArrayHeader(f, dt, length); err != nil {
		return errors.ClassifyFileOpenError(err, path, path)
	}
	if _, err := f.Write(payload); err != nil {
		return errors.ClassifyFileOpenError(err, path, path)
	}
	if err := f.Sync(); err != nil {
		return errors.ClassifySyncError(err, path, path, int64(len(payload)))
	}
	return nil
}

// mappedArray is an open, read-only memory-mapped array file.
type mappedArray struct {
	m      mmap.MMap
	length uint64
}

// openMappedArray mmaps path read-only and validates its header.
func openMappedArray(path string, want dtype) (*mappedArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to mmap array file").WithPath(path)
	}

	length, err := readArrayHeader(path, m, want)
	if err != nil {
		m.Unmap()
		return nil, err
	}

	return &mappedArray{m: m, length: length}, nil
}

func (a *mappedArray) payload() []byte {
	return a.m[arrayHeaderSize:]
}

func (a *mappedArray) Close() error {
	return a.m.Unmap()
}

// int64Slice, int32Slice, float32Slice, uint64Slice reinterpret a mapped
// array's little-endian payload as a typed Go slice without copying. This
// assumes a little-endian host, true of every platform recollex targets
// (amd64, arm64); a big-endian build would need an explicit decode pass.
func (a *mappedArray) int64Slice() []int64 {
	return unsafeReinterpret[int64](a.payload(), int(a.length))
}

func (a *mappedArray) int32Slice() []int32 {
	return unsafeReinterpret[int32](a.payload(), int(a.length))
}

func (a *mappedArray) float32Slice() []float32 {
	return unsafeReinterpret[float32](a.payload(), int(a.length))
}

func (a *mappedArray) uint64Slice() []uint64 {
	return unsafeReinterpret[uint64](a.payload(), int(a.length))
}
