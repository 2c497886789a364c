package segment

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestSegment(t *testing.T, dataDir string) SegmentRecord {
	t.Helper()
	w := NewWriter()
	w.AddRow(10, []int32{1, 3, 5}, []float32{0.1, 0.2, 0.3})
	w.AddRow(20, []int32{2, 3}, []float32{0.4, 0.5})
	w.AddRow(30, []int32{1}, []float32{0.6})

	record, err := w.Flush(dataDir, "segments", "seg", 1, 0)
	require.NoError(t, err)
	require.Equal(t, "seg_00001", record.Name)
	require.Equal(t, uint64(3), record.RowCount())
	return record
}

func TestWriterFlushAndReaderRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	record := writeTestSegment(t, dataDir)

	reader, err := OpenReader(dataDir + "/segments/" + record.Name)
	require.NoError(t, err)
	defer reader.Close()

	require.Equal(t, 3, reader.RowCount())
	require.Equal(t, uint64(10), reader.DocIDAt(0))
	require.Equal(t, uint64(30), reader.DocIDAt(2))

	row, ok := reader.RowOf(20)
	require.True(t, ok)
	require.Equal(t, uint32(1), row)

	_, ok = reader.RowOf(999)
	require.False(t, ok)
}

func TestSliceRowsGathersRequestedOffsets(t *testing.T) {
	dataDir := t.TempDir()
	record := writeTestSegment(t, dataDir)

	reader, err := OpenReader(dataDir + "/segments/" + record.Name)
	require.NoError(t, err)
	defer reader.Close()

	view := reader.SliceRows([]uint32{2, 0})
	require.Equal(t, 2, view.RowCount())

	indices, data := view.Row(0)
	require.Equal(t, []int32{1}, indices)
	require.Equal(t, []float32{0.6}, data)

	indices, data = view.Row(1)
	require.Equal(t, []int32{1, 3, 5}, indices)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, data)
}

func TestManifestReadMissingYieldsEmpty(t *testing.T) {
	dataDir := t.TempDir()
	m, err := ReadManifest(dataDir)
	require.NoError(t, err)
	require.Equal(t, ManifestVersion, m.Version)
	require.Empty(t, m.Segments)
	require.Equal(t, uint64(0), m.TotalRows())
}

func TestManifestWriteReadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	record := writeTestSegment(t, dataDir)

	m := &Manifest{Dims: 100, Segments: []SegmentRecord{record}}
	require.NoError(t, WriteManifest(dataDir, m))

	got, err := ReadManifest(dataDir)
	require.NoError(t, err)
	require.Equal(t, uint32(100), got.Dims)
	require.Equal(t, []SegmentRecord{record}, got.Segments)
	require.Equal(t, record.Rows[1], got.TotalRows())
}

func TestManifestRejectsWrongVersion(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(ManifestPath(dataDir), []byte(`{"version":2,"dims":0,"segments":[]}`), 0644))

	_, err := ReadManifest(dataDir)
	require.Error(t, err)
}

func TestOpenReaderRejectsBadMagic(t *testing.T) {
	dataDir := t.TempDir()
	record := writeTestSegment(t, dataDir)
	segDir := dataDir + "/segments/" + record.Name

	// Corrupt the magic bytes in-place; the header's dtype and length fields
	// are left alone so only the magic check should trip.
	path := segDir + "/indptr"
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = OpenReader(segDir)
	require.Error(t, err)
}

func TestOpenReaderRejectsTruncatedPayload(t *testing.T) {
	dataDir := t.TempDir()
	record := writeTestSegment(t, dataDir)
	segDir := dataDir + "/segments/" + record.Name

	path := segDir + "/data"
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-4], 0644))

	_, err = OpenReader(segDir)
	require.Error(t, err)
}
