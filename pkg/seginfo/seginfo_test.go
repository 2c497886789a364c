package seginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	name := GenerateName(7, "seg")
	require.Equal(t, "seg_00007", name)

	id, err := ParseSegmentID(name, "seg")
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)
}

func TestTmpName(t *testing.T) {
	require.Equal(t, "seg_00007.tmp", TmpName(7, "seg"))
}

func TestParseSegmentIDWrongPrefix(t *testing.T) {
	_, err := ParseSegmentID("other_00001", "seg")
	require.Error(t, err)
}

func TestListSegmentDirsExcludesTmp(t *testing.T) {
	dataDir := t.TempDir()
	segDir := "segments"
	root := filepath.Join(dataDir, segDir)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "seg_00001"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "seg_00002.tmp"), 0755))

	dirs, err := ListSegmentDirs(dataDir, segDir, "seg")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	require.Contains(t, dirs[0], "seg_00001")
}

func TestListOrphanTmpDirs(t *testing.T) {
	dataDir := t.TempDir()
	segDir := "segments"
	root := filepath.Join(dataDir, segDir)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "seg_00001"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "seg_00002.tmp"), 0755))

	dirs, err := ListOrphanTmpDirs(dataDir, segDir, "seg")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	require.Contains(t, dirs[0], "seg_00002.tmp")
}

func TestNextSegmentIDEmptyIsOne(t *testing.T) {
	id, err := NextSegmentID(nil, "seg")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestNextSegmentIDPicksMaxPlusOne(t *testing.T) {
	id, err := NextSegmentID([]string{"seg_00001", "seg_00005", "seg_00003"}, "seg")
	require.NoError(t, err)
	require.Equal(t, uint64(6), id)
}
