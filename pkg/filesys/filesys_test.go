package filesys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateDirForceIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, CreateDir(dir, 0755, true))
	require.NoError(t, CreateDir(dir, 0755, true))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestCreateDirRejectsExistingFileEvenWithForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := CreateDir(path, 0755, true)
	require.ErrorIs(t, err, ErrIsNotDir)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(dir)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteReadDeleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, WriteFile(path, 0644, []byte("hello")))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, DeleteFile(path))
	ok, err := Exists(path)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAtomicRenamePublishesFile(t *testing.T) {
	dir := t.TempDir()
	tmpPath := filepath.Join(dir, "manifest.tmp")
	finalPath := filepath.Join(dir, "manifest.json")

	require.NoError(t, WriteFileFsync(tmpPath, 0644, []byte(`{"version":1}`)))
	require.NoError(t, AtomicRename(tmpPath, finalPath))

	got, err := ReadFile(finalPath)
	require.NoError(t, err)
	require.Equal(t, `{"version":1}`, string(got))

	ok, err := Exists(tmpPath)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteDirRemovesContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "victim")
	require.NoError(t, CreateDir(dir, 0755, true))
	require.NoError(t, WriteFile(filepath.Join(dir, "f"), 0644, []byte("x")))

	require.NoError(t, DeleteDir(dir))
	ok, err := Exists(dir)
	require.NoError(t, err)
	require.False(t, ok)
}
