// Package filesys provides the small set of file-system utilities recollex's
// storage layer builds on: directory creation, existence checks, glob-based
// directory listing, and plain read/write/delete. Atomic publish (tmp-write,
// fsync, rename) lives in atomic.go.
package filesys

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && err == nil {
		return &os.PathError{Op: "mkdir", Path: dirPath, Err: os.ErrExist}
	}
	if !force && !os.IsNotExist(err) {
		return err
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	return os.Chmod(dirPath, permission)
}

// DeleteDir deletes a directory and all its contents recursively.
func DeleteDir(path string) error {
	return os.RemoveAll(path)
}

// ReadDir reads the directory specified by `dirName` and returns a list of
// matching file paths. `dirName` may contain glob patterns (e.g. "segments/seg_*").
func ReadDir(dirName string) ([]string, error) {
	return filepath.Glob(dirName)
}

// WriteFile writes the provided `contents` to the file at `filePath` with the
// given `permission`. If the file does not exist, it will be created. If it
// exists, it will be truncated.
func WriteFile(filePath string, permission os.FileMode, contents []byte) error {
	return os.WriteFile(filePath, contents, permission)
}

// DeleteFile deletes the file at the specified `filePath`.
func DeleteFile(filePath string) error {
	return os.Remove(filePath)
}

// ReadFile reads the entire content of the file at `filePath` into a byte slice.
func ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(filePath)
}

// Exists checks if a file or directory at the given `path` exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
