package filesys

import (
	"os"
	"path/filepath"
)

// FsyncFile fsyncs an already-open file, leaving it open.
func FsyncFile(f *os.File) error {
	return f.Sync()
}

// FsyncPath opens path, fsyncs it, and closes it. Used for directories
// (segments/, the index root) after a rename, since the rename itself isn't
// guaranteed durable until the containing directory's entry is synced too.
func FsyncPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// AtomicRename renames oldPath to newPath and fsyncs the parent directory
// afterward, so the rename is durable even across a crash. Both segment
// publication (seg_XXX.tmp -> seg_XXX) and manifest publication
// (manifest.tmp -> manifest.json) go through this.
func AtomicRename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	return FsyncPath(filepath.Dir(newPath))
}

// WriteFileFsync writes contents to path, fsyncs the file, closes it, and
// returns. It does not rename — callers that need atomic publish write to a
// .tmp path with this function, then call AtomicRename.
func WriteFileFsync(path string, permission os.FileMode, contents []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, permission)
	if err != nil {
		return err
	}
	if _, err := f.Write(contents); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
