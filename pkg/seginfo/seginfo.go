// Package seginfo names and discovers segment directories on disk.
//
// Filename format: prefix_NNNNN (e.g. "seg_00001", "seg_00042"). Unlike the
// flat, timestamp-suffixed segment files this package originally named,
// recollex segments are directories (each holding indptr/indices/data/row_ids)
// and manifest.json — not directory-listing order — is the authoritative
// source of segment ordering. This package's job is narrower: name the next
// segment directory, and discover segment directories present on disk so
// recollex can reconcile them against the manifest at open (garbage
// collecting orphans left behind by a crash mid-flush).
package seginfo

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrsbats/recollex/pkg/filesys"
)

// GenerateName returns the directory name for segment sequence number id,
// e.g. GenerateName(7, "seg") == "seg_00007".
func GenerateName(id uint64, prefix string) string {
	return fmt.Sprintf("%s_%05d", prefix, id)
}

// TmpName returns the in-progress name a segment directory is built under
// before being atomically renamed into place on publish.
func TmpName(id uint64, prefix string) string {
	return GenerateName(id, prefix) + ".tmp"
}

// ParseSegmentID extracts the sequence number from a segment directory name.
func ParseSegmentID(name, prefix string) (uint64, error) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, prefix+"_") {
		return 0, fmt.Errorf("segment directory %q does not start with prefix %q", name, prefix)
	}

	idStr := strings.TrimPrefix(name, prefix+"_")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment id from %q: %w", name, err)
	}
	return id, nil
}

// ListSegmentDirs returns the full paths of every published segment
// directory (prefix_NNNNN, no .tmp suffix) under dataDir/segmentDir.
func ListSegmentDirs(dataDir, segmentDir, prefix string) ([]string, error) {
	pattern := filepath.Join(dataDir, segmentDir, prefix+"_[0-9]*")
	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list segment directories with pattern %s: %w", pattern, err)
	}

	dirs := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasSuffix(m, ".tmp") {
			continue
		}
		dirs = append(dirs, m)
	}
	return dirs, nil
}

// ListOrphanTmpDirs returns the full paths of every unpublished seg_XXX.tmp
// directory under dataDir/segmentDir — left behind when a flush is killed
// between writing the tmp directory and the rename that publishes it.
func ListOrphanTmpDirs(dataDir, segmentDir, prefix string) ([]string, error) {
	pattern := filepath.Join(dataDir, segmentDir, prefix+"_*.tmp")
	return filesys.ReadDir(pattern)
}

// NextSegmentID returns one past the highest sequence number among the given
// published segment directory paths, or 1 if none exist.
func NextSegmentID(dirPaths []string, prefix string) (uint64, error) {
	var max uint64
	for _, p := range dirPaths {
		id, err := ParseSegmentID(p, prefix)
		if err != nil {
			return 0, err
		}
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}
