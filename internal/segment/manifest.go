// Package segment implements the on-disk CSR segment format: array files,
// segment readers and writers, and the manifest that orders them.
package segment

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/chrsbats/recollex/pkg/errors"
	"github.com/chrsbats/recollex/pkg/filesys"
)

// ManifestVersion is the only manifest schema version this build understands.
const ManifestVersion = 1

// SegmentRecord names one segment directory and the half-open global row
// range it owns. Rows ranges across Segments are contiguous and define
// segment read order — not the directory listing.
type SegmentRecord struct {
	Name string    `json:"name"`
	Rows [2]uint64 `json:"rows"` // [start_row, end_row_exclusive)
}

// RowCount returns the number of rows this segment contributes.
func (s SegmentRecord) RowCount() uint64 {
	return s.Rows[1] - s.Rows[0]
}

// Manifest enumerates every published segment and declares the index-wide
// dims. Unknown fields are ignored on read; readers reject Version != 1.
type Manifest struct {
	Version  int             `json:"version"`
	Dims     uint32          `json:"dims"`
	Segments []SegmentRecord `json:"segments"`
}

// TotalRows returns one past the highest global row number across every
// segment, or 0 if the manifest has no segments.
func (m *Manifest) TotalRows() uint64 {
	if len(m.Segments) == 0 {
		return 0
	}
	return m.Segments[len(m.Segments)-1].Rows[1]
}

// ManifestPath returns the canonical manifest.json path for an index directory.
func ManifestPath(dataDir string) string {
	return filepath.Join(dataDir, "manifest.json")
}

// ReadManifest loads and validates manifest.json. A missing file returns an
// empty, dims-0 manifest (the state of a freshly created index before its
// first segment).
func ReadManifest(dataDir string) (*Manifest, error) {
	path := ManifestPath(dataDir)
	exists, err := filesys.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &Manifest{Version: ManifestVersion}, nil
	}

	raw, err := filesys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.NewManifestCorruptionError(err, path)
	}
	if m.Version != ManifestVersion {
		return nil, errors.NewManifestVersionError(path, m.Version)
	}
	return &m, nil
}

// WriteManifest performs a full rewrite: write manifest.tmp, fsync, rename
// to manifest.json. Callers must hold the manifest lock.
func WriteManifest(dataDir string, m *Manifest) error {
	m.Version = ManifestVersion
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := ManifestPath(dataDir)
	tmpPath := path + ".tmp"
	if err := filesys.WriteFileFsync(tmpPath, 0644, raw); err != nil {
		return err
	}
	if err := filesys.AtomicRename(tmpPath, path); err != nil {
		return errors.ClassifyRenameError(err, tmpPath, path)
	}
	return nil
}
