package options

import "time"

const (
	// DefaultDataDir is the default base directory where a recollex index
	// stores its data files, if no other directory is given at open time.
	DefaultDataDir = "/var/lib/recollex"

	// Represents the minimum allowed size for a segment flush in bytes (4MB).
	MinSegmentSize uint64 = 4 * 1024 * 1024

	// Represents the maximum allowed size for a segment flush in bytes (2GB).
	MaxSegmentSize uint64 = 2 * 1024 * 1024 * 1024

	// DefaultSegmentSize is the default row-buffer flush threshold (64MB of
	// estimated CSR payload) before a new segment is materialized.
	DefaultSegmentSize uint64 = 64 * 1024 * 1024

	// DefaultSegmentDirectory is the default subdirectory within the index
	// directory where segment directories (seg_XXX/) are stored.
	DefaultSegmentDirectory = "segments"

	// DefaultSegmentPrefix is the default prefix for segment directory names.
	DefaultSegmentPrefix = "seg"

	// DefaultManifestLockTimeout bounds how long a writer waits to acquire
	// the cross-process manifest lock before failing loudly.
	DefaultManifestLockTimeout = 30 * time.Second

	// DefaultBitmapCacheSize is the default entry count of the metadata
	// store's deserialized-bitmap LRU.
	DefaultBitmapCacheSize = 256

	// DefaultSegmentReaderCacheSize is the default entry count of the
	// open-SegmentReader LRU.
	DefaultSegmentReaderCacheSize = 64

	// DefaultCSRCacheEntries is the default entry count of the materialized
	// CSR-matrix LRU.
	DefaultCSRCacheEntries = 128

	// DefaultCSRCacheBytes is the default byte cap of the materialized
	// CSR-matrix LRU: 512 MiB.
	DefaultCSRCacheBytes int64 = 512 * 1024 * 1024

	// DefaultScorerKernelThreshold is the candidate-set size at or above
	// which the slice kernel is preferred over the accumulator kernel.
	DefaultScorerKernelThreshold = 64
)

// segmentOptions configures how the segment writer batches and names flushes.
type segmentOptions struct {
	// Size is the in-memory row-buffer byte threshold that triggers a flush.
	//
	//  - Default: 64MB
	//  - Minimum: 4MB
	//  - Maximum: 2GB
	Size uint64 `json:"flushSize"`

	// Directory is the subdirectory (relative to DataDir) holding segment directories.
	//
	// Default: "segments"
	Directory string `json:"directory"`

	// Prefix is the directory-name prefix for segments: "prefix_NNNNN".
	//
	// Default: "seg"
	Prefix string `json:"prefix"`
}

// cacheOptions configures the in-process LRUs shared across queries.
// CSREntries and CSRBytes are stored here but no cache reads them: the
// engine builds no CSR-matrix LRU.
type cacheOptions struct {
	BitmapEntries        int   `json:"bitmapEntries"`
	SegmentReaderEntries  int   `json:"segmentReaderEntries"`
	CSREntries           int   `json:"csrEntries"`
	CSRBytes             int64 `json:"csrBytes"`
}

// GatingKnobs is a named preset of filter-policy/candidate-supplier/rank-merger
// knobs applied together as a query profile.
type GatingKnobs struct {
	MinMust           int     `json:"minMust"`
	ShouldCap         int     `json:"shouldCap"`
	Budget            int     `json:"budget"`
	DFDropTopPercent  float64 `json:"dfDropTopPercent"`
	Recency           bool    `json:"recency"`
}

var defaultProfiles = map[string]GatingKnobs{
	"rag": {
		MinMust: 0, ShouldCap: 200, Budget: 150_000, DFDropTopPercent: 0.5,
	},
	"paraphrase_hp": {
		MinMust: 3, ShouldCap: 24, Budget: 10_000, DFDropTopPercent: 3.0,
	},
	"recent": {
		Recency: true,
	},
}

// Options holds recollex's full configuration surface.
type Options struct {
	// DataDir is the base path where the index directory lives.
	//
	// Default: "/var/lib/recollex"
	DataDir string `json:"dataDir"`

	// ManifestLockTimeout bounds how long a flush waits on the manifest lock.
	//
	// Default: 30s
	ManifestLockTimeout time.Duration `json:"manifestLockTimeout"`

	// SegmentOptions configures segment batching and naming.
	SegmentOptions *segmentOptions `json:"segmentOptions"`

	// Caches configures the bitmap/segment-reader/CSR LRUs.
	Caches *cacheOptions `json:"caches"`

	// ScorerKernelThreshold is the candidate-set size at or above which the
	// scorer prefers the slice kernel over the accumulator kernel.
	ScorerKernelThreshold int `json:"scorerKernelThreshold"`

	// Profiles maps profile name to its gating knobs; WithProfile registers or
	// replaces a named preset.
	Profiles map[string]GatingKnobs `json:"profiles"`
}

// OptionFunc is a function type that modifies recollex's configuration.
type OptionFunc func(*Options)

// NewDefaultOptions returns a fresh Options populated with every default.
func NewDefaultOptions() Options {
	profiles := make(map[string]GatingKnobs, len(defaultProfiles))
	for name, knobs := range defaultProfiles {
		profiles[name] = knobs
	}

	return Options{
		DataDir:             DefaultDataDir,
		ManifestLockTimeout: DefaultManifestLockTimeout,
		SegmentOptions: &segmentOptions{
			Size:      DefaultSegmentSize,
			Directory: DefaultSegmentDirectory,
			Prefix:    DefaultSegmentPrefix,
		},
		Caches: &cacheOptions{
			BitmapEntries:        DefaultBitmapCacheSize,
			SegmentReaderEntries: DefaultSegmentReaderCacheSize,
			CSREntries:           DefaultCSRCacheEntries,
			CSRBytes:             DefaultCSRCacheBytes,
		},
		ScorerKernelThreshold: DefaultScorerKernelThreshold,
		Profiles:              profiles,
	}
}
