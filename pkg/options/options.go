// Package options provides data structures and functions for configuring a
// recollex index. It defines the parameters that control recollex's storage
// layout, cache sizing, manifest-lock behavior, and query-gating profiles
// (rag, paraphrase_hp, recent), following the functional-options pattern.
package options

import (
	"strings"
	"time"
)

// WithDefaultOptions applies a predefined set of default configuration values.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		*o = opts
	}
}

// WithDataDir sets the primary data directory for the index.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithSegmentDir sets the subdirectory used to store segment directories.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// WithSegmentPrefix sets the directory-name prefix for segments.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentOptions.Prefix = prefix
		}
	}
}

// WithSegmentSize sets the row-buffer byte threshold that triggers a flush.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// WithManifestLockTimeout overrides the manifest lock acquisition timeout.
func WithManifestLockTimeout(d time.Duration) OptionFunc {
	return func(o *Options) {
		if d > 0 {
			o.ManifestLockTimeout = d
		}
	}
}

// WithBitmapCacheSize overrides the deserialized-bitmap LRU entry count.
func WithBitmapCacheSize(entries int) OptionFunc {
	return func(o *Options) {
		if entries > 0 {
			o.Caches.BitmapEntries = entries
		}
	}
}

// WithSegmentReaderCacheSize overrides the open-SegmentReader LRU entry count.
func WithSegmentReaderCacheSize(entries int) OptionFunc {
	return func(o *Options) {
		if entries > 0 {
			o.Caches.SegmentReaderEntries = entries
		}
	}
}

// WithCSRCache sets Caches.CSREntries and Caches.CSRBytes. No CSR-matrix
// LRU is built from these values; nothing outside Options reads them.
func WithCSRCache(entries int, bytes int64) OptionFunc {
	return func(o *Options) {
		o.Caches.CSREntries = entries
		o.Caches.CSRBytes = bytes
	}
}

// WithScorerKernelThreshold overrides the candidate-set size at which the
// scorer switches from the accumulator kernel to the slice kernel.
func WithScorerKernelThreshold(tau int) OptionFunc {
	return func(o *Options) {
		if tau > 0 {
			o.ScorerKernelThreshold = tau
		}
	}
}

// WithProfile registers or overwrites a named gating-knob preset.
func WithProfile(name string, knobs GatingKnobs) OptionFunc {
	return func(o *Options) {
		if name == "" {
			return
		}
		if o.Profiles == nil {
			o.Profiles = make(map[string]GatingKnobs)
		}
		o.Profiles[name] = knobs
	}
}

// Profile looks up a named gating preset, falling back to "rag" if the name
// is unknown.
func (o *Options) Profile(name string) GatingKnobs {
	if knobs, ok := o.Profiles[name]; ok {
		return knobs
	}
	return o.Profiles["rag"]
}

// Merge applies a caller's per-call knob overrides over a profile preset,
// returning a new GatingKnobs. Zero-value fields in overrides are treated as
// "not set" except for Recency, which is only ever taken from the base profile.
func Merge(base GatingKnobs, overrides GatingKnobs) GatingKnobs {
	merged := base
	if overrides.MinMust != 0 {
		merged.MinMust = overrides.MinMust
	}
	if overrides.ShouldCap != 0 {
		merged.ShouldCap = overrides.ShouldCap
	}
	if overrides.Budget != 0 {
		merged.Budget = overrides.Budget
	}
	if overrides.DFDropTopPercent != 0 {
		merged.DFDropTopPercent = overrides.DFDropTopPercent
	}
	return merged
}
