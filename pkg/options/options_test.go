package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptionsPopulatesDefaults(t *testing.T) {
	o := NewDefaultOptions()
	require.Equal(t, DefaultDataDir, o.DataDir)
	require.Equal(t, DefaultSegmentSize, o.SegmentOptions.Size)
	require.Equal(t, DefaultScorerKernelThreshold, o.ScorerKernelThreshold)
	require.Contains(t, o.Profiles, "rag")
	require.Contains(t, o.Profiles, "recent")
}

func TestWithSegmentSizeRejectsOutOfRange(t *testing.T) {
	o := NewDefaultOptions()
	WithSegmentSize(1)(&o) // below MinSegmentSize, ignored
	require.Equal(t, DefaultSegmentSize, o.SegmentOptions.Size)

	WithSegmentSize(8 * 1024 * 1024)(&o)
	require.Equal(t, uint64(8*1024*1024), o.SegmentOptions.Size)
}

func TestWithDataDirTrimsAndIgnoresEmpty(t *testing.T) {
	o := NewDefaultOptions()
	WithDataDir("  /tmp/idx  ")(&o)
	require.Equal(t, "/tmp/idx", o.DataDir)

	WithDataDir("   ")(&o)
	require.Equal(t, "/tmp/idx", o.DataDir) // unchanged by blank input
}

func TestWithManifestLockTimeoutIgnoresNonPositive(t *testing.T) {
	o := NewDefaultOptions()
	WithManifestLockTimeout(-1 * time.Second)(&o)
	require.Equal(t, DefaultManifestLockTimeout, o.ManifestLockTimeout)

	WithManifestLockTimeout(5 * time.Second)(&o)
	require.Equal(t, 5*time.Second, o.ManifestLockTimeout)
}

func TestProfileFallsBackToRag(t *testing.T) {
	o := NewDefaultOptions()
	require.Equal(t, o.Profiles["rag"], o.Profile("unknown"))
	require.Equal(t, o.Profiles["recent"], o.Profile("recent"))
}

func TestWithProfileRegistersCustomPreset(t *testing.T) {
	o := NewDefaultOptions()
	custom := GatingKnobs{MinMust: 5, ShouldCap: 10, Budget: 99, DFDropTopPercent: 1}
	WithProfile("custom", custom)(&o)
	require.Equal(t, custom, o.Profile("custom"))
}

func TestMergeOverridesOnlyNonZeroFields(t *testing.T) {
	base := GatingKnobs{MinMust: 1, ShouldCap: 2, Budget: 3, DFDropTopPercent: 4, Recency: true}
	overrides := GatingKnobs{Budget: 100}

	merged := Merge(base, overrides)
	require.Equal(t, 1, merged.MinMust)
	require.Equal(t, 2, merged.ShouldCap)
	require.Equal(t, 100, merged.Budget)
	require.Equal(t, 4.0, merged.DFDropTopPercent)
	require.True(t, merged.Recency) // Recency always comes from the base profile
}
