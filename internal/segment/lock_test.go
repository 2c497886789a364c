package segment

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManifestLockAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := NewManifestLock(dir)

	require.NoError(t, l.Acquire(time.Second))
	require.NoError(t, l.Release())
}

func TestManifestLockSecondAcquireTimesOutWhileHeld(t *testing.T) {
	dir := t.TempDir()
	l1 := NewManifestLock(dir)
	require.NoError(t, l1.Acquire(time.Second))
	defer l1.Release()

	l2 := NewManifestLock(dir)
	err := l2.Acquire(100 * time.Millisecond)
	require.Error(t, err)
}

func TestManifestLockPidFallback(t *testing.T) {
	t.Setenv("FORCE_PID_LOCK", "1")
	dir := t.TempDir()
	l := NewManifestLock(dir)

	require.NoError(t, l.Acquire(time.Second))
	_, err := os.Stat(dir + "/.lock.pid")
	require.NoError(t, err)

	require.NoError(t, l.Release())
	_, err = os.Stat(dir + "/.lock.pid")
	require.True(t, os.IsNotExist(err))
}

func TestManifestLockPidFallbackClearsStalePid(t *testing.T) {
	t.Setenv("FORCE_PID_LOCK", "1")
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(dir+"/.lock.pid", []byte("999999999"), 0644))

	l := NewManifestLock(dir)
	require.NoError(t, l.Acquire(time.Second))
	require.NoError(t, l.Release())
}
