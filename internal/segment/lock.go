package segment

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/chrsbats/recollex/pkg/errors"
	"github.com/chrsbats/recollex/pkg/filesys"
)

// ManifestLock guards manifest reads/writes and segment publication across
// processes. Readers never take it; only the single writer per index
// directory does, around the segment-rename + manifest-rename + metadata
// commit sequence.
type ManifestLock struct {
	path     string
	pidPath  string
	usePid   bool
	fl       *flock.Flock
	pidFile  *os.File
	acquired bool
}

// NewManifestLock builds a lock rooted at dataDir/.lock. Set FORCE_PID_LOCK=1
// to force the sidecar pidfile fallback instead of native advisory locking,
// for filesystems that don't support it.
func NewManifestLock(dataDir string) *ManifestLock {
	path := dataDir + "/.lock"
	return &ManifestLock{
		path:    path,
		pidPath: path + ".pid",
		usePid:  os.Getenv("FORCE_PID_LOCK") == "1",
		fl:      flock.New(path),
	}
}

// Acquire blocks until the lock is held or timeout elapses, whichever comes
// first. Returns a LockError on timeout or native-lock failure.
func (l *ManifestLock) Acquire(timeout time.Duration) error {
	if l.usePid {
		return l.acquirePid(timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok, err := l.fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return errors.NewLockError(err, errors.ErrorCodeLockFailed, "failed to acquire manifest lock").WithLockPath(l.path).WithWaited(timeout)
	}
	if !ok {
		return errors.NewLockTimeoutError(l.path, timeout)
	}
	l.acquired = true
	return nil
}

// acquirePid implements the sidecar-pidfile fallback: create .lock.pid
// exclusively, writing our pid. Non-reentrant, and relies on cooperating
// processes checking for a stale pid rather than true OS-level exclusion.
func (l *ManifestLock) acquirePid(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(l.pidPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d", os.Getpid())
			f.Close()
			l.pidFile = f
			l.acquired = true
			return nil
		}
		if !os.IsExist(err) {
			return errors.NewLockError(err, errors.ErrorCodeLockFailed, "failed to create pid lock file").WithLockPath(l.pidPath)
		}
		if l.stalePid() {
			filesys.DeleteFile(l.pidPath)
			continue
		}
		if time.Now().After(deadline) {
			return errors.NewLockTimeoutError(l.pidPath, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// stalePid reports whether the pid named in the sidecar file no longer
// corresponds to a running process.
func (l *ManifestLock) stalePid() bool {
	raw, err := filesys.ReadFile(l.pidPath)
	if err != nil {
		return true
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}

// Release drops the lock, removing the sidecar pidfile if that fallback was used.
func (l *ManifestLock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if l.usePid {
		return filesys.DeleteFile(l.pidPath)
	}
	return l.fl.Unlock()
}
