// Package fsutil provides the atomic staging/promote/lock primitives every
// mutating operation in the system is built on: nothing is
// ever written in place, and cross-process coordination is advisory only,
// never load-bearing for correctness.
package fsutil

import (
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/nightlyone/lockfile"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// NewStagingDir creates a fresh, uniquely-named directory under tmpRoot
// suitable for building up a download or install before promotion.
func NewStagingDir(tmpRoot turbopath.AbsoluteSystemPath) (turbopath.AbsoluteSystemPath, error) {
	if err := os.MkdirAll(tmpRoot.ToString(), fs.DirPermissions); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(tmpRoot.ToString(), "stage-")
	if err != nil {
		return "", err
	}
	return turbopath.AbsoluteSystemPathFromUpstream(dir), nil
}

// Promote atomically moves a staging path into its final location,
// removing any pre-existing destination first. On Windows, a rename
// that fails with a permission error (commonly a virus scanner or
// indexer holding a handle open) is retried with Fibonacci backoff for
// roughly 28 seconds before giving up.
func Promote(logger hclog.Logger, from, to turbopath.AbsoluteSystemPath) error {
	if err := os.MkdirAll(to.Dir().ToString(), fs.DirPermissions); err != nil {
		return err
	}
	if fs.PathExists(to.ToString()) {
		if err := os.RemoveAll(to.ToString()); err != nil {
			return err
		}
	}
	if runtime.GOOS != "windows" {
		return os.Rename(from.ToString(), to.ToString())
	}
	return renameWithFibonacciBackoff(logger, from, to)
}

// renameWithFibonacciBackoff retries a rename with fibonacci-spaced
// delays summing to roughly 28 seconds before the rename is treated as
// a fatal filesystem error. Virus scanners and indexers on Windows hold
// transient locks on freshly-written files.
func renameWithFibonacciBackoff(logger hclog.Logger, from, to turbopath.AbsoluteSystemPath) error {
	delays := fibonacciMillis(28 * time.Second)
	var lastErr error
	for i, d := range delays {
		lastErr = os.Rename(from.ToString(), to.ToString())
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, os.ErrPermission) {
			return lastErr
		}
		if logger != nil {
			logger.Debug("rename retry", "attempt", i+1, "from", from.ToString(), "to", to.ToString())
		}
		time.Sleep(d)
	}
	return lastErr
}

func fibonacciMillis(budget time.Duration) []time.Duration {
	var delays []time.Duration
	a, b := 10*time.Millisecond, 10*time.Millisecond
	var total time.Duration
	for total < budget {
		delays = append(delays, a)
		total += a
		a, b = b, a+b
	}
	return delays
}

// Discard removes a staging directory that was abandoned because of
// failure; never fatal, since the caller already has the real error to
// report and a left-behind staging dir is cleaned up on next invocation
// anyway.
func Discard(path turbopath.AbsoluteSystemPath) {
	_ = os.RemoveAll(path.ToString())
}

// Lock is a cross-process advisory lock. Acquisition failure is never
// fatal to a caller — correctness never depends on it — but
// callers should log the failure so concurrent progress output doesn't
// look corrupted.
type Lock struct {
	lf lockfile.Lockfile
}

// AcquireLock attempts to take the named advisory lock, logging but not
// failing the caller's operation if it cannot.
func AcquireLock(logger hclog.Logger, path turbopath.AbsoluteSystemPath) (*Lock, bool) {
	lf, err := lockfile.New(path.ToString())
	if err != nil {
		if logger != nil {
			logger.Warn("could not construct lockfile", "path", path.ToString(), "error", err)
		}
		return nil, false
	}
	// lockfile.TryLock treats a lock owned by this very pid as success,
	// which would let one process hold the lock twice.
	if owner, err := lf.GetOwner(); err == nil && owner.Pid == os.Getpid() {
		if logger != nil {
			logger.Debug("lock already held by this process", "path", path.ToString())
		}
		return nil, false
	}
	if err := lf.TryLock(); err != nil {
		if logger != nil {
			logger.Debug("lock already held, proceeding without it", "path", path.ToString(), "error", err)
		}
		return nil, false
	}
	return &Lock{lf: lf}, true
}

// Release gives up the lock. A nil receiver (the no-lock case) is a no-op.
func (l *Lock) Release(logger hclog.Logger) {
	if l == nil {
		return
	}
	if err := l.lf.Unlock(); err != nil && logger != nil {
		logger.Debug("failed to release lock", "error", err)
	}
}

// ScrubTmp removes every entry under tmpRoot; called at the top of
// mutating operations to clean up crashed-and-abandoned staging dirs.
func ScrubTmp(tmpRoot turbopath.AbsoluteSystemPath) error {
	entries, err := os.ReadDir(tmpRoot.ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(tmpRoot.Join(turbopath.RelativeSystemPathFromUpstream(e.Name())).ToString()); err != nil {
			return err
		}
	}
	return nil
}
