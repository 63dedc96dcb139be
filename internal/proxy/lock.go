package proxy

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/westvm/westvm/internal/fingerprint"
)

// baseLockName is the lock file standing for the whole builds base.
// Per-fingerprint operations hold it shared; removing the entire base
// holds it exclusive, so a base-wide removal never interleaves with an
// in-flight build.
const baseLockName = "builds.lock"

// buildLock is a host-side advisory lock serializing the operations that
// mutate build directories. Two concurrent invocations against the same
// project queue up instead of interleaving pristine removal, compilation,
// and cleanup; distinct fingerprints use distinct lock files and never
// contend.
type buildLock struct {
	files []*os.File
}

func openLocked(lockDir, name string, how int) (*os.File, error) {
	path := filepath.Join(lockDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return f, nil
}

// acquireBuildLock takes the base lock shared and fp's lock exclusive,
// blocking until any concurrent holder releases them. lockDir is created
// on first use.
func acquireBuildLock(lockDir string, fp fingerprint.Fingerprint) (*buildLock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	base, err := openLocked(lockDir, baseLockName, unix.LOCK_SH)
	if err != nil {
		return nil, err
	}
	own, err := openLocked(lockDir, fp.String()+".lock", unix.LOCK_EX)
	if err != nil {
		base.Close()
		return nil, err
	}
	return &buildLock{files: []*os.File{own, base}}, nil
}

// acquireBaseLock takes the base lock exclusive, blocking until every
// per-fingerprint holder has drained.
func acquireBaseLock(lockDir string) (*buildLock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := openLocked(lockDir, baseLockName, unix.LOCK_EX)
	if err != nil {
		return nil, err
	}
	return &buildLock{files: []*os.File{f}}, nil
}

// release drops the locks. The lock files themselves are left in place;
// removing them would race with a waiter that already opened them.
func (l *buildLock) release() {
	for _, f := range l.files {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}
}
