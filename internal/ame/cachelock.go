package ame

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// cacheLock is an advisory flock on the recipe cache root. Concurrent runs
// are not prevented, only reported.
type cacheLock struct {
	f *os.File
}

// tryLockCache takes the lock without blocking. busy is true when another
// process holds it; the returned lock is nil in that case.
func tryLockCache(cacheDir string) (lock *cacheLock, busy bool, err error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("creating cache dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cacheDir, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return &cacheLock{f: f}, false, nil
}

func (l *cacheLock) Release() {
	if l == nil {
		return
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}
