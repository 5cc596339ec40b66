// Package dbglock provides the single-instance advisory file lock the
// dbgctl CLI takes before building the short-lived manager one subcommand
// runs against.
//
// This is the teacher's internal/lock package (raw syscall.Flock,
// Unix-only) rebuilt on gofrs/flock so the same call works cross-platform
// without a build-tagged file per OS.
package dbglock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock wraps an advisory file lock held for the lifetime of a session.
type Lock struct {
	fl *flock.Flock
}

// TryAcquire attempts a non-blocking exclusive lock on path. It reports
// (lock, true, nil) on success and (nil, false, nil) if another process
// already holds it.
func TryAcquire(path string) (*Lock, bool, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("dbglock: acquiring %s: %w", path, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{fl: fl}, true, nil
}

// Release unlocks and closes the underlying file. Safe to call on a nil
// *Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
