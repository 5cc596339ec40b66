package dbgcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PinkuburuCC/dbgmgr/internal/dbgconfig"
	"github.com/PinkuburuCC/dbgmgr/internal/dbglock"
	"github.com/PinkuburuCC/dbgmgr/internal/demoengine"
	"github.com/PinkuburuCC/dbgmgr/internal/manager"
)

// lockFilePath is the advisory-lock marker every dbgctl invocation
// acquires before it opens its own manager (SPEC_FULL.md §10): the Go
// analogue of the single-process assumption the original DbgManager
// lived inside, since a real IDE only ever runs one of these at a time.
func lockFilePath() string {
	return filepath.Join(os.TempDir(), "dbgmgr-dbgctl.lock")
}

// session bundles a short-lived Manager with the resources a subcommand
// needs to release on exit (the advisory lock and the manager's own
// dispatcher).
type session struct {
	mgr  *manager.Manager
	lock *dbglock.Lock
}

// newSession acquires the single-instance lock, loads settings, and
// constructs a Manager with the internal/demoengine provider registered
// (SPEC_FULL.md §10).
func newSession() (*session, error) {
	lock, ok, err := dbglock.TryAcquire(lockFilePath())
	if err != nil {
		return nil, fmt.Errorf("dbgctl: acquiring session lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("dbgctl: another dbgctl session is already running (lock held at %s)", lockFilePath())
	}

	settings, err := dbgconfig.Load(configPath)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("dbgctl: loading settings: %w", err)
	}

	mgr := manager.New(os.Getpid(), settings, nil)
	mgr.AddProvider(demoengine.NewProvider(9000))

	return &session{mgr: mgr, lock: lock}, nil
}

// Close releases the manager and the session lock, in that order.
func (s *session) Close() {
	s.mgr.Shutdown()
	s.lock.Release()
}
