package dbgcmd

import (
	"fmt"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/demoengine"
	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

// startTimeout bounds how long a subcommand waits for its demo sessions
// to report Connected before giving up.
const startTimeout = 5 * time.Second

// startDemoSessions issues count Start calls against a fresh demo
// session and blocks until every one of them has connected (reported a
// MessageRuntimeCreated) or startTimeout elapses.
func startDemoSessions(s *session, count int, kind engine.StartKind) error {
	connected := make(chan struct{}, count)
	unsub := s.mgr.Subscribe(func(ev events.Event) {
		if msg, ok := ev.(*events.Message); ok && msg.Kind == events.MessageRuntimeCreated {
			connected <- struct{}{}
		}
	})
	defer unsub()

	for i := 0; i < count; i++ {
		opts := demoengine.Options{Tags: demoengine.RandomTags(), Kind: kind}
		if err := s.mgr.Start(opts); err != nil {
			return fmt.Errorf("dbgctl: starting demo session %d: %w", i, err)
		}
	}

	deadline := time.After(startTimeout)
	for i := 0; i < count; i++ {
		select {
		case <-connected:
		case <-deadline:
			return fmt.Errorf("dbgctl: timed out waiting for %d demo session(s) to connect", count)
		}
	}
	return nil
}

// waitForIsRunning blocks until s.mgr.IsRunning() equals want, or
// timeout elapses.
func waitForIsRunning(s *session, want events.RunState, timeout time.Duration) bool {
	if s.mgr.IsRunning() == want {
		return true
	}
	ch := make(chan struct{}, 1)
	unsub := s.mgr.Subscribe(func(ev events.Event) {
		if v, ok := ev.(events.IsRunningChanged); ok && v.Value == want {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	if s.mgr.IsRunning() == want {
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// waitForIsDebugging blocks until s.mgr.IsDebugging() equals want, or
// timeout elapses.
func waitForIsDebugging(s *session, want bool, timeout time.Duration) bool {
	if s.mgr.IsDebugging() == want {
		return true
	}
	ch := make(chan struct{}, 1)
	unsub := s.mgr.Subscribe(func(ev events.Event) {
		if v, ok := ev.(events.IsDebuggingChanged); ok && v.Value == want {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	if s.mgr.IsDebugging() == want {
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
