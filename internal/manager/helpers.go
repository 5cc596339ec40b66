package manager

import (
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/parallel"
)

// stopDebuggingTimeout bounds how long Restart waits for every engine to
// report Disconnected before giving up (spec.md §5: "StopDebuggingHelper
// has an internal timeout; if it fails to observe a clean stop, Restart
// notifies the user and aborts.").
const stopDebuggingTimeout = 10 * time.Second

// breakAllHelper tracks outstanding Break requests issued by BreakAll and
// completes when every target engine has reported Paused or disconnected
// (spec.md §4.6, §9). At most one instance exists on the manager at a
// time; its lifecycle is driven entirely from the dispatcher thread, so
// it needs no locking of its own.
type breakAllHelper struct {
	outstanding map[engine.Engine]bool
}

func newBreakAllHelper(targets []*engine.Info) *breakAllHelper {
	h := &breakAllHelper{outstanding: make(map[engine.Engine]bool, len(targets))}
	for _, info := range targets {
		h.outstanding[info.Engine] = true
	}
	return h
}

func (h *breakAllHelper) markDone(e engine.Engine) (complete bool) {
	delete(h.outstanding, e)
	return len(h.outstanding) == 0
}

// initiateBreakAll constructs a breakAllHelper over every currently-
// Running engine and issues Break to each (spec.md §4.6 "breakAll()
// instantiates a BreakAllHelper (at most one) that tracks outstanding
// Break requests to every currently-Running engine..."). A second call
// while one is already active is a no-op: at most one instance exists.
func (m *Manager) initiateBreakAll() {
	m.mu.Lock()
	if m.breakAll != nil {
		m.mu.Unlock()
		return
	}

	var targets []*engine.Info
	for _, info := range m.engines.Snapshot() {
		if info.State == engine.StateRunning {
			targets = append(targets, info)
		}
	}
	if len(targets) == 0 {
		m.mu.Unlock()
		return
	}
	m.breakAll = newBreakAllHelper(targets)
	m.mu.Unlock()

	parallel.Execute(targets, len(targets), func(info *engine.Info) error {
		info.Engine.Break()
		return nil
	})
}

// notifyBreakAllEngineBreaked reports that e has finished transitioning
// to Paused, completing the active BreakAllHelper if e was its last
// outstanding target.
func (m *Manager) notifyBreakAllEngineBreaked(e engine.Engine) {
	m.completeBreakAllTarget(e)
}

// notifyBreakAllEngineGone reports that e disconnected while a
// BreakAllHelper was outstanding for it; a disconnected engine counts as
// resolved (spec.md §4.6 "...completes when all have reported paused (or
// disconnected).").
func (m *Manager) notifyBreakAllEngineGone(e engine.Engine) {
	m.completeBreakAllTarget(e)
}

func (m *Manager) completeBreakAllTarget(e engine.Engine) {
	m.mu.Lock()
	h := m.breakAll
	if h == nil {
		m.mu.Unlock()
		return
	}
	if h.markDone(e) {
		m.breakAll = nil
	}
	m.mu.Unlock()
}

// stopDebuggingHelper drives Restart's graceful-stop phase: it tracks
// every attached engine until each has disconnected, or until
// stopDebuggingTimeout elapses, whichever comes first (spec.md §4.6, §5,
// §9). At most one instance exists at a time.
type stopDebuggingHelper struct {
	outstanding map[engine.Engine]bool
	timer       *time.Timer
	onComplete  func(timedOut bool)
}

// startStopDebugging instantiates a stopDebuggingHelper over every
// currently-attached engine, drives each toward Detach or Terminate per
// stopOneEngine, and invokes onComplete exactly once: with timedOut=false
// once every engine has disconnected, or timedOut=true if
// stopDebuggingTimeout elapses first.
func (m *Manager) startStopDebugging(onComplete func(timedOut bool)) {
	m.mu.Lock()
	if m.stopDebugging != nil {
		m.mu.Unlock()
		return
	}
	infos := m.engines.Snapshot()
	outstanding := make(map[engine.Engine]bool, len(infos))
	for _, info := range infos {
		outstanding[info.Engine] = true
	}
	h := &stopDebuggingHelper{outstanding: outstanding, onComplete: onComplete}
	m.stopDebugging = h
	m.mu.Unlock()

	if len(outstanding) == 0 {
		m.completeStopDebugging(h, false)
		return
	}

	h.timer = time.AfterFunc(stopDebuggingTimeout, func() {
		m.dispatcher.Post(func() {
			m.completeStopDebugging(h, true)
		})
	})

	for _, info := range infos {
		m.stopOneEngine(info)
	}
}

// notifyStopDebuggingEngineGone reports that e disconnected while a
// stopDebuggingHelper was waiting on it.
func (m *Manager) notifyStopDebuggingEngineGone(e engine.Engine) {
	m.mu.Lock()
	h := m.stopDebugging
	if h == nil {
		m.mu.Unlock()
		return
	}
	delete(h.outstanding, e)
	done := len(h.outstanding) == 0
	m.mu.Unlock()
	if done {
		m.completeStopDebugging(h, false)
	}
}

func (m *Manager) completeStopDebugging(h *stopDebuggingHelper, timedOut bool) {
	m.mu.Lock()
	if m.stopDebugging != h {
		m.mu.Unlock()
		return
	}
	m.stopDebugging = nil
	m.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	if h.onComplete != nil {
		h.onComplete(timedOut)
	}
}
