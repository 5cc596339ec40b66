package manager

import (
	"errors"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
	"github.com/PinkuburuCC/dbgmgr/internal/parallel"
	"github.com/PinkuburuCC/dbgmgr/internal/process"
)

// RunAll runs every engine currently in state Paused (spec.md §4.6). Like
// Start, it never blocks the caller: the actual state mutation is posted
// onto the dispatcher (spec.md §4.1 "All mutations... originate on this
// thread").
func (m *Manager) RunAll() {
	m.dispatcher.Post(func() {
		m.runInfos(m.engines.Snapshot())
	})
}

// Run resumes engines targeting pid. If the BreakAllProcesses setting is
// on, it is upgraded to RunAll (spec.md §4.6).
func (m *Manager) Run(pid int) {
	if m.settings.BreakAllProcesses {
		m.RunAll()
		return
	}
	m.dispatcher.Post(func() {
		m.runInfos(m.engines.ForProcess(pid))
	})
}

// runInfos implements the per-engine Run sequence spec.md §4.6
// describes: drain the stashed exception, mark Running, notify the
// process roll-up, call engine.Run(). The whole batch is aborted,
// untouched, if a BreakAll fence is active (no partial resume).
func (m *Manager) runInfos(infos []*engine.Info) {
	if m.breakAllActive() {
		return
	}

	var toRun []*engine.Info
	for _, info := range infos {
		if info.State == engine.StatePaused {
			toRun = append(toRun, info)
		}
	}
	if len(toRun) == 0 {
		return
	}

	touched := make(map[int]bool)
	for _, info := range toRun {
		info.Exception = nil
		info.State = engine.StateRunning
		touched[info.ProcessID] = true
	}
	for pid := range touched {
		if proc, ok := m.processes.Get(pid); ok {
			proc.State = process.JoinState(m.pausedFlagsForProcess(pid))
		}
	}

	m.recomputeAndRaise()

	parallel.Execute(toRun, len(toRun), func(info *engine.Info) error {
		info.Engine.Run()
		return nil
	})
}

// BreakAll instantiates a BreakAllHelper (at most one at a time) that
// drives every currently-Running engine to Paused (spec.md §4.6).
func (m *Manager) BreakAll() {
	m.dispatcher.Post(m.initiateBreakAll)
}

// Break pauses every engine targeting pid (spec.md §4.6 "Per-process ...
// break ... operate only on engine records whose process == process.").
func (m *Manager) Break(pid int) {
	m.dispatcher.Post(func() {
		var targets []*engine.Info
		for _, info := range m.engines.ForProcess(pid) {
			if info.State != engine.StatePaused {
				targets = append(targets, info)
			}
		}
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			info.Engine.Break()
			return nil
		})
	})
}

// Detach detaches every engine targeting pid.
func (m *Manager) Detach(pid int) {
	m.dispatcher.Post(func() {
		targets := m.engines.ForProcess(pid)
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			info.Engine.Detach()
			return nil
		})
	})
}

// Terminate terminates every engine targeting pid.
func (m *Manager) Terminate(pid int) {
	m.dispatcher.Post(func() {
		targets := m.engines.ForProcess(pid)
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			info.Engine.Terminate()
			return nil
		})
	})
}

// StopDebuggingAll detaches or terminates every attached engine
// (spec.md §4.6): detach when the owning process was attached to rather
// than launched, terminate otherwise.
func (m *Manager) StopDebuggingAll() {
	m.dispatcher.Post(func() {
		targets := m.engines.Snapshot()
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			m.stopOneEngine(info)
			return nil
		})
	})
}

// TerminateAll terminates every attached engine unconditionally.
func (m *Manager) TerminateAll() {
	m.dispatcher.Post(func() {
		targets := m.engines.Snapshot()
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			info.Engine.Terminate()
			return nil
		})
	})
}

// DetachAll detaches every attached engine unconditionally.
func (m *Manager) DetachAll() {
	m.dispatcher.Post(func() {
		targets := m.engines.Snapshot()
		parallel.Execute(targets, len(targets), func(info *engine.Info) error {
			info.Engine.Detach()
			return nil
		})
	})
}

// CanDetachWithoutTerminating is the conjunction over engines of their
// CanDetach (spec.md §4.6).
func (m *Manager) CanDetachWithoutTerminating() bool {
	for _, info := range m.engines.Snapshot() {
		if !info.Engine.CanDetach() {
			return false
		}
	}
	return true
}

// CanDetachProcessWithoutTerminating answers CanDetachWithoutTerminating's
// question for a single process (SPEC_FULL.md §11): the original exposes
// this per-process so a UI can decide whether closing one process's tab
// needs a terminate-confirmation dialog, without asking about every other
// attached process too.
func (m *Manager) CanDetachProcessWithoutTerminating(pid int) bool {
	for _, info := range m.engines.ForProcess(pid) {
		if !info.Engine.CanDetach() {
			return false
		}
	}
	return true
}

func (m *Manager) stopOneEngine(info *engine.Info) {
	shouldDetach := info.StartKind == engine.StartAttach
	if proc, ok := m.processes.Get(info.ProcessID); ok {
		shouldDetach = proc.ShouldDetach
	}
	if shouldDetach {
		info.Engine.Detach()
	} else {
		info.Engine.Terminate()
	}
}

// RestartBlockReason names why Restart is currently unavailable
// (SPEC_FULL.md §11: the original exposes this instead of a bare bool so
// a UI can gray out the restart action with a tooltip).
type RestartBlockReason int

const (
	// RestartAvailable means CanRestart's bool is true; the reason is
	// meaningless and should not be displayed.
	RestartAvailable RestartBlockReason = iota
	RestartBlockedNoOptions
	RestartBlockedBreakAllActive
	RestartBlockedStopDebuggingActive
)

func (r RestartBlockReason) String() string {
	switch r {
	case RestartBlockedNoOptions:
		return "no restart options recorded yet"
	case RestartBlockedBreakAllActive:
		return "a BreakAll is in progress"
	case RestartBlockedStopDebuggingActive:
		return "a stop-debugging sequence is in progress"
	default:
		return "restart is available"
	}
}

// CanRestart reports whether Restart is currently valid (spec.md §4.6):
// no BreakAll active, no StopDebugging active, and at least one restart
// option recorded. The second return names which of those conditions is
// blocking it when the first is false (SPEC_FULL.md §11).
func (m *Manager) CanRestart() (bool, RestartBlockReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.breakAll != nil {
		return false, RestartBlockedBreakAllActive
	}
	if m.stopDebugging != nil {
		return false, RestartBlockedStopDebuggingActive
	}
	if len(m.restartOptions) == 0 {
		return false, RestartBlockedNoOptions
	}
	return true, RestartAvailable
}

// Restart drives a graceful stop of every engine, then re-issues Start
// for every recorded restart option (spec.md §4.6). The re-issued Start
// calls are posted, not inline, so Restart does not reenter the
// ProcessesChanged emission its own stop sequence is still producing.
func (m *Manager) Restart() error {
	m.mu.Lock()
	if m.breakAll != nil || m.stopDebugging != nil {
		m.mu.Unlock()
		return errors.New("dbgmgr: restart is not valid while BreakAll or StopDebugging is active")
	}
	if len(m.restartOptions) == 0 {
		m.mu.Unlock()
		return errors.New("dbgmgr: no restart options recorded")
	}
	snapshot := make([]any, len(m.restartOptions))
	copy(snapshot, m.restartOptions)
	m.mu.Unlock()

	m.dispatcher.Post(func() {
		m.startStopDebugging(func(timedOut bool) {
			if timedOut {
				m.WriteMessage(events.ManagerMessageCouldNotBreak, "restart: stop-debugging timed out, engines remain attached")
				return
			}
			for _, opt := range snapshot {
				opt := opt
				m.dispatcher.Post(func() {
					if err := m.Start(opt); err != nil {
						m.WriteMessage(events.ManagerMessageCouldNotConnect, err.Error())
					}
				})
			}
		})
	})
	return nil
}
