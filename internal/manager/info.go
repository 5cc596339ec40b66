package manager

import "github.com/PinkuburuCC/dbgmgr/internal/engine"

// EngineInfo is a read-only snapshot of one attached engine record,
// exposed so an external inspector (the cmd/dbgctl watch TUI, or any
// other observer) can answer "what is this engine doing" without
// reaching into manager internals (SPEC_FULL.md §11 "Exception snapshot
// access").
type EngineInfo struct {
	ProcessID int
	RuntimeID engine.RuntimeID
	State     engine.State
	StartKind engine.StartKind
	DebugTags []string
	ThreadID  string

	exception *engine.Exception
}

// Exception returns the stashed exception this engine last reported, or
// nil if it is not currently paused on one (spec.md §3 invariant:
// non-nil only while State == Paused).
func (ei EngineInfo) Exception() *engine.Exception {
	return ei.exception
}

// Engines returns a snapshot of every currently-attached engine.
func (m *Manager) Engines() []EngineInfo {
	infos := m.engines.Snapshot()
	out := make([]EngineInfo, len(infos))
	for i, info := range infos {
		out[i] = EngineInfo{
			ProcessID: info.ProcessID,
			RuntimeID: engine.RuntimeID(info.RuntimeIDOf()),
			State:     info.State,
			StartKind: info.StartKind,
			DebugTags: info.DebugTags,
			ThreadID:  info.ThreadID,
			exception: info.Exception,
		}
	}
	return out
}
