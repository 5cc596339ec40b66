package manager

import (
	"fmt"

	"github.com/PinkuburuCC/dbgmgr/internal/dbgassert"
	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
	"github.com/PinkuburuCC/dbgmgr/internal/process"
)

// handleMessage is the message pump's entry point (spec.md §4.5): every
// message an engine posts arrives here, already re-posted onto the
// dispatcher. The "is this still one of ours" check absorbs the normal
// race between an engine disconnecting and a message already in flight
// from it (spec.md §7 "Lifecycle mis-match").
func (m *Manager) handleMessage(info *engine.Info, msg engine.Message) {
	if _, ok := m.engines.Find(info.Engine); !ok {
		return
	}

	switch msg.Kind {
	case engine.MsgConnected:
		m.onConnected(info, msg)
	case engine.MsgDisconnected:
		m.onDisconnected(info, msg)
	case engine.MsgBreak:
		m.onBreak(info, msg)
	case engine.MsgEntryPointBreak, engine.MsgProgramMessage, engine.MsgBreakpoint,
		engine.MsgProgramBreak, engine.MsgSetIPComplete,
		engine.MsgAppDomainLoad, engine.MsgAppDomainUnload,
		engine.MsgModuleLoad, engine.MsgModuleUnload,
		engine.MsgThreadLoad, engine.MsgThreadUnload,
		engine.MsgExceptionThrown:
		m.onConditionalBreak(info, msg)
	default:
		dbgassert.Fatalf("dbgmgr: unknown engine message kind %d", msg.Kind)
		m.WriteMessage(events.ManagerMessageUnknownEngineMessage, fmt.Sprintf("kind=%d", msg.Kind))
	}
}

// onConnected implements spec.md §4.5 "Connected".
func (m *Manager) onConnected(info *engine.Info, msg engine.Message) {
	if msg.Err != nil {
		m.WriteMessage(events.ManagerMessageCouldNotConnect, msg.Err.Error())
		m.onDisconnected(info, engine.Message{ProcessID: msg.ProcessID, RuntimeID: msg.RuntimeID})
		return
	}

	proc, createdProc := m.processes.GetOrCreate(msg.ProcessID, info.StartKind == engine.StartAttach)

	key := debugKey(msg.ProcessID, msg.RuntimeID)
	m.mu.Lock()
	if m.debuggedRuntimes[key] {
		m.mu.Unlock()
		dbgassert.Fatalf("dbgmgr: duplicate runtime (%d,%s) reported Connected", msg.ProcessID, msg.RuntimeID)
		return
	}
	m.debuggedRuntimes[key] = true
	m.mu.Unlock()

	runtime := &engine.Runtime{ID: msg.RuntimeID, ProcessID: msg.ProcessID}
	factory := &engine.ObjectFactory{RuntimeID: msg.RuntimeID}

	// The engine callback runs before the runtime is attached to its
	// process, so engine-supplied runtime data is visible once
	// RuntimeCreated is raised (spec.md §4.5, §5).
	info.Engine.OnConnected(factory, runtime)

	info.ProcessID = msg.ProcessID
	info.Runtime = runtime
	info.Factory = factory
	info.DelayedIsRunning = false
	info.ThreadID = ""
	proc.AddRuntime(msg.RuntimeID)

	if createdProc {
		m.publish(events.ProcessesChanged{Added: []int{msg.ProcessID}})
		m.publish(&events.Message{Kind: events.MessageProcessCreated, ProcessID: msg.ProcessID})
	}

	m.binder.OnConnected(msg.RuntimeID)

	runtimeMsg := &events.Message{Kind: events.MessageRuntimeCreated, ProcessID: msg.ProcessID, RuntimeID: msg.RuntimeID}
	m.publish(runtimeMsg)

	pause := msg.Flags.Pause ||
		info.BreakKind == engine.BreakKindCreateProcess ||
		m.breakAllActive() ||
		runtimeMsg.Pause

	if pause {
		info.State = engine.StatePaused
		m.recomputeAndRaise()
		m.onEnginePaused(info, true)
	} else {
		info.State = engine.StateRunning
		m.recomputeAndRaise()
		info.Engine.Run()
	}
}

// onDisconnected implements spec.md §4.5 "Disconnected (and
// failure-Connected)".
func (m *Manager) onDisconnected(info *engine.Info, msg engine.Message) {
	if _, existed := m.engines.Remove(info.Engine); !existed {
		return
	}

	removed := m.tags.Remove(info.DebugTags)

	runtimeID := info.RuntimeIDOf()
	if runtimeID == "" {
		runtimeID = msg.RuntimeID
	}
	key := debugKey(info.ProcessID, runtimeID)
	m.mu.Lock()
	delete(m.debuggedRuntimes, key)
	m.mu.Unlock()

	info.Exception = nil

	var processExited bool
	var exitCode int
	if proc, ok := m.processes.Get(info.ProcessID); ok && runtimeID != "" {
		empty := proc.RemoveRuntime(runtimeID)
		if empty && len(m.engines.ForProcess(info.ProcessID)) == 0 {
			proc.State = process.StateTerminated
			exitCode = proc.ExitCode
			m.processes.Remove(info.ProcessID)
			processExited = true
		} else if !empty {
			proc.State = process.JoinState(m.pausedFlagsForProcess(info.ProcessID))
		}
	}

	if runtimeID != "" {
		m.publish(&events.Message{Kind: events.MessageRuntimeExited, ProcessID: info.ProcessID, RuntimeID: runtimeID})
		m.binder.OnDisconnected(runtimeID)
	}

	// Enqueue the engine for closing only once its bound breakpoints are
	// unbound above: spec.md §5 "on onDisconnected, the runtime's bound
	// breakpoints are removed before the engine is closed."
	m.Close(info.Engine)

	if processExited {
		m.publish(events.ProcessesChanged{Removed: []int{info.ProcessID}})
		m.publish(&events.Message{Kind: events.MessageProcessExited, ProcessID: info.ProcessID, Text: fmt.Sprintf("exit=%d", exitCode)})
	}

	m.notifyBreakAllEngineGone(info.Engine)
	m.notifyStopDebuggingEngineGone(info.Engine)

	if len(removed) > 0 {
		m.publish(events.DebugTagsChanged{Removed: removed})
	}
	m.recomputeAndRaise()

	if m.engines.Len() == 0 {
		m.publish(events.IsDebuggingChanged{Value: false})
		m.mu.Lock()
		m.restartOptions = nil
		m.mu.Unlock()
	}

	m.mu.Lock()
	wasFocus := m.currentProcessID == info.ProcessID
	if wasFocus {
		m.currentProcessID = 0
		m.currentThreadID = ""
	}
	m.mu.Unlock()
	if wasFocus {
		m.reselectFocus()
	}
}

// reselectFocus adopts any remaining process as the UI focus after the
// previously-focused one disconnected (spec.md §4.5: "If the
// disconnected engine was the current process/thread focus, reselect.").
// Which one is adopted when several remain is not specified; the first
// in registry order is as good as any other.
func (m *Manager) reselectFocus() {
	procs := m.processes.Snapshot()
	if len(procs) == 0 {
		return
	}
	m.mu.Lock()
	m.currentProcessID = procs[0].ID
	m.mu.Unlock()
}

// onBreak implements spec.md §4.5 "Break".
func (m *Manager) onBreak(info *engine.Info, msg engine.Message) {
	if msg.Err != nil {
		m.WriteMessage(events.ManagerMessageCouldNotBreak, msg.Err.Error())
		return
	}

	wasPaused := info.State == engine.StatePaused
	info.State = engine.StatePaused
	info.ThreadID = msg.ThreadID

	if proc, ok := m.processes.Get(info.ProcessID); ok {
		proc.State = process.JoinState(m.pausedFlagsForProcess(info.ProcessID))
	}

	m.recomputeAndRaise()
	m.notifyBreakAllEngineBreaked(info.Engine)
	m.onEnginePaused(info, !wasPaused)
}

// onConditionalBreak implements spec.md §4.5 "Conditional-break family".
func (m *Manager) onConditionalBreak(info *engine.Info, msg engine.Message) {
	switch msg.Kind {
	case engine.MsgModuleLoad:
		m.binder.OnModuleLoad(info.RuntimeIDOf(), msg.Modules)
	case engine.MsgModuleUnload:
		m.binder.OnModuleUnload(info.RuntimeIDOf(), msg.Modules)
	}

	evMsg := &events.Message{
		Kind:      msgKindFromEngineKind(msg.Kind),
		ProcessID: info.ProcessID,
		RuntimeID: info.RuntimeIDOf(),
		Text:      msg.Text,
		Pause:     msg.Flags.Pause,
	}
	m.publish(evMsg)

	wasPaused := info.State == engine.StatePaused

	pause := msg.Flags.Pause || evMsg.Pause || m.breakAllActive()
	if !pause && wasPaused && !msg.Flags.Continue {
		pause = true
	}
	if msg.Kind == engine.MsgProgramBreak && !m.settings.IgnoreBreakInstructions && !msg.Flags.Continue {
		pause = true
	}
	if msg.Kind == engine.MsgSetIPComplete && !msg.Flags.Continue {
		pause = true
	}

	if pause {
		info.State = engine.StatePaused
		if info.Exception == nil && msg.Exception != nil {
			info.Exception = msg.Exception
		}
		m.recomputeAndRaise()
		m.onEnginePaused(info, pause && !wasPaused)
		return
	}

	info.Exception = nil
	if wasPaused && msg.Flags.Continue {
		// Runtime pre-continue hook: nothing beyond the exception clear
		// is modeled here, since the manager does not own runtime state
		// (spec.md §1 Non-goals).
	}
	info.State = engine.StateRunning
	m.recomputeAndRaise()
	info.Engine.Run()
}

func msgKindFromEngineKind(k engine.MessageKind) events.MessageKind {
	switch k {
	case engine.MsgEntryPointBreak:
		return events.MessageEntryPointBreak
	case engine.MsgProgramMessage:
		return events.MessageProgramMessage
	case engine.MsgBreakpoint:
		return events.MessageBreakpointHit
	case engine.MsgProgramBreak:
		return events.MessageProgramBreak
	case engine.MsgSetIPComplete:
		return events.MessageSetIPComplete
	case engine.MsgAppDomainLoad:
		return events.MessageAppDomainLoaded
	case engine.MsgAppDomainUnload:
		return events.MessageAppDomainUnloaded
	case engine.MsgModuleLoad:
		return events.MessageModuleLoaded
	case engine.MsgModuleUnload:
		return events.MessageModuleUnloaded
	case engine.MsgThreadLoad:
		return events.MessageThreadLoaded
	case engine.MsgThreadUnload:
		return events.MessageThreadUnloaded
	case engine.MsgExceptionThrown:
		return events.MessageExceptionThrown
	default:
		return events.MessageUser
	}
}

// onEnginePaused implements spec.md §4.5 "onEnginePaused".
func (m *Manager) onEnginePaused(info *engine.Info, setCurrentProcess bool) {
	proc, ok := m.processes.Get(info.ProcessID)
	if !ok {
		return
	}
	proc.State = process.JoinState(m.pausedFlagsForProcess(info.ProcessID))

	m.mu.Lock()
	adopt := setCurrentProcess && m.currentProcessID == 0
	if adopt {
		m.currentProcessID = info.ProcessID
		m.currentThreadID = info.ThreadID
	}
	breakAllProcesses := m.settings.BreakAllProcesses
	m.mu.Unlock()

	m.recomputeAndRaise()

	if breakAllProcesses {
		m.initiateBreakAll()
	}

	if adopt {
		m.publish(events.ProcessPaused{ProcessID: info.ProcessID, ThreadID: info.ThreadID})
	}
}

func (m *Manager) breakAllActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breakAll != nil
}
