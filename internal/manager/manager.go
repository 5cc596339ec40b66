// Package manager implements the Debug Session Manager's public facade
// (spec.md §4.4-§4.6, §6): the coordination core that owns attached
// engines, aggregates their messages into one dispatcher-serialized
// stream, tracks derived state, and exposes Start/Run/Break/Detach/
// Terminate/Restart to the rest of the application.
package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PinkuburuCC/dbgmgr/internal/breakpoint"
	"github.com/PinkuburuCC/dbgmgr/internal/closequeue"
	"github.com/PinkuburuCC/dbgmgr/internal/dbgassert"
	"github.com/PinkuburuCC/dbgmgr/internal/dbgconfig"
	"github.com/PinkuburuCC/dbgmgr/internal/dbglog"
	"github.com/PinkuburuCC/dbgmgr/internal/derived"
	"github.com/PinkuburuCC/dbgmgr/internal/dispatcher"
	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
	"github.com/PinkuburuCC/dbgmgr/internal/process"
	"github.com/PinkuburuCC/dbgmgr/internal/tags"
)

// startState is the tri-state one-time start guard spec.md §9's Open
// Questions section recommends in place of a raw {0,1,2} counter.
type startState int

const (
	notStarted startState = iota
	starting
	started
)

// Cloner lets start options defend against mutating callers (spec.md
// §4.4 step 1). Options that don't implement it are passed through
// as-is; the manager has no way to deep-copy an arbitrary value.
type Cloner interface {
	Clone() any
}

func cloneOptions(options any) any {
	if c, ok := options.(Cloner); ok {
		return c.Clone()
	}
	return options
}

func debugKey(pid int, runtimeID string) string {
	return fmt.Sprintf("%d:%s", pid, runtimeID)
}

func statesOf(infos []*engine.Info) []engine.State {
	out := make([]engine.State, len(infos))
	for i, info := range infos {
		out[i] = info.State
	}
	return out
}

// Manager is the Debug Session Manager (spec.md §1). All state mutation
// happens on its dispatcher; read-only accessors take a mutex to serve
// foreign-thread callers safely (spec.md §5).
type Manager struct {
	hostPID    int
	dispatcher *dispatcher.Dispatcher
	engines    *engine.Registry
	processes  *process.Registry
	tags       *tags.Set
	bus        *events.Bus
	closeQueue *closequeue.Queue
	binder     *breakpoint.Bridge
	settings   dbgconfig.Settings
	log        interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}

	delayedNotifier *derived.DelayedRunningNotifier

	mu               sync.Mutex
	providers        []engine.Provider
	startListeners   []func()
	moduleRefresh    ModuleRefreshNotifier
	startState       startState
	restartOptions   []any
	debuggedRuntimes map[string]bool
	cachedIsRunning  events.RunState
	currentProcessID int
	currentThreadID  string
	breakAll         *breakAllHelper
	stopDebugging    *stopDebuggingHelper
}

// ModuleRefreshNotifier is the external source of module-refresh events
// the bound-breakpoint bridge rebinds against (spec.md §4.8 "On external
// module-refresh notification: re-add bindings for the listed modules.").
// beginStart subscribes to it exactly once, during the one-time start
// initialization spec.md §4.4 step 2 describes.
type ModuleRefreshNotifier interface {
	// Subscribe registers fn to be called with (runtimeID, modules)
	// whenever the external source reports a module refresh.
	Subscribe(fn func(runtimeID string, modules []string))
}

// New creates a Manager. hostPID is the manager's own process id, used
// to refuse self-debugging (spec.md §6 canDebugRuntime).
func New(hostPID int, settings dbgconfig.Settings, binder breakpoint.Binder) *Manager {
	m := &Manager{
		hostPID:          hostPID,
		dispatcher:       dispatcher.New(),
		engines:          engine.NewRegistry(),
		processes:        process.NewRegistry(),
		tags:             tags.New(),
		bus:              events.New(),
		binder:           breakpoint.NewBridge(binder),
		settings:         settings,
		log:              dbglog.Component("manager"),
		debuggedRuntimes: make(map[string]bool),
		cachedIsRunning:  events.RunFalse,
	}
	m.closeQueue = closequeue.New(m.dispatcher.Post)
	m.delayedNotifier = derived.NewDelayedRunningNotifier(settings.Quiescence(), func() {
		m.dispatcher.Post(func() {
			m.publish(events.DelayedIsRunningChanged{Value: true})
		})
	})
	return m
}

// AddProvider registers an engine provider. Providers are walked in
// ascending Priority order on Start (spec.md §4.4, §6).
func (m *Manager) AddProvider(p engine.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

func (m *Manager) sortedProviders() []engine.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]engine.Provider, len(m.providers))
	copy(out, m.providers)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority() < out[j-1].Priority(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SetModuleRefreshNotifier records the module-refresh source beginStart
// will subscribe to (spec.md §4.4 step 2). Call it before Start; once
// Start has run, beginStart has already taken its one subscription and a
// later call has no effect until a future Manager is constructed. A nil
// notifier (the default) leaves module-refresh rebinding unavailable
// without affecting the bridge's other hooks (Connected, Disconnected,
// module load/unload).
func (m *Manager) SetModuleRefreshNotifier(n ModuleRefreshNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moduleRefresh = n
}

// AddStartListener registers fn to be invoked once, during the first call
// to Start, before any provider is consulted and whether or not one then
// accepts (spec.md §4.4 step 2).
func (m *Manager) AddStartListener(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startListeners = append(m.startListeners, fn)
}

// Subscribe registers an observer for every event the manager raises
// (spec.md §6 "Events"). The returned function unsubscribes it.
func (m *Manager) Subscribe(fn func(events.Event)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

func (m *Manager) publish(ev events.Event) {
	m.bus.Publish(ev)
}

// WriteMessage emits a DbgManagerMessage for logging consumers (spec.md
// §6).
func (m *Manager) WriteMessage(kind events.ManagerMessageKind, text string) {
	m.publish(events.ManagerMessage{Kind: kind, Text: text})
}

// IsDebugging reports whether any engine is currently attached.
func (m *Manager) IsDebugging() bool {
	return m.engines.Len() > 0
}

// IsRunning returns the cached ternary IsRunning value (spec.md §4.7).
func (m *Manager) IsRunning() events.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cachedIsRunning
}

// DebugTags returns the current debug-tag multiset snapshot.
func (m *Manager) DebugTags() []string {
	return m.tags.Snapshot()
}

// Processes returns a snapshot of currently-tracked processes.
func (m *Manager) Processes() []*process.Process {
	return m.processes.Snapshot()
}

// CanDebugRuntime reports whether (pid, runtimeID) may be newly attached
// (spec.md §6): false for the manager's own host process, and false if
// that pair is already under debugging.
func (m *Manager) CanDebugRuntime(pid int, runtimeID string) bool {
	if pid == m.hostPID {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.debuggedRuntimes[debugKey(pid, runtimeID)]
}

// Shutdown shuts down the manager's dispatcher. Any engines still
// attached are left to the caller to terminate or detach first via
// StopDebuggingAll.
func (m *Manager) Shutdown() {
	m.delayedNotifier.Stop()
	m.dispatcher.Close()
}

// Close enqueues obj for asynchronous closing (spec.md §4.9, §6
// "close(obj)"). The manager itself only ever passes an engine.Engine —
// the one DbgObject in this port that owns an actual backend resource to
// release — but the facade accepts anything Closeable so an external
// caller holding some other owned resource can ride the same coalesced
// queue. The close itself runs on the dispatcher, so it never blocks the
// caller and is always ordered with other dispatcher-thread state
// changes. A nil obj is a programmer error (spec.md §7 "closing a null
// object"), not something a caller should ever race into.
func (m *Manager) Close(obj closequeue.Closeable) {
	if obj == nil {
		dbgassert.Fatalf("dbgmgr: Close called with a nil object")
		return
	}
	m.closeQueue.Close(obj)
}

// CloseAll is Close over a batch: every non-nil obj is enqueued together
// and drained in a single dispatcher task (spec.md §4.9 "close(objs)").
func (m *Manager) CloseAll(objs []closequeue.Closeable) {
	live := make([]closequeue.Closeable, 0, len(objs))
	for _, obj := range objs {
		if obj == nil {
			dbgassert.Fatalf("dbgmgr: CloseAll called with a nil object")
			continue
		}
		live = append(live, obj)
	}
	m.closeQueue.CloseAll(live)
}

// beginStart runs the one-time start initialization exactly once across
// the manager's lifetime (spec.md §4.4 step 2): subscribe to the
// module-refresh notifier, if one was configured, then invoke every
// registered start-listener. A reentrant call arriving while
// initialization is in flight is a fatal programmer error: it can only
// happen if a start listener itself called Start.
func (m *Manager) beginStart() {
	m.mu.Lock()
	switch m.startState {
	case started:
		m.mu.Unlock()
		return
	case starting:
		m.mu.Unlock()
		dbgassert.Fatalf("dbgmgr: Start called reentrantly during start-listener initialization")
		return
	}
	m.startState = starting
	notifier := m.moduleRefresh
	listeners := make([]func(), len(m.startListeners))
	copy(listeners, m.startListeners)
	m.mu.Unlock()

	if notifier != nil {
		notifier.Subscribe(m.binder.OnModuleRefresh)
	}

	for _, fn := range listeners {
		fn()
	}

	m.mu.Lock()
	m.startState = started
	m.mu.Unlock()
}

// Start attaches a new engine (spec.md §4.4). It clones options twice,
// walks registered providers in priority order, and — if one accepts —
// posts the rest of the attach sequence onto the dispatcher before
// returning. Start itself never blocks on the dispatcher.
func (m *Manager) Start(options any) error {
	m.beginStart()

	snapshot := cloneOptions(options)
	live := cloneOptions(options)

	var chosen engine.Engine
	for _, p := range m.sortedProviders() {
		e, err := p.Create(m, live)
		if err != nil {
			return fmt.Errorf("dbgmgr: engine construction failed: %w", err)
		}
		if e != nil {
			chosen = e
			break
		}
	}
	if chosen == nil {
		return errors.New("dbgmgr: no engine provider accepted the given start options")
	}

	m.mu.Lock()
	m.restartOptions = append(m.restartOptions, snapshot)
	m.mu.Unlock()

	m.dispatcher.Post(func() {
		m.startOnDbgThread(chosen, live)
	})
	return nil
}

// Post exposes dispatcher posting to engine providers that need to queue
// follow-up work (engine.Host).
func (m *Manager) Post(fn func()) {
	m.dispatcher.Post(fn)
}

func (m *Manager) startOnDbgThread(e engine.Engine, options any) {
	if !m.dispatcher.OnDbgThread() {
		dbgassert.Fatalf("dbgmgr: startOnDbgThread called off the dispatcher thread")
		return
	}
	info := engine.NewInfo(e, e.StartKind(), e.DebugTags(), engine.BreakKindNone)

	beforeCount := m.engines.Len()
	m.engines.Add(info)
	added := m.tags.Add(info.DebugTags)

	states := statesOf(m.engines.Snapshot())
	newRun := derived.CalculateIsRunning(states)

	m.mu.Lock()
	oldRun := m.cachedIsRunning
	m.cachedIsRunning = newRun
	m.mu.Unlock()

	if beforeCount == 0 {
		m.publish(events.IsDebuggingChanged{Value: true})
	}
	if newRun != oldRun {
		m.publish(events.IsRunningChanged{Value: newRun})
		m.delayedNotifier.OnIsRunningChanged(newRun)
	}
	if len(added) > 0 {
		m.publish(events.DebugTagsChanged{Added: added})
	}

	go m.pumpMessages(info)

	if err := e.Start(options); err != nil {
		m.WriteMessage(events.ManagerMessageCouldNotConnect, err.Error())
	}
}

func (m *Manager) pumpMessages(info *engine.Info) {
	for msg := range info.Engine.Messages() {
		msg := msg
		m.dispatcher.Post(func() {
			m.handleMessage(info, msg)
		})
	}
}

// recomputeAndRaise recomputes the cached IsRunning value and raises
// IsRunningChanged iff it changed, arming the delayed-running debounce
// alongside it.
func (m *Manager) recomputeAndRaise() {
	states := statesOf(m.engines.Snapshot())
	newRun := derived.CalculateIsRunning(states)

	m.mu.Lock()
	oldRun := m.cachedIsRunning
	changed := newRun != oldRun
	if changed {
		m.cachedIsRunning = newRun
	}
	m.mu.Unlock()

	if changed {
		m.publish(events.IsRunningChanged{Value: newRun})
		m.delayedNotifier.OnIsRunningChanged(newRun)
	}
}

func (m *Manager) pausedFlagsForProcess(pid int) []bool {
	infos := m.engines.ForProcess(pid)
	flags := make([]bool, len(infos))
	for i, info := range infos {
		flags[i] = info.State == engine.StatePaused
	}
	return flags
}
