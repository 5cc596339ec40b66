// Package engine defines the engine-side contract the manager drives
// (spec.md §6 "Engine-side contract", §3 Engine record) and the registry
// that tracks attached engines (spec.md §4.2).
//
// Grounded on the teacher's internal/registry package: a small lock-guarded
// slice with add/remove/find/snapshot, generalized from bead-backed
// sessions to in-memory engine records, since nothing here is persisted
// (spec.md §6 "Persisted state: none").
package engine

import "sync"

// StartKind distinguishes an engine that launched its debuggee from one
// that attached to an already-running process (spec.md §6).
type StartKind int

const (
	StartAttach StartKind = iota
	StartLaunch
)

func (k StartKind) String() string {
	if k == StartLaunch {
		return "launch"
	}
	return "attach"
}

// State is the per-engine lifecycle state (spec.md §3).
type State int

const (
	StateStarting State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "starting"
	}
}

// BreakKind tags a requested initial pause at a distinguished event
// (spec.md §3 breakKind).
type BreakKind int

const (
	BreakKindNone BreakKind = iota
	BreakKindCreateProcess
)

// MessageKind enumerates the variants an Engine posts on its message
// channel (spec.md §4.5, §6).
type MessageKind int

const (
	MsgConnected MessageKind = iota
	MsgDisconnected
	MsgBreak
	MsgEntryPointBreak
	MsgProgramMessage
	MsgBreakpoint
	MsgProgramBreak
	MsgSetIPComplete
	MsgAppDomainLoad
	MsgAppDomainUnload
	MsgModuleLoad
	MsgModuleUnload
	MsgThreadLoad
	MsgThreadUnload
	MsgExceptionThrown
)

// Flags carries the per-message pause/continue bits spec.md §4.5 combines
// with observer votes and helper state to decide whether to pause.
type Flags struct {
	Pause    bool
	Continue bool
}

// Exception is the minimal exception record the manager stashes across a
// Paused transition (spec.md §3 exception). The manager does not decode
// debuggee memory, so this carries only what the engine chose to report.
type Exception struct {
	Text string
}

// Message is one event an Engine posts to the manager (spec.md §4.5).
type Message struct {
	Kind      MessageKind
	ProcessID int
	RuntimeID string
	ThreadID  string
	Err       error // set on failure-Connected, and on Break with errorMessage
	Text      string
	Flags     Flags
	Modules   []string
	Exception *Exception
}

// Host is the subset of manager capability an EngineProvider may use while
// constructing an Engine, e.g. to post follow-up work back onto the
// dispatcher (spec.md §6 "create(manager, options) -> engine?").
type Host interface {
	Post(fn func())
}

// Engine is the backend contract the manager drives (spec.md §6
// "Engine-side contract"). One Engine instance drives one attached
// runtime.
type Engine interface {
	// DebugTags is the immutable tag snapshot captured at construction.
	DebugTags() []string
	StartKind() StartKind
	CanDetach() bool

	Start(options any) error
	Run()
	Break()
	Detach()
	Terminate()

	// OnConnected is invoked before the runtime is attached to its
	// process record, so engine-supplied runtime data is visible when
	// the RuntimeCreated message is raised (spec.md §4.5 Connected).
	OnConnected(factory *ObjectFactory, runtime *Runtime)

	// Close releases backend resources. Callers reach it only through
	// the dispatcher-ordered close queue (spec.md §4.9).
	Close()

	// Messages is the channel the engine posts Message values to. The
	// manager re-posts every received value onto the dispatcher before
	// acting on it (spec.md §4.5).
	Messages() <-chan Message
}

// Provider constructs Engines from start options (spec.md §6
// "Engine-provider contract"). Providers are walked in ascending
// Priority order; the first to accept (return a non-nil Engine) wins.
type Provider interface {
	Priority() int
	// Create attempts to build an Engine for options. Returning a nil
	// Engine and nil error means this provider declines and the walk
	// continues. A non-nil error means the provider accepted but
	// construction failed, which aborts the walk (spec.md §7 "Engine
	// construction failure").
	Create(host Host, options any) (Engine, error)
}

// RuntimeID identifies a Runtime within a process (SPEC_FULL.md §12
// glossary). It is a plain string at the engine contract boundary —
// engines may mint IDs however their backend represents them. The demo
// engine (internal/demoengine), the only concrete backend here, mints
// its IDs as google/uuid strings.
type RuntimeID = string

// Runtime is the execution environment an Engine attaches to within a
// process (spec.md §3, glossary). A process may host several.
type Runtime struct {
	ID        RuntimeID
	ProcessID int
}

// ObjectFactory is bound to (runtime, engine) once an engine connects
// (spec.md §3). The manager does not interpret what it produces; it only
// tracks its lifetime alongside the owning Info.
type ObjectFactory struct {
	RuntimeID string
}

// Info is one Engine record (spec.md §3 "Engine record"). Every field is
// mutated only on the dispatcher thread; foreign-thread readers go
// through Registry's lock.
type Info struct {
	Engine    Engine
	StartKind StartKind

	// ProcessID is 0 and Runtime/Factory are nil until Connected; the
	// three come and go together (spec.md §3 invariant).
	ProcessID int
	Runtime   *Runtime
	Factory   *ObjectFactory

	State     State
	DebugTags []string
	BreakKind BreakKind

	// ThreadID is the break-thread recorded on the last Break message;
	// conditional-break pauses leave it unchanged. Cleared on Connected.
	ThreadID string

	DelayedIsRunning bool

	// Exception is non-nil only while State == StatePaused (spec.md §3
	// invariant).
	Exception *Exception
}

// RuntimeIDOf returns the attached runtime's ID, or "" if none is
// attached yet.
func (i *Info) RuntimeIDOf() string {
	if i.Runtime == nil {
		return ""
	}
	return i.Runtime.ID
}

// NewInfo creates an Info in state Starting, as startOnDbgThread does
// before any Connected message has arrived (spec.md §3 invariant: "An
// engine is in Starting iff no Connected message has been observed.").
func NewInfo(e Engine, kind StartKind, tags []string, breakKind BreakKind) *Info {
	return &Info{
		Engine:    e,
		StartKind: kind,
		State:     StateStarting,
		DebugTags: tags,
		BreakKind: breakKind,
	}
}

// Registry is the lock-guarded list of attached engine records (spec.md
// §4.2). Exposes add/remove/find/snapshot under a single lock, matching
// the teacher registry's shape.
type Registry struct {
	mu    sync.Mutex
	infos []*Info
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends info to the registry.
func (r *Registry) Add(info *Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, info)
}

// Remove removes and returns the record for e, if present. A false
// second return is a normal condition: the engine may have disconnected
// between a message post and its dispatch (spec.md §4.2).
func (r *Registry) Remove(e Engine) (*Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, info := range r.infos {
		if info.Engine == e {
			r.infos = append(r.infos[:i:i], r.infos[i+1:]...)
			return info, true
		}
	}
	return nil, false
}

// Find returns the record for e, if present, without removing it.
func (r *Registry) Find(e Engine) (*Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.infos {
		if info.Engine == e {
			return info, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the current record list, safe to range over
// without holding the registry lock.
func (r *Registry) Snapshot() []*Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Info, len(r.infos))
	copy(out, r.infos)
	return out
}

// Len returns the number of attached engine records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

// ForProcess returns every record currently targeting pid.
func (r *Registry) ForProcess(pid int) []*Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Info
	for _, info := range r.infos {
		if info.ProcessID == pid {
			out = append(out, info)
		}
	}
	return out
}
