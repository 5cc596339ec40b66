// Package process tracks the OS processes a debug session is attached to
// (spec.md §3 "Process record", §4.6). A Process rolls up the state of
// every runtime/engine currently attached to it; the manager recomputes
// that roll-up on every engine state transition.
//
// Grounded on the teacher's internal/process package for the collection
// shape (an opaque-ID keyed store with lifecycle operations), generalized
// from session-management methods to the pid-keyed record spec.md
// describes.
package process

import "sync"

// State is the roll-up of a process's attached engines (spec.md §3).
type State int

const (
	StateRunning State = iota
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return "running"
	}
}

// JoinState computes process.state as the join of its attached engines'
// paused-ness (spec.md §3: "Paused iff every attached engine targeting
// this process is Paused; Terminated once the last runtime leaves;
// otherwise Running."). An empty slice means no runtime is attached,
// which is the Terminated condition; callers remove the Process from the
// registry at that point rather than keeping a perpetually-Terminated
// record around.
func JoinState(enginePaused []bool) State {
	if len(enginePaused) == 0 {
		return StateTerminated
	}
	for _, paused := range enginePaused {
		if !paused {
			return StateRunning
		}
	}
	return StatePaused
}

// Process is one OS process a session is attached to (spec.md §3). At
// most one record exists per pid.
type Process struct {
	ID           int
	ShouldDetach bool
	State        State
	ExitCode     int

	runtimes map[string]struct{}
}

// New creates a Process record with no runtimes attached yet, in state
// Running (the state a freshly-Connected engine's process starts in,
// before the Connected handler transitions the engine to Paused and
// recomputes the roll-up).
func New(id int, shouldDetach bool) *Process {
	return &Process{
		ID:           id,
		ShouldDetach: shouldDetach,
		State:        StateRunning,
		runtimes:     make(map[string]struct{}),
	}
}

// AddRuntime records runtimeID as attached to this process.
func (p *Process) AddRuntime(runtimeID string) {
	p.runtimes[runtimeID] = struct{}{}
}

// RemoveRuntime records runtimeID as no longer attached. It reports
// whether the process now has zero attached runtimes, i.e. whether it
// should be scheduled for disposal (spec.md §4.5 Disconnected).
func (p *Process) RemoveRuntime(runtimeID string) (empty bool) {
	delete(p.runtimes, runtimeID)
	return len(p.runtimes) == 0
}

// HasRuntime reports whether runtimeID is currently attached.
func (p *Process) HasRuntime(runtimeID string) bool {
	_, ok := p.runtimes[runtimeID]
	return ok
}

// RuntimeCount returns the number of runtimes currently attached.
func (p *Process) RuntimeCount() int {
	return len(p.runtimes)
}

// Runtimes returns the currently-attached runtime IDs. The returned
// slice is a fresh copy.
func (p *Process) Runtimes() []string {
	out := make([]string, 0, len(p.runtimes))
	for id := range p.runtimes {
		out = append(out, id)
	}
	return out
}

// Registry is the lock-guarded pid -> Process store (spec.md §4.6
// "Process Registry").
type Registry struct {
	mu   sync.Mutex
	byID map[int]*Process
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[int]*Process)}
}

// GetOrCreate returns the existing Process for id, or creates one with
// the given shouldDetach if none exists yet. The second return reports
// whether a new record was created.
func (r *Registry) GetOrCreate(id int, shouldDetach bool) (*Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		return p, false
	}
	p := New(id, shouldDetach)
	r.byID[id] = p
	return p, true
}

// Get returns the Process for id, if any.
func (r *Registry) Get(id int) (*Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	return p, ok
}

// Remove deletes the Process for id.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Snapshot returns a copy of the current process list.
func (r *Registry) Snapshot() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Process, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
