// Package enginefake provides a FAKE-with-SPY implementation of
// engine.Engine and engine.Provider for tests (grounded on the teacher's
// internal/session.Double: an in-memory stand-in that records calls for
// verification instead of driving a real debuggee).
package enginefake

import (
	"errors"
	"sync"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

// Engine is a FAKE engine.Engine. Test code drives it by calling its
// Simulate* methods to post Messages as if a real backend had produced
// them; it records every control call (Run/Break/Detach/Terminate) for
// later verification.
type Engine struct {
	mu sync.Mutex

	tags      []string
	startKind engine.StartKind
	canDetach bool

	msgs   chan engine.Message
	closed bool

	StartErr error

	RunCount       int
	BreakCount     int
	DetachCount    int
	TerminateCount int
	CloseCount     int

	ConnectedFactory *engine.ObjectFactory
	ConnectedRuntime *engine.Runtime
}

// New creates an Engine fake. tags is the immutable DebugTags snapshot it
// reports; canDetach is the fixed CanDetach answer.
func New(tags []string, kind engine.StartKind, canDetach bool) *Engine {
	return &Engine{
		tags:      tags,
		startKind: kind,
		canDetach: canDetach,
		msgs:      make(chan engine.Message, 16),
	}
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) DebugTags() []string    { return e.tags }
func (e *Engine) StartKind() engine.StartKind { return e.startKind }
func (e *Engine) CanDetach() bool        { return e.canDetach }

func (e *Engine) Start(options any) error {
	return e.StartErr
}

func (e *Engine) Run() {
	e.mu.Lock()
	e.RunCount++
	e.mu.Unlock()
}

func (e *Engine) Break() {
	e.mu.Lock()
	e.BreakCount++
	e.mu.Unlock()
}

func (e *Engine) Detach() {
	e.mu.Lock()
	e.DetachCount++
	e.mu.Unlock()
	e.SimulateDisconnect(0, "")
}

func (e *Engine) Terminate() {
	e.mu.Lock()
	e.TerminateCount++
	e.mu.Unlock()
	e.SimulateDisconnect(0, "")
}

// Runs, Breaks, Detaches, Terminates, and Closes report the SPY call
// counters under lock, for tests that poll them from a goroutine other
// than the dispatcher driving the fake.
func (e *Engine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.RunCount
}

func (e *Engine) Breaks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.BreakCount
}

func (e *Engine) Detaches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DetachCount
}

func (e *Engine) Terminates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.TerminateCount
}

func (e *Engine) Closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.CloseCount
}

func (e *Engine) OnConnected(factory *engine.ObjectFactory, runtime *engine.Runtime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ConnectedFactory = factory
	e.ConnectedRuntime = runtime
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.msgs)
	}
	e.CloseCount++
}

func (e *Engine) Messages() <-chan engine.Message {
	return e.msgs
}

// post sends msg on the message channel unless the engine has already
// been closed, matching a real backend's behavior of going silent once
// torn down.
func (e *Engine) post(msg engine.Message) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.msgs <- msg
}

// SimulateConnected posts a Connected message for (pid, runtimeID).
func (e *Engine) SimulateConnected(pid int, runtimeID string, flags engine.Flags) {
	e.post(engine.Message{Kind: engine.MsgConnected, ProcessID: pid, RuntimeID: runtimeID, Flags: flags})
}

// SimulateConnectFailure posts a failure-Connected message carrying err.
func (e *Engine) SimulateConnectFailure(pid int, runtimeID string, err error) {
	if err == nil {
		err = errors.New("enginefake: simulated connect failure")
	}
	e.post(engine.Message{Kind: engine.MsgConnected, ProcessID: pid, RuntimeID: runtimeID, Err: err})
}

// SimulateDisconnect posts a Disconnected message.
func (e *Engine) SimulateDisconnect(pid int, runtimeID string) {
	e.post(engine.Message{Kind: engine.MsgDisconnected, ProcessID: pid, RuntimeID: runtimeID})
}

// SimulateBreak posts a Break message, optionally carrying an error.
func (e *Engine) SimulateBreak(pid int, runtimeID, threadID string, err error) {
	e.post(engine.Message{Kind: engine.MsgBreak, ProcessID: pid, RuntimeID: runtimeID, ThreadID: threadID, Err: err})
}

// SimulateConditional posts one of the conditional-break-family messages.
func (e *Engine) SimulateConditional(kind engine.MessageKind, pid int, runtimeID string, flags engine.Flags, text string) {
	e.post(engine.Message{Kind: kind, ProcessID: pid, RuntimeID: runtimeID, Flags: flags, Text: text})
}

// Provider is a FAKE engine.Provider that hands out Engine fakes built by
// a caller-supplied factory, or declines (nil, nil) when Accept is false.
type Provider struct {
	PriorityValue int
	Accept        bool
	Factory       func(options any) *Engine
	Err           error

	mu      sync.Mutex
	Created []*Engine
}

var _ engine.Provider = (*Provider)(nil)

func (p *Provider) Priority() int { return p.PriorityValue }

func (p *Provider) Create(host engine.Host, options any) (engine.Engine, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if !p.Accept {
		return nil, nil
	}
	e := p.Factory(options)
	p.mu.Lock()
	p.Created = append(p.Created, e)
	p.mu.Unlock()
	return e, nil
}
