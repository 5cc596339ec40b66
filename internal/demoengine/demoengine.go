// Package demoengine is the synthetic engine.Engine/engine.Provider pair
// cmd/dbgctl drives in place of a real native/managed debugger backend
// (SPEC_FULL.md §10 — engine backends are a named Non-goal of spec.md, so
// the CLI needs a stand-in to demonstrate the manager against). Unlike
// internal/enginefake, which is a bare FAKE+SPY for tests, this package
// also drives its own timeline: it simulates a debuggee connecting and
// loading a couple of modules on its own goroutine, the way a real
// backend would from its native event-pump thread. It reports a Break
// only in answer to a Break call, never on its own.
package demoengine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

// Options configures one demo session (SPEC_FULL.md §10: Start options
// are an opaque any value; this is the concrete type dbgctl passes).
type Options struct {
	// ProcessID is the synthetic OS pid this engine reports; when it is
	// zero, Provider.Create assigns the provider's next pid.
	ProcessID int
	// Tags is the DebugTags snapshot this engine reports at construction
	// (spec.md §4.3).
	Tags []string
	// Kind distinguishes a launched session from an attached one
	// (spec.md §6).
	Kind engine.StartKind
	// ModuleNames are posted, one per tick, as simulated module loads.
	ModuleNames []string
	// TickInterval paces the simulated module loads.
	TickInterval time.Duration
}

// Engine is a demo engine.Engine: a goroutine-driven timeline instead of
// a real backend connection.
type Engine struct {
	opts Options

	msgs chan engine.Message
	stop chan struct{}
	wg   sync.WaitGroup

	runtimeID engine.RuntimeID
}

var _ engine.Engine = (*Engine)(nil)

// New creates a demo Engine for opts. Nothing runs until Start is
// called.
func New(opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 2 * time.Second
	}
	return &Engine{
		opts:      opts,
		msgs:      make(chan engine.Message, 16),
		stop:      make(chan struct{}),
		runtimeID: uuid.New().String(),
	}
}

func (e *Engine) DebugTags() []string         { return e.opts.Tags }
func (e *Engine) StartKind() engine.StartKind { return e.opts.Kind }
func (e *Engine) CanDetach() bool             { return e.opts.Kind == engine.StartAttach }

// Start launches the simulated timeline goroutine.
func (e *Engine) Start(options any) error {
	e.wg.Add(1)
	go e.run()
	return nil
}

func (e *Engine) run() {
	defer e.wg.Done()
	select {
	case <-time.After(200 * time.Millisecond):
	case <-e.stop:
		return
	}
	e.send(engine.Message{Kind: engine.MsgConnected, ProcessID: e.opts.ProcessID, RuntimeID: e.runtimeID})

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	loaded := e.opts.ModuleNames
	i := 0
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if i >= len(loaded) {
				continue
			}
			e.send(engine.Message{
				Kind:      engine.MsgModuleLoad,
				ProcessID: e.opts.ProcessID,
				RuntimeID: e.runtimeID,
				Modules:   []string{loaded[i]},
				Flags:     engine.Flags{Pause: false},
			})
			i++
		}
	}
}

func (e *Engine) send(msg engine.Message) {
	select {
	case e.msgs <- msg:
	case <-e.stop:
	}
}

// Run simulates resuming execution: nothing to do but the real backend
// equivalent would resume the debuggee's threads.
func (e *Engine) Run() {}

// Break simulates an asynchronous pause request completing shortly
// after being issued, the way a real backend's break-request round trip
// would.
func (e *Engine) Break() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-time.After(100 * time.Millisecond):
		case <-e.stop:
			return
		}
		e.send(engine.Message{
			Kind:      engine.MsgBreak,
			ProcessID: e.opts.ProcessID,
			RuntimeID: e.runtimeID,
			ThreadID:  randThreadID(),
		})
	}()
}

// Detach and Terminate both end the simulated timeline and report
// Disconnected.
func (e *Engine) Detach()    { e.disconnect() }
func (e *Engine) Terminate() { e.disconnect() }

func (e *Engine) disconnect() {
	select {
	case <-e.stop:
		return
	default:
	}
	// Deliver Disconnected before closing stop: once stop is closed, send's
	// select could otherwise race and silently drop this message instead of
	// queuing it on msgs.
	e.send(engine.Message{Kind: engine.MsgDisconnected, ProcessID: e.opts.ProcessID, RuntimeID: e.runtimeID})
	close(e.stop)
}

func (e *Engine) OnConnected(factory *engine.ObjectFactory, runtime *engine.Runtime) {}

// Close stops the simulated timeline goroutine and releases the message
// channel. Safe to call once the dispatcher's close queue reaches this
// engine (spec.md §4.9), and safe to call after Detach/Terminate already
// stopped the timeline.
func (e *Engine) Close() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
	e.wg.Wait()
	close(e.msgs)
}

func (e *Engine) Messages() <-chan engine.Message { return e.msgs }

func randThreadID() string {
	return uuid.New().String()[:8]
}

// Provider mints a demo Engine per Start call; it never refuses
// (SPEC_FULL.md §10: dbgctl's own provider, always Priority 0 so a real
// provider registered ahead of it would win first).
type Provider struct {
	nextPID int
}

var _ engine.Provider = (*Provider)(nil)

// NewProvider creates a Provider minting synthetic pids starting at
// firstPID.
func NewProvider(firstPID int) *Provider {
	return &Provider{nextPID: firstPID}
}

func (p *Provider) Priority() int { return 0 }

// Create builds a demo Engine from opts (expected to be an Options
// value; zero value if options is not one, so callers may pass nil for
// "just give me a default demo session").
func (p *Provider) Create(host engine.Host, options any) (engine.Engine, error) {
	opts, _ := options.(Options)
	if opts.ProcessID == 0 {
		opts.ProcessID = p.nextPID
		p.nextPID++
	}
	if len(opts.ModuleNames) == 0 {
		opts.ModuleNames = []string{"demo.Core", "demo.Runtime", "demo.Plugins"}
	}
	return New(opts), nil
}

// RandomTags returns a small randomized DebugTags set, used for every demo
// session dbgctl starts.
func RandomTags() []string {
	all := []string{"managed", "native", "csharp", "cpp", "script"}
	n := 1 + rand.Intn(2)
	out := make([]string, 0, n)
	perm := rand.Perm(len(all))
	for _, i := range perm[:n] {
		out = append(out, all[i])
	}
	return out
}
