// Package dispatcher implements the single-threaded serialization domain
// spec.md §4.1 and §9 describe: a single-consumer FIFO queue paired with one
// worker goroutine. Every state mutation inside internal/manager is posted
// here, which is what gives the rest of the package its ordering
// guarantees — from any observer's perspective, state changes and the
// events raised because of them are totally ordered.
package dispatcher

import (
	"sync"
	"sync/atomic"
)

// Dispatcher serializes posted functions onto a single worker goroutine,
// in FIFO order.
//
// Go has no portable goroutine-identity API, so unlike a UI-thread
// dispatcher this cannot assert "you are calling me from thread N" by
// comparing thread IDs. Instead it tracks whether the worker is currently
// executing a posted task (OnDbgThread reports true only then); that is enough to
// catch the invariant violations spec.md §7 cares about — a handler
// mutating state without having been reached via Post — without pretending
// to a stronger guarantee Go can't give cheaply.
type Dispatcher struct {
	tasks   chan func()
	onDbg   atomic.Bool
	closeCh chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New creates a Dispatcher and starts its worker goroutine. Callers must
// call Close when the dispatcher is no longer needed.
func New() *Dispatcher {
	d := &Dispatcher{
		tasks:   make(chan func(), 256),
		closeCh: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case task := <-d.tasks:
			d.onDbg.Store(true)
			task()
			d.onDbg.Store(false)
		case <-d.closeCh:
			// Drain any tasks already queued before stopping, so a Close
			// racing with a Post doesn't silently drop pending mutations.
			for {
				select {
				case task := <-d.tasks:
					d.onDbg.Store(true)
					task()
					d.onDbg.Store(false)
				default:
					return
				}
			}
		}
	}
}

// Post enqueues fn to run on the dispatcher's worker goroutine, in FIFO
// order relative to every other Post call. Post never blocks the caller
// waiting for fn to run.
func (d *Dispatcher) Post(fn func()) {
	d.tasks <- fn
}

// OnDbgThread reports whether the calling code is running on the
// dispatcher's worker goroutine, i.e. inside a function passed to Post.
// internal/manager's startOnDbgThread calls this and, when it is false,
// reports a dbgassert failure and returns rather than proceeding.
func (d *Dispatcher) OnDbgThread() bool {
	return d.onDbg.Load()
}

// Close stops the worker goroutine after it finishes any task already
// queued or in flight. Close is idempotent.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.closeCh)
	})
	d.wg.Wait()
}
