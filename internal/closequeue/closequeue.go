// Package closequeue implements the coalesced batch object-close queue
// spec.md §4.9 describes: close(obj) and close(objs) append under a lock;
// if the queue was empty on entry, a single drain task is posted to the
// dispatcher. The drain snapshots and clears the queue under the lock,
// then closes each object outside it. This preserves the invariant that
// close is dispatcher-ordered with other state changes while coalescing
// bursts of closes into one posted task (spec.md §9 "Close queue").
package closequeue

import "sync"

// Closeable is anything the queue can close. The manager's DbgObject
// types (engines, processes, runtimes) satisfy this.
type Closeable interface {
	Close()
}

// Queue coalesces Closeable.Close calls onto a poster function, typically
// (*dispatcher.Dispatcher).Post.
type Queue struct {
	poster func(func())

	mu      sync.Mutex
	pending []Closeable
}

// New creates a Queue that posts its drain task via poster.
func New(poster func(func())) *Queue {
	return &Queue{poster: poster}
}

// Close enqueues a single object for closing.
func (q *Queue) Close(obj Closeable) {
	q.CloseAll([]Closeable{obj})
}

// CloseAll enqueues a batch of objects for closing. If the queue was
// empty before this call, a single drain task is posted; callers already
// inside a burst of closes ride the drain task the first call posted.
func (q *Queue) CloseAll(objs []Closeable) {
	if len(objs) == 0 {
		return
	}

	q.mu.Lock()
	wasEmpty := len(q.pending) == 0
	q.pending = append(q.pending, objs...)
	q.mu.Unlock()

	if wasEmpty {
		q.poster(q.drain)
	}
}

func (q *Queue) drain() {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, obj := range batch {
		obj.Close()
	}
}

// Len reports the number of objects currently pending a drain. Intended
// for tests and diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
