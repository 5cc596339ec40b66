package closequeue

import "testing"

type countingCloseable struct {
	closes *int
}

func (c *countingCloseable) Close() {
	*c.closes++
}

// syncPoster runs posted tasks inline, which is enough to exercise the
// coalescing contract without a real dispatcher.
func syncPoster(tasks *int) func(func()) {
	return func(fn func()) {
		*tasks++
		fn()
	}
}

func TestClose_InvokesCloseExactlyOnce(t *testing.T) {
	var closes, tasks int
	q := New(syncPoster(&tasks))

	obj := &countingCloseable{closes: &closes}
	q.Close(obj)

	if closes != 1 {
		t.Fatalf("closes = %d, want 1", closes)
	}
	if tasks != 1 {
		t.Fatalf("drain tasks posted = %d, want 1", tasks)
	}
}

func TestCloseAll_CoalescesIntoSingleDrainWhenQueueNotEmpty(t *testing.T) {
	var posted int
	var pendingAtSecondCall int

	q := New(func(fn func()) {
		posted++
		// Do not run fn immediately; simulate a drain that hasn't
		// executed yet when a second CloseAll arrives.
	})

	a, b := 0, 0
	q.CloseAll([]Closeable{&countingCloseable{closes: &a}})
	pendingAtSecondCall = q.Len()
	q.CloseAll([]Closeable{&countingCloseable{closes: &b}})

	if pendingAtSecondCall != 1 {
		t.Fatalf("pending before second CloseAll = %d, want 1", pendingAtSecondCall)
	}
	if posted != 1 {
		t.Fatalf("drain posted %d times, want exactly 1 (queue was non-empty on second call)", posted)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (both batches coalesced)", q.Len())
	}
}

func TestCloseAll_EmptySliceIsNoOp(t *testing.T) {
	var posted int
	q := New(func(fn func()) { posted++; fn() })

	q.CloseAll(nil)
	if posted != 0 {
		t.Fatalf("posted = %d, want 0 for an empty batch", posted)
	}
}
