// Package derived computes the manager's derived state: the ternary
// IsRunning value and its debounced DelayedIsRunning notifier (spec.md
// §4.7, §9 "Ternary IsRunning").
package derived

import (
	"sync"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

// CalculateIsRunning computes the ternary IsRunning value over the
// current engine states (spec.md §4.7): empty -> false, all Paused ->
// false, all non-Paused -> true, mixed -> partial.
func CalculateIsRunning(states []engine.State) events.RunState {
	if len(states) == 0 {
		return events.RunFalse
	}

	allPaused := true
	anyPaused := false
	for _, s := range states {
		if s == engine.StatePaused {
			anyPaused = true
		} else {
			allPaused = false
		}
	}

	switch {
	case allPaused:
		return events.RunFalse
	case !anyPaused:
		return events.RunTrue
	default:
		return events.RunPartial
	}
}

// DelayedRunningNotifier debounces DelayedIsRunningChanged (spec.md §4.7):
// it fires onFire only after IsRunning has held at RunTrue for a full
// quiescence window, and cancels a pending fire if IsRunning leaves
// RunTrue first. This absorbs noisy step operations that flicker through
// RunTrue between steps.
//
// OnIsRunningChanged must be called on the dispatcher thread every time
// the cached IsRunning value changes; onFire itself runs on a timer
// goroutine and is responsible for posting back onto the dispatcher if it
// needs to touch manager state.
type DelayedRunningNotifier struct {
	quiescence time.Duration
	onFire     func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDelayedRunningNotifier creates a notifier with the given quiescence
// window. onFire is invoked once per settled-True window.
func NewDelayedRunningNotifier(quiescence time.Duration, onFire func()) *DelayedRunningNotifier {
	return &DelayedRunningNotifier{quiescence: quiescence, onFire: onFire}
}

// OnIsRunningChanged resets the debounce timer: any pending fire is
// canceled, and a new one is armed iff value is RunTrue.
func (n *DelayedRunningNotifier) OnIsRunningChanged(value events.RunState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if value != events.RunTrue {
		return
	}
	n.timer = time.AfterFunc(n.quiescence, n.onFire)
}

// Stop cancels any pending fire. Safe to call multiple times.
func (n *DelayedRunningNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
