package derived

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

func TestCalculateIsRunning(t *testing.T) {
	cases := []struct {
		name   string
		states []engine.State
		want   events.RunState
	}{
		{"no engines", nil, events.RunFalse},
		{"all paused", []engine.State{engine.StatePaused, engine.StatePaused}, events.RunFalse},
		{"all running", []engine.State{engine.StateRunning, engine.StateStarting}, events.RunTrue},
		{"mixed", []engine.State{engine.StateRunning, engine.StatePaused}, events.RunPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateIsRunning(tc.states); got != tc.want {
				t.Fatalf("CalculateIsRunning(%v) = %v, want %v", tc.states, got, tc.want)
			}
		})
	}
}

func TestDelayedRunningNotifier_FiresAfterQuiescence(t *testing.T) {
	var fired atomic.Bool
	n := NewDelayedRunningNotifier(20*time.Millisecond, func() { fired.Store(true) })

	n.OnIsRunningChanged(events.RunTrue)
	if fired.Load() {
		t.Fatal("fired before quiescence window elapsed")
	}

	time.Sleep(60 * time.Millisecond)
	if !fired.Load() {
		t.Fatal("did not fire after quiescence window elapsed")
	}
}

func TestDelayedRunningNotifier_CancelsOnLeavingRunTrue(t *testing.T) {
	var fired atomic.Bool
	n := NewDelayedRunningNotifier(20*time.Millisecond, func() { fired.Store(true) })

	n.OnIsRunningChanged(events.RunTrue)
	n.OnIsRunningChanged(events.RunPartial)

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Fatal("fired after IsRunning left RunTrue before the window elapsed")
	}
}

func TestDelayedRunningNotifier_StopCancelsPendingFire(t *testing.T) {
	var fired atomic.Bool
	n := NewDelayedRunningNotifier(20*time.Millisecond, func() { fired.Store(true) })

	n.OnIsRunningChanged(events.RunTrue)
	n.Stop()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Fatal("fired after Stop")
	}
}
