package manager

import (
	"testing"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/dbgconfig"
	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/enginefake"
	"github.com/PinkuburuCC/dbgmgr/internal/events"
)

const testTimeout = 2 * time.Second

func newTestManager(t *testing.T) (*Manager, chan events.Event) {
	t.Helper()
	m := New(1, dbgconfig.Default(), nil)
	t.Cleanup(m.Shutdown)

	ch := make(chan events.Event, 256)
	unsub := m.Subscribe(func(ev events.Event) { ch <- ev })
	t.Cleanup(unsub)
	return m, ch
}

func waitEvent(t *testing.T, ch chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

// waitForCondition polls cond until it reports true or testTimeout
// elapses, for assertions against state mutated asynchronously on the
// dispatcher (e.g. a SPY counter on a fake engine).
func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// waitForEvent drains ch, ignoring events that don't satisfy match, until
// one does or testTimeout elapses.
func waitForEvent(t *testing.T, ch chan events.Event, match func(events.Event) bool) events.Event {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching event")
			return nil
		}
	}
}

// TestScenario_AttachThenDetach implements spec.md §8 scenario 1. Engine
// state Starting counts as non-paused for the IsRunning ternary (spec.md
// §4.7: "true if every engine Running/Starting"), so attaching a single
// engine that never pauses produces exactly one IsRunningChanged — at
// Start, not again at Connected.
func TestScenario_AttachThenDetach(t *testing.T) {
	m, ch := newTestManager(t)

	fe := enginefake.New([]string{"csharp"}, engine.StartAttach, true)
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine { return fe }}
	m.AddProvider(provider)

	if err := m.Start(struct{}{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if ev, ok := waitEvent(t, ch).(events.IsDebuggingChanged); !ok || !ev.Value {
		t.Fatalf("expected IsDebuggingChanged(true) first, got %#v", ev)
	}
	if ev, ok := waitEvent(t, ch).(events.IsRunningChanged); !ok || ev.Value != events.RunTrue {
		t.Fatalf("expected IsRunningChanged(true) second, got %#v", ev)
	}
	if ev, ok := waitEvent(t, ch).(events.DebugTagsChanged); !ok || len(ev.Added) != 1 || ev.Added[0] != "csharp" {
		t.Fatalf("expected DebugTagsChanged{Added: [csharp]} third, got %#v", ev)
	}

	fe.SimulateConnected(4242, "R1", engine.Flags{})

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		ev := waitEvent(t, ch)
		switch v := ev.(type) {
		case events.ProcessesChanged:
			seen["process_added"] = true
			if len(v.Added) != 1 || v.Added[0] != 4242 {
				t.Fatalf("unexpected ProcessesChanged: %#v", v)
			}
		case *events.Message:
			if v.Kind == events.MessageProcessCreated {
				seen["process_created_msg"] = true
			}
			if v.Kind == events.MessageRuntimeCreated {
				seen["runtime_created_msg"] = true
			}
		default:
			t.Fatalf("unexpected event: %#v", ev)
		}
	}
	for _, k := range []string{"process_added", "process_created_msg", "runtime_created_msg"} {
		if !seen[k] {
			t.Fatalf("missing expected event %q", k)
		}
	}

	waitForCondition(t, func() bool { return fe.Runs() == 1 })

	m.Detach(4242)
	waitForCondition(t, func() bool { return fe.Detaches() == 1 })

	seen = map[string]bool{}
	for i := 0; i < 6; i++ {
		ev := waitEvent(t, ch)
		switch v := ev.(type) {
		case *events.Message:
			if v.Kind == events.MessageRuntimeExited {
				seen["runtime_exited"] = true
			}
			if v.Kind == events.MessageProcessExited {
				seen["process_exited"] = true
			}
		case events.ProcessesChanged:
			seen["process_removed"] = true
			if len(v.Removed) != 1 || v.Removed[0] != 4242 {
				t.Fatalf("unexpected ProcessesChanged on removal: %#v", v)
			}
		case events.DebugTagsChanged:
			seen["tags_removed"] = true
		case events.IsRunningChanged:
			if v.Value != events.RunFalse {
				t.Fatalf("expected IsRunningChanged(false), got %v", v.Value)
			}
			seen["is_running_false"] = true
		case events.IsDebuggingChanged:
			if v.Value {
				t.Fatalf("expected IsDebuggingChanged(false)")
			}
			seen["is_debugging_false"] = true
		default:
			t.Fatalf("unexpected event: %#v", ev)
		}
	}
	for _, k := range []string{"runtime_exited", "process_exited", "process_removed", "tags_removed", "is_running_false", "is_debugging_false"} {
		if !seen[k] {
			t.Fatalf("missing expected teardown event %q", k)
		}
	}

	// spec.md §8 testable property: "close(obj) results in exactly one
	// obj.close invocation." onDisconnected enqueues the engine onto the
	// close queue once Detach has driven it to disconnect.
	waitForCondition(t, func() bool { return fe.Closes() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := fe.Closes(); got != 1 {
		t.Fatalf("expected exactly one Close invocation, got %d", got)
	}
}

// TestScenario_BreakAllAcrossTwoEngines implements spec.md §8 scenario 2.
func TestScenario_BreakAllAcrossTwoEngines(t *testing.T) {
	m, ch := newTestManager(t)

	fe1 := enginefake.New(nil, engine.StartAttach, true)
	fe2 := enginefake.New(nil, engine.StartAttach, true)
	calls := 0
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine {
		calls++
		if calls == 1 {
			return fe1
		}
		return fe2
	}}
	m.AddProvider(provider)

	_ = m.Start(struct{}{})
	_ = m.Start(struct{}{})

	fe1.SimulateConnected(1, "R1", engine.Flags{})
	fe2.SimulateConnected(2, "R2", engine.Flags{})

	runtimesSeen := 0
	for runtimesSeen < 2 {
		waitForEvent(t, ch, func(ev events.Event) bool {
			msg, ok := ev.(*events.Message)
			return ok && msg.Kind == events.MessageRuntimeCreated
		})
		runtimesSeen++
	}

	m.BreakAll()

	waitForCondition(t, func() bool { return fe1.Breaks() == 1 && fe2.Breaks() == 1 })

	fe1.SimulateBreak(1, "R1", "T1", nil)

	ev := waitForEvent(t, ch, func(ev events.Event) bool {
		_, ok := ev.(events.IsRunningChanged)
		return ok
	})
	if v := ev.(events.IsRunningChanged); v.Value != events.RunPartial {
		t.Fatalf("expected IsRunningChanged(partial) after first Break, got %v", v.Value)
	}

	fe2.SimulateBreak(2, "R2", "T2", nil)

	ev = waitForEvent(t, ch, func(ev events.Event) bool {
		_, ok := ev.(events.IsRunningChanged)
		return ok
	})
	if v := ev.(events.IsRunningChanged); v.Value != events.RunFalse {
		t.Fatalf("expected IsRunningChanged(false) after second Break, got %v", v.Value)
	}
}

// TestScenario_SelfDebugRefusal implements spec.md §8 scenario 4.
func TestScenario_SelfDebugRefusal(t *testing.T) {
	m := New(777, dbgconfig.Default(), nil)
	t.Cleanup(m.Shutdown)

	if m.CanDebugRuntime(777, "anything") {
		t.Fatal("expected CanDebugRuntime to refuse the manager's own host pid")
	}
}

// TestScenario_DuplicateRuntimeRefusal implements spec.md §8 scenario 5.
func TestScenario_DuplicateRuntimeRefusal(t *testing.T) {
	m, ch := newTestManager(t)

	fe := enginefake.New(nil, engine.StartAttach, true)
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine { return fe }}
	m.AddProvider(provider)
	_ = m.Start(struct{}{})

	fe.SimulateConnected(100, "R1", engine.Flags{})
	waitForEvent(t, ch, func(ev events.Event) bool {
		msg, ok := ev.(*events.Message)
		return ok && msg.Kind == events.MessageRuntimeCreated
	})

	if m.CanDebugRuntime(100, "R1") {
		t.Fatal("expected CanDebugRuntime to refuse an already-attached (pid, runtime)")
	}
}

// TestScenario_ObserverRequestedPause implements spec.md §8 scenario 6.
func TestScenario_ObserverRequestedPause(t *testing.T) {
	m, ch := newTestManager(t)

	fe := enginefake.New(nil, engine.StartAttach, true)
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine { return fe }}
	m.AddProvider(provider)
	_ = m.Start(struct{}{})

	fe.SimulateConnected(1, "R1", engine.Flags{})
	waitForEvent(t, ch, func(ev events.Event) bool {
		msg, ok := ev.(*events.Message)
		return ok && msg.Kind == events.MessageRuntimeCreated
	})

	unsub := m.Subscribe(func(ev events.Event) {
		if msg, ok := ev.(*events.Message); ok && msg.Kind == events.MessageModuleLoaded {
			msg.Pause = true
		}
	})
	defer unsub()

	fe.SimulateConditional(engine.MsgModuleLoad, 1, "R1", engine.Flags{Pause: false}, "")

	waitForEvent(t, ch, func(ev events.Event) bool {
		_, ok := ev.(events.ProcessPaused)
		return ok
	})

	// Connected carried no pause flag, so the engine was resumed once
	// then; the observer's pause must keep the count there until run().
	if fe.Runs() != 1 {
		t.Fatalf("expected the engine to remain paused until run() (one Run from Connected), got RunCount=%d", fe.Runs())
	}

	m.RunAll()
	waitForCondition(t, func() bool { return fe.Runs() == 2 })
}
