package manager

import (
	"testing"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/dbgconfig"
	"github.com/PinkuburuCC/dbgmgr/internal/engine"
	"github.com/PinkuburuCC/dbgmgr/internal/enginefake"
)

func TestBreakAllHelper_MarkDoneCompletesWhenAllTargetsResolve(t *testing.T) {
	e1 := enginefake.New(nil, engine.StartAttach, true)
	e2 := enginefake.New(nil, engine.StartAttach, true)
	h := newBreakAllHelper([]*engine.Info{
		{Engine: e1},
		{Engine: e2},
	})

	if h.markDone(e1) {
		t.Fatal("expected helper to stay outstanding after only one of two targets resolves")
	}
	if !h.markDone(e2) {
		t.Fatal("expected helper to complete once every target has resolved")
	}
}

func TestInitiateBreakAll_IsANoOpWithNoRunningEngines(t *testing.T) {
	m := New(1, dbgconfig.Default(), nil)
	t.Cleanup(m.Shutdown)

	m.BreakAll()
	done := make(chan struct{})
	m.dispatcher.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for BreakAll to run on the dispatcher")
	}

	if m.breakAllActive() {
		t.Fatal("expected no BreakAllHelper to be active with zero engines")
	}
}

func TestInitiateBreakAll_SecondCallWhileActiveIsANoOp(t *testing.T) {
	m, _ := newTestManager(t)

	fe := enginefake.New(nil, engine.StartAttach, true)
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine { return fe }}
	m.AddProvider(provider)
	_ = m.Start(struct{}{})
	fe.SimulateConnected(1, "R1", engine.Flags{})
	waitForCondition(t, func() bool { return fe.Runs() == 1 })

	m.BreakAll()
	waitForCondition(t, func() bool { return fe.Breaks() == 1 })

	var firstHelper *breakAllHelper
	m.mu.Lock()
	firstHelper = m.breakAll
	m.mu.Unlock()
	if firstHelper == nil {
		t.Fatal("expected an active BreakAllHelper")
	}

	m.BreakAll()
	time.Sleep(20 * time.Millisecond)
	if fe.Breaks() != 1 {
		t.Fatalf("expected a second BreakAll while one is active to issue no further Break() calls, got %d", fe.Breaks())
	}

	fe.SimulateBreak(1, "R1", "T1", nil)
	waitForCondition(t, func() bool { return !m.breakAllActive() })
}

func TestStopDebugging_CompletesWhenAllEnginesDisconnect(t *testing.T) {
	m, _ := newTestManager(t)

	fe := enginefake.New(nil, engine.StartLaunch, true)
	provider := &enginefake.Provider{PriorityValue: 0, Accept: true, Factory: func(any) *enginefake.Engine { return fe }}
	m.AddProvider(provider)
	_ = m.Start(struct{}{})
	fe.SimulateConnected(1, "R1", engine.Flags{})
	waitForCondition(t, func() bool { return fe.Runs() == 1 })

	done := make(chan bool, 1)
	m.dispatcher.Post(func() {
		m.startStopDebugging(func(timedOut bool) { done <- timedOut })
	})

	waitForCondition(t, func() bool { return fe.Terminates() == 1 })

	select {
	case timedOut := <-done:
		if timedOut {
			t.Fatal("expected a clean stop, not a timeout")
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for stop-debugging completion")
	}
}
