package demoengine

import (
	"testing"
	"time"

	"github.com/PinkuburuCC/dbgmgr/internal/engine"
)

func recvMessage(t *testing.T, ch <-chan engine.Message, timeout time.Duration) engine.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a message")
		return engine.Message{}
	}
}

func TestEngine_ConnectsAndReportsModules(t *testing.T) {
	e := New(Options{
		ProcessID:    1,
		Kind:         engine.StartLaunch,
		ModuleNames:  []string{"demo.A", "demo.B"},
		TickInterval: 10 * time.Millisecond,
	})
	defer e.Close()

	if err := e.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	connected := recvMessage(t, e.Messages(), time.Second)
	if connected.Kind != engine.MsgConnected {
		t.Fatalf("expected MsgConnected first, got %v", connected.Kind)
	}
	if connected.RuntimeID == "" {
		t.Fatal("expected a non-empty runtime ID")
	}

	first := recvMessage(t, e.Messages(), time.Second)
	if first.Kind != engine.MsgModuleLoad || len(first.Modules) != 1 || first.Modules[0] != "demo.A" {
		t.Fatalf("expected first module load demo.A, got %+v", first)
	}

	second := recvMessage(t, e.Messages(), time.Second)
	if second.Kind != engine.MsgModuleLoad || second.Modules[0] != "demo.B" {
		t.Fatalf("expected second module load demo.B, got %+v", second)
	}
}

func TestEngine_BreakReportsThreadID(t *testing.T) {
	e := New(Options{ProcessID: 2, Kind: engine.StartAttach, TickInterval: time.Minute})
	defer e.Close()
	_ = e.Start(nil)
	recvMessage(t, e.Messages(), time.Second) // Connected

	e.Break()
	msg := recvMessage(t, e.Messages(), time.Second)
	if msg.Kind != engine.MsgBreak {
		t.Fatalf("expected MsgBreak, got %v", msg.Kind)
	}
	if msg.ThreadID == "" {
		t.Fatal("expected a non-empty thread ID")
	}
}

func TestEngine_DetachReportsDisconnected(t *testing.T) {
	e := New(Options{ProcessID: 3, Kind: engine.StartAttach, TickInterval: time.Minute})
	defer e.Close()
	_ = e.Start(nil)
	recvMessage(t, e.Messages(), time.Second) // Connected

	e.Detach()
	msg := recvMessage(t, e.Messages(), time.Second)
	if msg.Kind != engine.MsgDisconnected {
		t.Fatalf("expected MsgDisconnected, got %v", msg.Kind)
	}

	// A second Detach/Terminate must not panic or double-close e.stop.
	e.Terminate()
}

func TestEngine_CanDetach(t *testing.T) {
	attach := New(Options{Kind: engine.StartAttach})
	defer attach.Close()
	if !attach.CanDetach() {
		t.Fatal("expected a StartAttach engine to be detachable")
	}

	launch := New(Options{Kind: engine.StartLaunch})
	defer launch.Close()
	if launch.CanDetach() {
		t.Fatal("expected a StartLaunch engine not to be detachable")
	}
}

func TestProvider_CreateAssignsIncrementingPID(t *testing.T) {
	p := NewProvider(100)
	e1, err := p.Create(nil, Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e2, err := p.Create(nil, Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer e1.(*Engine).Close()
	defer e2.(*Engine).Close()

	if e1.(*Engine).opts.ProcessID != 100 {
		t.Fatalf("expected first demo PID 100, got %d", e1.(*Engine).opts.ProcessID)
	}
	if e2.(*Engine).opts.ProcessID != 101 {
		t.Fatalf("expected second demo PID 101, got %d", e2.(*Engine).opts.ProcessID)
	}
}

func TestRandomTags_ReturnsNonEmptyKnownTags(t *testing.T) {
	known := map[string]bool{"managed": true, "native": true, "csharp": true, "cpp": true, "script": true}
	for i := 0; i < 20; i++ {
		tags := RandomTags()
		if len(tags) == 0 {
			t.Fatal("expected at least one tag")
		}
		for _, tag := range tags {
			if !known[tag] {
				t.Fatalf("unexpected tag %q", tag)
			}
		}
	}
}
