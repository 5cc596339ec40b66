package engine

import "testing"

// fakeEngine is the minimal Engine double used across registry tests.
type fakeEngine struct {
	tags []string
	kind StartKind
}

func (f *fakeEngine) DebugTags() []string                         { return f.tags }
func (f *fakeEngine) StartKind() StartKind                         { return f.kind }
func (f *fakeEngine) CanDetach() bool                              { return true }
func (f *fakeEngine) Start(options any) error                      { return nil }
func (f *fakeEngine) Run()                                         {}
func (f *fakeEngine) Break()                                       {}
func (f *fakeEngine) Detach()                                      {}
func (f *fakeEngine) Terminate()                                   {}
func (f *fakeEngine) OnConnected(*ObjectFactory, *Runtime)         {}
func (f *fakeEngine) Close()                                       {}
func (f *fakeEngine) Messages() <-chan Message                     { return nil }

func TestRegistry_AddFindRemove(t *testing.T) {
	r := NewRegistry()
	e := &fakeEngine{tags: []string{"dotnet"}}
	info := NewInfo(e, StartAttach, e.tags, BreakKindNone)

	r.Add(info)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	found, ok := r.Find(e)
	if !ok || found != info {
		t.Fatalf("Find returned (%v, %v), want (%v, true)", found, ok, info)
	}

	removed, ok := r.Remove(e)
	if !ok || removed != info {
		t.Fatalf("Remove returned (%v, %v), want (%v, true)", removed, ok, info)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after Remove, want 0", r.Len())
	}
}

func TestRegistry_FindMissingEngineIsNormal(t *testing.T) {
	r := NewRegistry()
	e := &fakeEngine{}

	if _, ok := r.Find(e); ok {
		t.Fatal("Find on empty registry reported found")
	}
	if _, ok := r.Remove(e); ok {
		t.Fatal("Remove on empty registry reported found")
	}
}

func TestRegistry_Snapshot_IsIndependentCopy(t *testing.T) {
	r := NewRegistry()
	e1, e2 := &fakeEngine{}, &fakeEngine{}
	r.Add(NewInfo(e1, StartAttach, nil, BreakKindNone))
	r.Add(NewInfo(e2, StartLaunch, nil, BreakKindNone))

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(snap))
	}

	snap[0] = nil
	if r.Snapshot()[0] == nil {
		t.Fatal("mutating the snapshot slice affected the registry")
	}
}

func TestRegistry_ForProcess(t *testing.T) {
	r := NewRegistry()
	e1, e2, e3 := &fakeEngine{}, &fakeEngine{}, &fakeEngine{}

	i1 := NewInfo(e1, StartAttach, nil, BreakKindNone)
	i1.ProcessID = 100
	i2 := NewInfo(e2, StartAttach, nil, BreakKindNone)
	i2.ProcessID = 100
	i3 := NewInfo(e3, StartAttach, nil, BreakKindNone)
	i3.ProcessID = 200

	r.Add(i1)
	r.Add(i2)
	r.Add(i3)

	got := r.ForProcess(100)
	if len(got) != 2 {
		t.Fatalf("ForProcess(100) returned %d records, want 2", len(got))
	}
	for _, info := range got {
		if info.ProcessID != 100 {
			t.Fatalf("ForProcess(100) returned record with ProcessID %d", info.ProcessID)
		}
	}
}

func TestNewInfo_StartsInStateStarting(t *testing.T) {
	info := NewInfo(&fakeEngine{}, StartAttach, nil, BreakKindNone)
	if info.State != StateStarting {
		t.Fatalf("State = %v, want StateStarting", info.State)
	}
	if info.ProcessID != 0 || info.Runtime != nil || info.Factory != nil {
		t.Fatal("new Info must have no process/runtime/factory until Connected")
	}
}
