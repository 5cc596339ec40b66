package breakpoint

import (
	"reflect"
	"testing"
)

type spyBinder struct {
	initialized []string
	removed     []string
	added       map[string][]string
	unbound     map[string][]string
}

func newSpyBinder() *spyBinder {
	return &spyBinder{added: map[string][]string{}, unbound: map[string][]string{}}
}

func (s *spyBinder) InitializeForEngine(runtimeID string) {
	s.initialized = append(s.initialized, runtimeID)
}
func (s *spyBinder) RemoveForRuntime(runtimeID string) {
	s.removed = append(s.removed, runtimeID)
}
func (s *spyBinder) AddForModules(runtimeID string, modules []string) {
	s.added[runtimeID] = append(s.added[runtimeID], modules...)
}
func (s *spyBinder) RemoveForModules(runtimeID string, modules []string) {
	s.unbound[runtimeID] = append(s.unbound[runtimeID], modules...)
}

func TestBridge_DelegatesToBinder(t *testing.T) {
	spy := newSpyBinder()
	b := NewBridge(spy)

	b.OnConnected("R1")
	b.OnModuleLoad("R1", []string{"mscorlib"})
	b.OnModuleRefresh("R1", []string{"mscorlib"})
	b.OnModuleUnload("R1", []string{"mscorlib"})
	b.OnDisconnected("R1")

	if !reflect.DeepEqual(spy.initialized, []string{"R1"}) {
		t.Fatalf("initialized = %v", spy.initialized)
	}
	if !reflect.DeepEqual(spy.removed, []string{"R1"}) {
		t.Fatalf("removed = %v", spy.removed)
	}
	if !reflect.DeepEqual(spy.added["R1"], []string{"mscorlib", "mscorlib"}) {
		t.Fatalf("added = %v", spy.added)
	}
	if !reflect.DeepEqual(spy.unbound["R1"], []string{"mscorlib"}) {
		t.Fatalf("unbound = %v", spy.unbound)
	}
}

func TestBridge_NilBinderIsNoOp(t *testing.T) {
	b := NewBridge(nil)
	// Must not panic.
	b.OnConnected("R1")
	b.OnModuleLoad("R1", []string{"m"})
	b.OnModuleUnload("R1", []string{"m"})
	b.OnModuleRefresh("R1", []string{"m"})
	b.OnDisconnected("R1")
}
