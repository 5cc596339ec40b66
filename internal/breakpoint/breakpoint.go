// Package breakpoint bridges engine/module lifecycle events to the
// external bound-breakpoint binder (spec.md §4.8). Address resolution and
// symbol lookup are out of scope (spec.md §1); this package only invokes
// the binder's lifecycle hooks at the right moments.
package breakpoint

// Binder is the external collaborator that resolves and maintains bound
// breakpoints. Its implementation (address resolution, symbol lookup) is
// not part of this package (spec.md §1).
type Binder interface {
	// InitializeForEngine binds every currently-known breakpoint for the
	// given runtime, called once on engine Connected.
	InitializeForEngine(runtimeID string)
	// RemoveForRuntime unbinds every breakpoint bound to runtimeID,
	// called on engine Disconnected.
	RemoveForRuntime(runtimeID string)
	// AddForModules binds breakpoints that resolve against the given
	// modules, called on module load and on an external module-refresh
	// notification.
	AddForModules(runtimeID string, modules []string)
	// RemoveForModules unbinds breakpoints bound against the given
	// modules, called on module unload.
	RemoveForModules(runtimeID string, modules []string)
}

// Bridge invokes a Binder at the lifecycle points spec.md §4.8 names. A
// nil Binder makes every method a no-op, so the manager can run without a
// binder configured.
type Bridge struct {
	binder Binder
}

// NewBridge creates a Bridge over binder. binder may be nil.
func NewBridge(binder Binder) *Bridge {
	return &Bridge{binder: binder}
}

// OnConnected initializes bindings for a newly-connected engine's
// runtime.
func (b *Bridge) OnConnected(runtimeID string) {
	if b.binder == nil {
		return
	}
	b.binder.InitializeForEngine(runtimeID)
}

// OnDisconnected removes all bindings for a disconnected engine's
// runtime.
func (b *Bridge) OnDisconnected(runtimeID string) {
	if b.binder == nil {
		return
	}
	b.binder.RemoveForRuntime(runtimeID)
}

// OnModuleLoad adds bindings for modules just loaded into runtimeID.
func (b *Bridge) OnModuleLoad(runtimeID string, modules []string) {
	if b.binder == nil || len(modules) == 0 {
		return
	}
	b.binder.AddForModules(runtimeID, modules)
}

// OnModuleUnload removes bindings for modules just unloaded from
// runtimeID.
func (b *Bridge) OnModuleUnload(runtimeID string, modules []string) {
	if b.binder == nil || len(modules) == 0 {
		return
	}
	b.binder.RemoveForModules(runtimeID, modules)
}

// OnModuleRefresh re-adds bindings for modules named by an external
// module-refresh notification.
func (b *Bridge) OnModuleRefresh(runtimeID string, modules []string) {
	if b.binder == nil || len(modules) == 0 {
		return
	}
	b.binder.AddForModules(runtimeID, modules)
}
