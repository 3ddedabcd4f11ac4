// Package shared implements SharedObject, the base trait every refcounted
// ABE entity builds on: a Refs-backed strong/weak count plus a diagnostic
// FourCC kind tag.
package shared

import "github.com/joeycumines/abe/refs"

// Object is the interface implemented by every refcounted entity in the
// core. Subclasses embed a *Base and override OnFirstRetain/OnLastRetain
// to hook into the lifecycle.
type Object interface {
	refs.Lifecycle
	RetainObject() Object
	ReleaseObject(keep bool) uint32
	GetRetainCount() uint32
	GetObjectID() uint32
}

// Base implements Object's bookkeeping. It must be embedded by value or
// pointer in every SharedObject subclass, and initialized via NewBase.
//
// Go has no implicit "this" for a struct embedding Base, so NewBase takes
// self explicitly: it is the fully constructed outer value, and its
// OnFirstRetain/OnLastRetain overrides are what the underlying refs.Counter
// calls. This is the one place the port deviates textually from the
// original's virtual-dispatch idiom, for a reason inherent to the target
// language, not a design choice.
type Base struct {
	kind    uint32
	self    Object
	counter *refs.Counter[Object]
}

// NewBase wires up a Base for self, which must be the outer SharedObject
// value (typically a *T where T embeds Base). kind is a diagnostic FourCC
// tag, commonly built with FourCC.
func NewBase(self Object, kind uint32) *Base {
	return &Base{
		kind:    kind,
		self:    self,
		counter: refs.New[Object](self),
	}
}

// Counter exposes the underlying refs.Counter for collaborators (such as
// Weak) that need direct access to the strong/weak state machine.
func (b *Base) Counter() *refs.Counter[Object] { return b.counter }

// RetainObject adds a strong reference and returns self.
func (b *Base) RetainObject() Object {
	b.counter.IncStrong()
	return b.self
}

// ReleaseObject drops a strong reference, returning the strong count
// afterward. If keep is true and the count reaches zero, OnLastRetain is
// not fired and the object is not marked destroyed: the caller accepts
// responsibility for an explicit teardown. This exists so that subclasses
// with guarded payloads (SharedBuffer) can run extra validation in their
// own destruction path instead of Base's.
func (b *Base) ReleaseObject(keep bool) uint32 {
	return b.counter.DecStrongKeep(keep)
}

// GetRetainCount returns the current strong count.
func (b *Base) GetRetainCount() uint32 { return b.counter.StrongCount() }

// GetObjectID returns the diagnostic FourCC kind tag.
func (b *Base) GetObjectID() uint32 { return b.kind }

// NewWeak creates a weak reference to self.
func (b *Base) NewWeak() *Weak {
	b.counter.IncWeak()
	return &Weak{counter: b.counter}
}

// Weak is a non-owning reference that must be promoted to a strong
// reference before the underlying object can be used.
type Weak struct {
	counter  *refs.Counter[Object]
	released bool
}

// Promote attempts to obtain a new strong reference to the underlying
// object. It returns (nil, false) if the object's strong count has already
// dropped to zero.
func (w *Weak) Promote() (Object, bool) {
	return w.counter.TryPromote()
}

// Release drops this weak reference. Calling Release twice is fatal.
func (w *Weak) Release() {
	if w.released {
		refs.Fatal("Weak released twice")
	}
	w.released = true
	w.counter.DecWeak()
}
