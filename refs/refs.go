// Package refs implements the dual strong/weak reference count described by
// ABE's Refs: a counter that fires lifecycle hooks on the 0->1 and 1->0
// strong-count transitions, and that outlives the object it counts for as
// long as a weak reference remains outstanding.
package refs

import (
	"fmt"
	"sync/atomic"
)

// Initial is the sentinel strong/weak count meaning "never incremented",
// distinct from a count that has dropped back to zero after use.
const Initial uint32 = ^uint32(0)

// Lifecycle is implemented by the value a Counter manages. OnFirstRetain
// fires exactly once, on the strong-count 0->1 transition (equivalently,
// Initial->1). OnLastRetain fires exactly once, on the 1->0 transition,
// immediately before the object is considered destroyed.
type Lifecycle interface {
	OnFirstRetain()
	OnLastRetain()
}

// Fatal reports a programming error the package cannot recover from: a
// double release, a release with no outstanding reference, or any other
// violation of the strong/weak state machine's invariants. It is a package
// variable so tests can observe fatal conditions without crashing the test
// binary; production code should leave it at its default, which panics
// with the formatted message.
var Fatal = func(format string, args ...any) {
	panic(fmt.Sprintf("refs: "+format, args...))
}

// Counter is the strong/weak pair described by ABE's Refs. Every strong
// increment implicitly increments the weak count too (mirroring the
// classic strong/weak refcounting trick where every strong holder is also
// an implicit weak holder); this is what lets the weak side alone decide
// when the Counter itself may be discarded, in all four lifecycle cases
// spec'd for SharedObject:
//
//  1. strong-only: the last DecStrong also drains the implicit weak count
//     to zero, so the object and the Counter are torn down together.
//  2. mixed: DecStrong to zero destroys the object; a later DecWeak to
//     zero (once explicit weak holders are gone too) discards the Counter.
//  3. weak-only: IncWeak was called but the strong side never left
//     Initial; the last DecWeak destroys both the object and the Counter.
//  4. bare: neither side was ever touched; Destroy tears down both
//     directly, for an object that was never shared.
type Counter[T Lifecycle] struct {
	strong        atomic.Uint32
	weak          atomic.Uint32
	obj           T
	objDestroyed  atomic.Bool
	refsDestroyed atomic.Bool
}

// New creates a Counter around obj, with both counts at Initial.
func New[T Lifecycle](obj T) *Counter[T] {
	c := &Counter[T]{obj: obj}
	c.strong.Store(Initial)
	c.weak.Store(Initial)
	return c
}

// StrongCount returns the current strong count, or 0 if it is Initial.
func (c *Counter[T]) StrongCount() uint32 {
	if v := c.strong.Load(); v != Initial {
		return v
	}
	return 0
}

// WeakCount returns the current weak count, or 0 if it is Initial.
func (c *Counter[T]) WeakCount() uint32 {
	if v := c.weak.Load(); v != Initial {
		return v
	}
	return 0
}

func (c *Counter[T]) incWeakRaw() uint32 {
	for {
		cur := c.weak.Load()
		if cur == Initial {
			if c.weak.CompareAndSwap(Initial, 1) {
				return 1
			}
			continue
		}
		if c.weak.CompareAndSwap(cur, cur+1) {
			return cur + 1
		}
	}
}

// IncWeak adds one weak reference, returning the new weak count.
func (c *Counter[T]) IncWeak() uint32 {
	return c.incWeakRaw()
}

func (c *Counter[T]) decWeakRaw() uint32 {
	for {
		cur := c.weak.Load()
		if cur == 0 || cur == Initial {
			Fatal("DecWeak called with no outstanding weak reference")
		}
		if c.weak.CompareAndSwap(cur, cur-1) {
			if cur-1 == 0 {
				// Case 3: the strong side never left Initial, so no
				// OnLastRetain has fired yet, but the object must still
				// be destroyed before the Counter itself goes away.
				if c.strong.Load() == Initial {
					c.destroyObject(false)
				}
				c.destroyRefs()
			}
			return cur - 1
		}
	}
}

// DecWeak releases one weak reference, returning the new weak count.
func (c *Counter[T]) DecWeak() uint32 {
	return c.decWeakRaw()
}

// IncStrong adds one strong reference, firing OnFirstRetain on the
// Initial->1 transition, and always also adding an implicit weak
// reference. Returns the new strong count.
func (c *Counter[T]) IncStrong() uint32 {
	for {
		cur := c.strong.Load()
		if cur == Initial {
			if c.strong.CompareAndSwap(Initial, 1) {
				c.incWeakRaw()
				c.obj.OnFirstRetain()
				return 1
			}
			continue
		}
		if cur == 0 {
			Fatal("IncStrong called on an object with no strong references left")
		}
		if c.strong.CompareAndSwap(cur, cur+1) {
			c.incWeakRaw()
			return cur + 1
		}
	}
}

// DecStrong releases one strong reference, firing OnLastRetain and
// destroying the object on the 1->0 transition, then always releases the
// matching implicit weak reference. Returns the new strong count.
func (c *Counter[T]) DecStrong() uint32 {
	return c.DecStrongKeep(false)
}

// DecStrongKeep is DecStrong with ABE's "keep" escape hatch: when keep is
// true and the count reaches zero, OnLastRetain does not fire and the
// object is not marked destroyed — the caller takes responsibility for
// tearing the object down itself (as sharedbuffer.DeleteBuffer does).
// Destroy cannot be used for this: it accepts only a Counter that was never
// retained. A release against a counter that already
// reads zero or Initial is always a fatal double-release, keep or not: the
// source leaves that case undefined, and undefined is not a license to
// continue silently.
func (c *Counter[T]) DecStrongKeep(keep bool) uint32 {
	for {
		cur := c.strong.Load()
		if cur == 0 || cur == Initial {
			Fatal("DecStrong called with no outstanding strong reference")
		}
		if c.strong.CompareAndSwap(cur, cur-1) {
			if cur-1 == 0 && !keep {
				c.destroyObject(true)
			}
			c.decWeakRaw()
			return cur - 1
		}
	}
}

// TryPromote attempts to turn a weak reference into a strong one: it loops
// trying to CAS the strong count from a nonzero value up by one, failing
// (returning the zero value and false) the moment it observes the strong
// count at zero.
func (c *Counter[T]) TryPromote() (obj T, ok bool) {
	for {
		cur := c.strong.Load()
		if cur == 0 || cur == Initial {
			var zero T
			return zero, false
		}
		if c.strong.CompareAndSwap(cur, cur+1) {
			c.incWeakRaw()
			return c.obj, true
		}
	}
}

// Destroy handles the bare lifecycle case: an object that was created but
// never shared (IncStrong/IncWeak were never called) and is being torn
// down directly by its creator. It is fatal to call Destroy on a Counter
// that was ever retained.
func (c *Counter[T]) Destroy() {
	if c.strong.Load() != Initial || c.weak.Load() != Initial {
		Fatal("Destroy called on a Counter that was retained")
	}
	c.destroyObject(false)
	c.destroyRefs()
}

func (c *Counter[T]) destroyObject(fromStrong bool) {
	if !c.objDestroyed.CompareAndSwap(false, true) {
		Fatal("object destroyed twice")
	}
	if fromStrong {
		c.obj.OnLastRetain()
	}
}

func (c *Counter[T]) destroyRefs() {
	if !c.refsDestroyed.CompareAndSwap(false, true) {
		Fatal("Counter destroyed twice")
	}
	var zero T
	c.obj = zero
}
