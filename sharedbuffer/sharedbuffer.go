// Package sharedbuffer implements ABE's SharedBuffer: a magic-guarded,
// copy-on-write byte block allocated as a single block via an Allocator.
package sharedbuffer

import (
	"encoding/binary"

	"github.com/joeycumines/abe/allocator"
	"github.com/joeycumines/abe/refs"
	"github.com/joeycumines/abe/shared"
)

const guardSize = 4

var (
	magicStart = shared.FourCC('s', 'b', 'f', '0')
	magicEnd   = shared.FourCC('s', 'b', 'f', '1')
)

// Fatal is called on guard corruption or other unrecoverable invariant
// violations. Overridable for tests; defaults to refs.Fatal.
var Fatal = refs.Fatal

// SharedBuffer is a refcounted, copy-on-write byte block. Unlike
// shared.Object's general strong/weak pair, a SharedBuffer carries only a
// strong count, since nothing needs to observe a buffer after its last
// strong holder is gone.
type SharedBuffer struct {
	alloc   allocator.Allocator
	raw     []byte // [guardSize]magicStart | payload | [guardSize]magicEnd
	size    int
	counter *refs.Counter[*SharedBuffer]
}

func (b *SharedBuffer) OnFirstRetain() {}

// OnLastRetain validates the guards one final time and returns the backing
// block and the allocator's own retain to the allocator.
func (b *SharedBuffer) OnLastRetain() {
	b.checkGuards()
	b.alloc.Deallocate(b.raw)
	b.alloc.ReleaseObject(false)
}

// Create allocates a new SharedBuffer of size bytes from alloc, with an
// initial strong reference owned by the caller.
func Create(alloc allocator.Allocator, size int) (*SharedBuffer, error) {
	raw, err := alloc.Allocate(size + 2*guardSize)
	if err != nil {
		return nil, err
	}
	b := &SharedBuffer{
		alloc: alloc.RetainObject().(allocator.Allocator),
		raw:   raw,
		size:  size,
	}
	b.counter = refs.New[*SharedBuffer](b)
	b.plantGuards()
	b.counter.IncStrong()
	return b, nil
}

func (b *SharedBuffer) plantGuards() {
	binary.BigEndian.PutUint32(b.raw[0:guardSize], magicStart)
	binary.BigEndian.PutUint32(b.raw[guardSize+b.size:guardSize+b.size+guardSize], magicEnd)
}

// checkGuards asserts both magic guards are intact; corruption is fatal.
func (b *SharedBuffer) checkGuards() {
	if binary.BigEndian.Uint32(b.raw[0:guardSize]) != magicStart {
		Fatal("sharedbuffer: start guard corrupted")
	}
	if binary.BigEndian.Uint32(b.raw[guardSize+b.size:guardSize+b.size+guardSize]) != magicEnd {
		Fatal("sharedbuffer: end guard corrupted")
	}
}

// Data returns the live payload region. The returned slice aliases the
// buffer's storage and must not be retained past a subsequent Edit/Delete.
func (b *SharedBuffer) Data() []byte {
	b.checkGuards()
	return b.raw[guardSize : guardSize+b.size]
}

// Size returns the payload size in bytes.
func (b *SharedBuffer) Size() int { return b.size }

// IsUnique reports whether this is the only strong reference to the
// buffer, the precondition under which Edit may mutate in place.
func (b *SharedBuffer) IsUnique() bool { return b.counter.StrongCount() == 1 }

// RetainBuffer adds a strong reference and returns self.
func (b *SharedBuffer) RetainBuffer() *SharedBuffer {
	b.counter.IncStrong()
	return b
}

// ReleaseBuffer drops a strong reference, returning the count afterward.
// See shared.Base.ReleaseObject for the meaning of keep.
func (b *SharedBuffer) ReleaseBuffer(keep bool) uint32 {
	return b.counter.DecStrongKeep(keep)
}

// DeleteBuffer explicitly tears down a buffer that was released with
// keep=true, running the same guard check and allocator handback
// OnLastRetain would have.
func (b *SharedBuffer) DeleteBuffer() {
	b.OnLastRetain()
}

// Edit returns a buffer the caller may mutate exclusively: itself, if
// unique, or a fresh copy-on-write copy otherwise. The original reference
// is released (balancing the implicit ownership transfer) when a copy is
// made.
func (b *SharedBuffer) Edit() *SharedBuffer {
	b.checkGuards()
	if b.IsUnique() {
		return b
	}
	nb, err := Create(b.alloc, b.size)
	if err != nil {
		Fatal("sharedbuffer: edit: %v", err)
	}
	copy(nb.Data(), b.Data())
	b.ReleaseBuffer(false)
	return nb
}

// EditSize is Edit but also guarantees the returned buffer has room for n
// bytes of payload. If unique and n <= current size, it returns self
// unchanged (no shrink). If unique and growing, it reallocates in place
// via the allocator. If shared, it always allocates a new buffer of size n.
func (b *SharedBuffer) EditSize(n int) *SharedBuffer {
	b.checkGuards()
	if b.IsUnique() {
		if n <= b.size {
			return b
		}
		raw, err := b.alloc.Reallocate(b.raw, n+2*guardSize)
		if err != nil {
			Fatal("sharedbuffer: edit: %v", err)
		}
		b.raw = raw
		b.size = n
		b.plantGuards()
		return b
	}
	nb, err := Create(b.alloc, n)
	if err != nil {
		Fatal("sharedbuffer: edit: %v", err)
	}
	m := b.size
	if n < m {
		m = n
	}
	copy(nb.Data(), b.Data()[:m])
	b.ReleaseBuffer(false)
	return nb
}
