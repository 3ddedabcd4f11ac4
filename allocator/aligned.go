package allocator

import (
	"unsafe"

	"github.com/joeycumines/abe/shared"
)

// minAlignment is the floor alignment: every alignment request is rounded
// up to the next power of two with this floor.
const minAlignment = 32

func normalizeAlignment(align uint) uint {
	if align < minAlignment {
		align = minAlignment
	}
	// round up to the next power of two
	a := uint(1)
	for a < align {
		a <<= 1
	}
	return a
}

var alignedKind = shared.FourCC('a', 'l', 'c', 'a')

// Aligned is an allocator that guarantees every returned slice starts at an
// address that is a multiple of its alignment. Go never promises a slice's
// backing array starts aligned beyond what the runtime's allocator already
// gives scalars, so each allocation over-allocates and returns a sub-slice
// whose start has been shifted to the next aligned address — the same
// technique C's posix_memalign uses internally, just expressed without a
// raw malloc.
//
// Realloc-in-place is not guaranteed to preserve alignment, so Reallocate
// always allocates a fresh aligned block and copies the live prefix
// across; it never attempts to grow in place.
type Aligned struct {
	*base
	align uint
}

// NewAligned creates an Aligned allocator with the given alignment (rounded
// up to the next power of two, floor 32).
func NewAligned(align uint) *Aligned {
	a := &Aligned{base: &base{}, align: normalizeAlignment(align)}
	a.Base = shared.NewBase(a, alignedKind)
	return a
}

// Alignment returns the (already-normalized) alignment this allocator
// guarantees.
func (a *Aligned) Alignment() uint { return a.align }

func (a *Aligned) allocateAligned(n int) []byte {
	raw := make([]byte, n+int(a.align)-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	misalign := base % uintptr(a.align)
	var shift uintptr
	if misalign != 0 {
		shift = uintptr(a.align) - misalign
	}
	return raw[shift : shift+uintptr(n) : shift+uintptr(n)]
}

func (a *Aligned) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrExhausted
	}
	buf := a.allocateAligned(n)
	a.trackAlloc(n)
	return buf, nil
}

func (a *Aligned) Reallocate(buf []byte, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrExhausted
	}
	old := len(buf)
	nb := a.allocateAligned(n)
	copy(nb, buf[:min(old, n)])
	a.trackFree(old)
	a.trackAlloc(n)
	return nb, nil
}

func (a *Aligned) Deallocate(buf []byte) {
	a.trackFree(len(buf))
}
