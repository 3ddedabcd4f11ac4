// Package abuffer implements ABE's ABuffer: a linear or ring byte buffer
// with typed numeric I/O and a sub-byte bit reader/writer, built on top of
// sharedbuffer's copy-on-write backing.
package abuffer

import (
	"encoding/binary"

	"github.com/joeycumines/abe/allocator"
	"github.com/joeycumines/abe/refs"
	"github.com/joeycumines/abe/sharedbuffer"
)

// Mode selects a Buffer's backing discipline.
type Mode int

const (
	// Linear is a plain grow-to-capacity buffer.
	Linear Mode = iota
	// Ring is a buffer backed by 2x capacity storage, allowing in-place
	// rewind once the live region would otherwise run off the end.
	Ring
)

// Fatal is called on any invariant violation: over-read, over-write, or a
// write that would exceed a ring buffer's capacity. Overridable for tests;
// defaults to refs.Fatal.
var Fatal = refs.Fatal

// reservoir is the 64-bit shift register behind the bit reader/writer.
// Capacity is capped to 56 usable bits (bitCapacity below) so that a
// single byte can always be folded in without overflowing the register,
// regardless of how many bits were left over from the previous operation.
type reservoir struct {
	bits uint64
	n    uint
}

const bitCapacity = 56

// Buffer is a byte container with linear or ring backing, bit-level I/O,
// and zero-copy sub-slicing via SharedBuffer's copy-on-write contract.
type Buffer struct {
	alloc        allocator.Allocator
	sb           *sharedbuffer.SharedBuffer
	offset       int
	capacity     int
	mode         Mode
	defaultOrder binary.ByteOrder
	readPos      int
	writePos     int
	rres         reservoir
	wres         reservoir
}

// New creates a Buffer of the given capacity and mode, backed by a fresh
// SharedBuffer allocated from alloc. Ring buffers allocate 2x capacity.
func New(alloc allocator.Allocator, capacity int, mode Mode) (*Buffer, error) {
	backing := capacity
	if mode == Ring {
		backing *= 2
	}
	sb, err := sharedbuffer.Create(alloc, backing)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		alloc:        alloc,
		sb:           sb,
		capacity:     capacity,
		mode:         mode,
		defaultOrder: binary.BigEndian,
	}, nil
}

// SetDefaultByteOrder configures the order used by the order-less numeric
// read/write methods.
func (b *Buffer) SetDefaultByteOrder(order binary.ByteOrder) { b.defaultOrder = order }

// Close releases this Buffer's strong reference to its backing storage.
func (b *Buffer) Close() { b.sb.ReleaseBuffer(false) }

// Capacity returns the buffer's logical capacity (not the ring's doubled
// backing size).
func (b *Buffer) Capacity() int { return b.capacity }

// size is the number of live (written, unread) bytes.
func (b *Buffer) size() int { return b.writePos - b.readPos }

// Empty returns the number of bytes that may still be written before the
// buffer is full.
func (b *Buffer) Empty() int {
	if b.mode == Linear {
		return b.capacity - b.writePos
	}
	return b.capacity - b.size()
}

// ReadPos and WritePos expose the current cursors, chiefly for tests.
func (b *Buffer) ReadPos() int  { return b.readPos }
func (b *Buffer) WritePos() int { return b.writePos }

// Reset rewinds both cursors and drops any pending bit-reservoir state,
// without touching the backing storage.
func (b *Buffer) Reset() {
	b.readPos = 0
	b.writePos = 0
	b.resetReservoirs()
}

// Clone returns an independent Buffer with its own copy of the live
// payload (not a COW share), positioned for reading from the start.
func (b *Buffer) Clone() (*Buffer, error) {
	nb, err := New(b.alloc, b.capacity, b.mode)
	if err != nil {
		return nil, err
	}
	live := b.size()
	copy(nb.sb.Data(), b.sb.Data()[b.offset+b.readPos:b.offset+b.writePos])
	nb.writePos = live
	return nb, nil
}

func (b *Buffer) resetReservoirs() {
	b.rres = reservoir{}
	b.wres = reservoir{}
}

// ensureEditable enforces the copy-on-write boundary: if the backing
// SharedBuffer is shared, it is replaced with a private copy before any
// mutation proceeds.
func (b *Buffer) ensureEditable() {
	if b.sb.IsUnique() {
		return
	}
	backing := b.capacity
	if b.mode == Ring {
		backing *= 2
	}
	nb, err := sharedbuffer.Create(b.alloc, backing)
	if err != nil {
		Fatal("abuffer: edit: %v", err)
	}
	copy(nb.Data(), b.sb.Data()[b.offset:b.offset+b.writePos])
	b.sb.ReleaseBuffer(false)
	b.sb = nb
	b.offset = 0
}

// ringRewindIfNeeded performs the ring buffer's in-place rewind, only when
// the next write of n bytes would otherwise run off the end of the doubled
// backing store.
func (b *Buffer) ringRewindIfNeeded(n int) {
	if b.mode != Ring {
		return
	}
	if b.writePos+n < 2*b.capacity {
		return
	}
	live := b.writePos - b.readPos
	data := b.sb.Data()
	copy(data[b.offset:b.offset+live], data[b.offset+b.readPos:b.offset+b.writePos])
	b.readPos = 0
	b.writePos = live
}

// writeRaw appends p to the live region without touching either bit
// reservoir. Used both by WriteBytes (which does reset them) and the
// bit-writer's own byte flush (which must not, since it is the bit
// writer's own mechanism producing those bytes).
func (b *Buffer) writeRaw(p []byte) {
	n := len(p)
	if n == 0 {
		return
	}
	b.ensureEditable()
	b.ringRewindIfNeeded(n)
	if b.mode == Linear {
		if b.writePos+n > b.capacity {
			Fatal("abuffer: write overflows linear buffer (capacity %d, write_pos %d, n %d)", b.capacity, b.writePos, n)
		}
	} else if b.size()+n > b.capacity {
		Fatal("abuffer: write overflows ring buffer (capacity %d, size %d, n %d)", b.capacity, b.size(), n)
	}
	copy(b.sb.Data()[b.offset+b.writePos:b.offset+b.writePos+n], p)
	b.writePos += n
}

// WriteBytes appends p to the buffer. Any pending bit-reservoir state is
// discarded first: byte and bit access share one cursor, so a byte write
// mid-reservoir would otherwise silently drop unflushed bits.
func (b *Buffer) WriteBytes(p []byte) {
	b.resetReservoirs()
	b.writeRaw(p)
}

// readRaw copies n bytes from the live region into dst without touching
// either bit reservoir.
func (b *Buffer) readRaw(dst []byte) {
	n := len(dst)
	if n == 0 {
		return
	}
	if b.readPos+n > b.writePos {
		Fatal("abuffer: read overflows live region (write_pos %d, read_pos %d, n %d)", b.writePos, b.readPos, n)
	}
	copy(dst, b.sb.Data()[b.offset+b.readPos:b.offset+b.readPos+n])
	b.readPos += n
}

// Read copies len(dst) bytes into dst, resetting both bit reservoirs.
func (b *Buffer) Read(dst []byte) {
	b.readRaw(dst)
	b.resetReservoirs()
}

// ReadBytes returns a new Buffer sharing this Buffer's backing SharedBuffer
// (copy-on-write, via a retain) and viewing the next n bytes: a zero-copy
// sub-slice. Resets both bit reservoirs on this Buffer.
func (b *Buffer) ReadBytes(n int) *Buffer {
	if b.readPos+n > b.writePos {
		Fatal("abuffer: read overflows live region (write_pos %d, read_pos %d, n %d)", b.writePos, b.readPos, n)
	}
	nb := &Buffer{
		alloc:        b.alloc,
		sb:           b.sb.RetainBuffer(),
		offset:       b.offset + b.readPos,
		capacity:     n,
		mode:         Linear,
		defaultOrder: b.defaultOrder,
		writePos:     n,
	}
	b.readPos += n
	b.resetReservoirs()
	return nb
}

// Flush pads any pending write-reservoir bits to a full byte (zero-filled)
// and emits it, leaving the buffer byte-aligned.
func (b *Buffer) Flush() {
	if b.wres.n == 0 {
		return
	}
	pad := 8 - b.wres.n%8
	if pad == 8 {
		pad = 0
	}
	if pad > 0 {
		b.wres.bits <<= pad
		b.wres.n += pad
	}
	for b.wres.n >= 8 {
		b.wres.n -= 8
		b.writeRaw([]byte{byte(b.wres.bits >> b.wres.n)})
	}
	b.wres = reservoir{}
}
