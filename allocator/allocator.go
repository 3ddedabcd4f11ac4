// Package allocator implements ABE's polymorphic Allocator: a SharedObject
// exposing allocate/reallocate/deallocate, backing SharedBuffer's single
// header+guards+payload allocation.
package allocator

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/abe/shared"
)

// ErrExhausted is returned when an allocation cannot be satisfied.
// Resource exhaustion is treated as fatal by callers in the core (they
// assert success); this package still returns the error rather than
// panicking itself, so non-core callers can make their own choice,
// isolated behind the Allocator abstraction.
var ErrExhausted = errors.New("allocator: allocation failed")

// Stats reports live-allocation bookkeeping.
type Stats struct {
	Live  int64
	Bytes int64
}

// Allocator is the polymorphic byte allocator. It is itself a SharedObject
// so that SharedBuffer can hold a strong reference back to the allocator
// that owns its storage.
type Allocator interface {
	shared.Object
	Allocate(n int) ([]byte, error)
	Reallocate(buf []byte, n int) ([]byte, error)
	Deallocate(buf []byte)
	Stats() Stats
}

// base is embedded by both concrete allocators to share the live-count
// bookkeeping and SharedObject plumbing.
type base struct {
	*shared.Base
	live  atomic.Int64
	bytes atomic.Int64
}

func (b *base) OnFirstRetain() {}
func (b *base) OnLastRetain()  {}

func (b *base) Stats() Stats {
	return Stats{Live: b.live.Load(), Bytes: b.bytes.Load()}
}

func (b *base) trackAlloc(n int) {
	b.live.Add(1)
	b.bytes.Add(int64(n))
}

func (b *base) trackFree(n int) {
	b.live.Add(-1)
	b.bytes.Add(-int64(n))
}

var defaultKind = shared.FourCC('a', 'l', 'c', '0')

// Default is the plain heap allocator: Allocate/Reallocate/Deallocate are
// thin wrappers over make([]byte, n) and Go's slice-growth semantics.
type Default struct {
	*base
}

// NewDefault creates a Default allocator. Its strong count starts at
// refs.Initial: no reference is held until the caller calls RetainObject.
func NewDefault() *Default {
	d := &Default{base: &base{}}
	d.Base = shared.NewBase(d, defaultKind)
	return d
}

func (d *Default) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrExhausted
	}
	buf := make([]byte, n)
	d.trackAlloc(n)
	return buf, nil
}

func (d *Default) Reallocate(buf []byte, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrExhausted
	}
	old := len(buf)
	nb := make([]byte, n)
	copy(nb, buf[:min(old, n)])
	d.trackFree(old)
	d.trackAlloc(n)
	return nb, nil
}

func (d *Default) Deallocate(buf []byte) {
	d.trackFree(len(buf))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
