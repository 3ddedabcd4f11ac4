package allocator

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_AllocateTracksStats(t *testing.T) {
	d := NewDefault()
	d.RetainObject()
	defer d.ReleaseObject(false)

	buf, err := d.Allocate(64)
	require.NoError(t, err)
	require.Len(t, buf, 64)

	stats := d.Stats()
	assert.EqualValues(t, 1, stats.Live)
	assert.EqualValues(t, 64, stats.Bytes)

	grown, err := d.Reallocate(buf, 128)
	require.NoError(t, err)
	require.Len(t, grown, 128)

	stats = d.Stats()
	assert.EqualValues(t, 1, stats.Live)
	assert.EqualValues(t, 128, stats.Bytes)

	d.Deallocate(grown)
	stats = d.Stats()
	assert.EqualValues(t, 0, stats.Live)
	assert.EqualValues(t, 0, stats.Bytes)
}

func TestAligned_NormalizesAlignment(t *testing.T) {
	assert.EqualValues(t, 32, normalizeAlignment(1))
	assert.EqualValues(t, 32, normalizeAlignment(32))
	assert.EqualValues(t, 64, normalizeAlignment(33))
	assert.EqualValues(t, 1024, normalizeAlignment(1000))
}

func TestAligned_AllocateIsAligned(t *testing.T) {
	a := NewAligned(256)
	a.RetainObject()
	defer a.ReleaseObject(false)

	for _, n := range []int{0, 1, 17, 4096} {
		buf, err := a.Allocate(n)
		require.NoError(t, err)
		require.Len(t, buf, n)
		if n > 0 {
			addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
			assert.Zero(t, addr%256, "buffer of size %d not aligned", n)
		}
	}
}

func TestAligned_ReallocatePreservesPrefix(t *testing.T) {
	a := NewAligned(64)
	a.RetainObject()
	defer a.ReleaseObject(false)

	buf, err := a.Allocate(8)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = byte(i + 1)
	}

	grown, err := a.Reallocate(buf, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, grown[:8])

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(grown)))
	assert.Zero(t, addr%64)
}
