package pmm

import (
	"testing"

	"github.com/corvid-os/kernel/internal/x86"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBitmap(t *testing.T, nframes uint32) *Bitmap {
	t.Helper()
	return NewBitmap(nframes, x86.NewPhysMem(nframes))
}

func TestAllocFreeRoundTrip(t *testing.T) {
	b := newTestBitmap(t, 16)
	var pte x86.PTE

	require.NoError(t, b.Alloc(&pte, false, true))
	assert.True(t, pte.Present)
	assert.True(t, b.Test(x86.FrameAddr(pte.Frame)))

	b.Free(&pte)
	assert.False(t, pte.Present)
	assert.False(t, b.Test(x86.FrameAddr(0)))
	assert.Equal(t, uint32(0), b.UsedCount())
}

func TestAllocIsNoOpOnPopulatedEntry(t *testing.T) {
	b := newTestBitmap(t, 16)
	pte := x86.PTE{Present: true, Frame: 3, Writable: false}
	b.Set(x86.FrameAddr(3))

	require.NoError(t, b.Alloc(&pte, false, true))
	assert.Equal(t, uint32(3), pte.Frame)
	assert.True(t, pte.Writable)
	assert.Equal(t, uint32(1), b.UsedCount())
}

func TestFirstFreeTieBreaksByAddressOrder(t *testing.T) {
	b := newTestBitmap(t, 64)
	b.Set(x86.FrameAddr(0))
	b.Set(x86.FrameAddr(1))

	f, err := b.FirstFree()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), f)
}

func TestFirstFreeOutOfMemory(t *testing.T) {
	b := newTestBitmap(t, 4)
	for i := uint32(0); i < 4; i++ {
		b.Set(x86.FrameAddr(i))
	}
	_, err := b.FirstFree()
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestDoubleFreePanics(t *testing.T) {
	b := newTestBitmap(t, 16)
	pte := x86.PTE{Present: true, Frame: 2}

	assert.Panics(t, func() { b.Free(&pte) })
}

func TestInvariantPresentFrameIsSetInBitmap(t *testing.T) {
	b := newTestBitmap(t, 16)
	var ptes []x86.PTE
	for i := 0; i < 5; i++ {
		var pte x86.PTE
		require.NoError(t, b.Alloc(&pte, false, true))
		ptes = append(ptes, pte)
	}

	for _, pte := range ptes {
		assert.True(t, b.Test(x86.FrameAddr(pte.Frame)))
	}
}
