// Package pmm is the physical frame allocator: a bitmap over physical
// page frames, one bit per frame, set when the frame is in use. It is the
// lowest-level owner of physical memory in the kernel; the directory
// manager and kernel heap allocate and free frames through it exclusively.
package pmm

import (
	"fmt"

	"github.com/corvid-os/kernel/internal/x86"
)

const wordBits = 32

// Bitmap is a bit array of length nframes, one bit per physical frame.
// Bit set means the frame is in use.
type Bitmap struct {
	words  []uint32
	nbits  uint32
	frames *x86.PhysMem
}

// NewBitmap allocates a bitmap covering nframes frames, backed by mem for
// the frame contents alloc/free/copy operations touch.
func NewBitmap(nframes uint32, mem *x86.PhysMem) *Bitmap {
	nwords := (nframes + wordBits - 1) / wordBits
	return &Bitmap{words: make([]uint32, nwords), nbits: nframes, frames: mem}
}

// NFrames reports the total number of frames the bitmap tracks.
func (b *Bitmap) NFrames() uint32 { return b.nbits }

func (b *Bitmap) wordIndex(frame uint32) (word, bit uint32) {
	return frame / wordBits, frame % wordBits
}

// Set marks the frame containing addr as in use.
func (b *Bitmap) Set(addr uintptr) {
	frame := x86.FrameIndex(addr)
	w, bit := b.wordIndex(frame)
	b.words[w] |= 1 << bit
}

// Clear marks the frame containing addr as free.
func (b *Bitmap) Clear(addr uintptr) {
	frame := x86.FrameIndex(addr)
	w, bit := b.wordIndex(frame)
	b.words[w] &^= 1 << bit
}

// Test reports whether the frame containing addr is in use.
func (b *Bitmap) Test(addr uintptr) bool {
	frame := x86.FrameIndex(addr)
	w, bit := b.wordIndex(frame)
	return b.words[w]&(1<<bit) != 0
}

// ErrOutOfMemory is returned by FirstFree when every tracked frame is in
// use. Per spec.md §4.1 this is fatal for the caller: the kernel halts,
// there is no swap.
var ErrOutOfMemory = fmt.Errorf("pmm: out of memory")

// FirstFree scans words for a non-saturated word, then tests bits
// LSB-first within it, so ties between free frames are broken by address
// order.
func (b *Bitmap) FirstFree() (uint32, error) {
	for w, word := range b.words {
		if word == 0xFFFFFFFF {
			continue
		}
		for bit := uint32(0); bit < wordBits; bit++ {
			frame := uint32(w)*wordBits + bit
			if frame >= b.nbits {
				break
			}
			if word&(1<<bit) == 0 {
				return frame, nil
			}
		}
	}
	return 0, ErrOutOfMemory
}

// Alloc, DMA and Free take the live *x86.PTE the directory manager hands
// them, so changes are visible to its owning table immediately.

// Alloc reserves the lowest free frame and asserts present/rw/user flags
// on pte. It is a no-op re-assertion of those flags when pte is already
// populated (present with a non-zero frame) rather than an error, matching
// spec.md §4.1.
func (b *Bitmap) Alloc(pte *x86.PTE, kernel, writable bool) error {
	if pte.Present && pte.Frame != 0 {
		pte.User = !kernel
		pte.Writable = writable
		return nil
	}
	frame, err := b.FirstFree()
	if err != nil {
		return err
	}
	b.setBit(frame)
	pte.Present = true
	pte.Frame = frame
	pte.User = !kernel
	pte.Writable = writable
	b.frames.ZeroFrame(frame)
	return nil
}

// DMA reserves a specific physical frame (used for mappings that must
// land at a fixed address, e.g. the text-mode video window) and asserts
// present/rw/user flags on pte.
func (b *Bitmap) DMA(pte *x86.PTE, kernel, writable bool, physAddr uintptr) {
	frame := x86.FrameIndex(physAddr)
	b.setBit(frame)
	pte.Present = true
	pte.Frame = frame
	pte.User = !kernel
	pte.Writable = writable
}

// Free clears both the frame's bit and the entry's frame field. Freeing an
// already-clear frame is a double-free and is a programming error in the
// directory manager, not a recoverable condition (spec.md §7).
func (b *Bitmap) Free(pte *x86.PTE) {
	if !pte.Present {
		return
	}
	if !b.bitSet(pte.Frame) {
		panic(fmt.Sprintf("pmm: double free of frame %d", pte.Frame))
	}
	b.clearBit(pte.Frame)
	pte.Present = false
	pte.Frame = 0
}

func (b *Bitmap) setBit(frame uint32) {
	w, bit := b.wordIndex(frame)
	b.words[w] |= 1 << bit
}

func (b *Bitmap) clearBit(frame uint32) {
	w, bit := b.wordIndex(frame)
	b.words[w] &^= 1 << bit
}

func (b *Bitmap) bitSet(frame uint32) bool {
	w, bit := b.wordIndex(frame)
	return b.words[w]&(1<<bit) != 0
}

// UsedCount returns the number of frames currently marked in use, used by
// tests asserting the bitmap's usage delta across a round trip.
func (b *Bitmap) UsedCount() uint32 {
	var n uint32
	for frame := uint32(0); frame < b.nbits; frame++ {
		if b.bitSet(frame) {
			n++
		}
	}
	return n
}

// Mem returns the simulated physical memory backing this bitmap's frames.
func (b *Bitmap) Mem() *x86.PhysMem { return b.frames }

// AllocRaw reserves and zeroes the lowest free frame without an owning
// page-table entry, for callers that need a frame for bookkeeping rather
// than a mapped page: a directory's own frame, a table's own frame, a
// kernel stack.
func (b *Bitmap) AllocRaw() (uint32, error) {
	frame, err := b.FirstFree()
	if err != nil {
		return 0, err
	}
	b.setBit(frame)
	b.frames.ZeroFrame(frame)
	return frame, nil
}

// FreeRaw releases a frame reserved with AllocRaw.
func (b *Bitmap) FreeRaw(frame uint32) {
	if !b.bitSet(frame) {
		panic(fmt.Sprintf("pmm: double free of frame %d", frame))
	}
	b.clearBit(frame)
}
