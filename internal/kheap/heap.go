// Package kheap is the kernel heap: a placement (bump) allocator used
// before the heap is installed, and a growing region backed by the frame
// allocator afterward.
package kheap

import (
	"fmt"

	"github.com/corvid-os/kernel/internal/pmm"
	"github.com/corvid-os/kernel/internal/vmm"
	"github.com/corvid-os/kernel/internal/x86"
)

// Heap tracks both allocation phases. KmallocReal is the single entry
// point for both; which phase it serves depends on whether Install has
// been called yet, matching spec.md §4.3's "the same entry point
// delegates".
type Heap struct {
	placementPtr uintptr

	installed bool
	heapStart uintptr
	heapEnd   uintptr
	bumpPtr   uintptr
	ceiling   uintptr

	bitmap    *pmm.Bitmap
	kernelDir *vmm.Directory
}

// New creates a heap in the placement phase, with the bump pointer
// starting at the kernel image's end.
func New(kernelImageEnd uintptr, bitmap *pmm.Bitmap, kernelDir *vmm.Directory, ceiling uintptr) *Heap {
	return &Heap{placementPtr: kernelImageEnd, bitmap: bitmap, kernelDir: kernelDir, ceiling: ceiling}
}

func roundUpPage(addr uintptr) uintptr {
	if addr%x86.PageSize == 0 {
		return addr
	}
	return (addr/x86.PageSize + 1) * x86.PageSize
}

// KmallocReal bumps a pointer starting at the kernel image's end; if
// align, the pointer is rounded up to a page boundary first. It returns
// the pre-bump value and, through physOut (nil allowed), the physical
// address of the allocation — identity-mapped, so identical to the
// virtual address in the placement phase.
func (h *Heap) KmallocReal(size uintptr, align bool, physOut *uintptr) uintptr {
	if h.installed {
		addr := h.bumpAlloc(size, align)
		if physOut != nil {
			*physOut = addr
		}
		return addr
	}

	if align {
		h.placementPtr = roundUpPage(h.placementPtr)
	}
	addr := h.placementPtr
	h.placementPtr += size
	if physOut != nil {
		*physOut = addr
	}
	return addr
}

// Install records the current placement pointer, rounded up to a page
// boundary, as the start of the heap region, and switches KmallocReal into
// the heap phase.
func (h *Heap) Install() {
	h.heapStart = roundUpPage(h.placementPtr)
	h.heapEnd = h.heapStart
	h.bumpPtr = h.heapStart
	h.installed = true
}

// HeapEnd reports the current end of the heap region (page-aligned).
func (h *Heap) HeapEnd() uintptr { return h.heapEnd }

func (h *Heap) bumpAlloc(size uintptr, align bool) uintptr {
	if align {
		h.bumpPtr = roundUpPage(h.bumpPtr)
	}
	for h.bumpPtr+size > h.heapEnd {
		h.Sbrk(x86.PageSize)
	}
	addr := h.bumpPtr
	h.bumpPtr += size
	return addr
}

// Sbrk grows the heap by n bytes, in page-multiple increments, each newly
// mapped page backed by a fresh frame from the bitmap against the kernel
// directory. Preconditions (n is a page multiple, heap end is
// page-aligned, heap_end+n does not exceed ceiling) are fatal on
// violation, per spec.md §4.3.
func (h *Heap) Sbrk(n uintptr) uintptr {
	if !h.installed {
		panic("kheap: sbrk before heap install")
	}
	if n%x86.PageSize != 0 {
		panic(fmt.Sprintf("kheap: sbrk(%d) is not a page multiple", n))
	}
	if h.heapEnd%x86.PageSize != 0 {
		panic("kheap: heap end is not page-aligned")
	}
	if h.heapEnd+n > h.ceiling {
		panic(fmt.Sprintf("kheap: sbrk(%d) would exceed ceiling 0x%x", n, h.ceiling))
	}

	old := h.heapEnd
	for addr := h.heapEnd; addr < old+n; addr += x86.PageSize {
		pte, _ := h.kernelDir.GetPage(addr, true)
		if err := h.bitmap.Alloc(pte, true, true); err != nil {
			panic("kheap: " + err.Error())
		}
	}
	h.heapEnd += n
	return old
}
