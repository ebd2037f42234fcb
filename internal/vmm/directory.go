// Package vmm is the page-directory manager: it builds, clones, and tears
// down two-level x86 page tables, and decides the outcome of a page fault.
package vmm

import (
	"github.com/corvid-os/kernel/internal/pmm"
	"github.com/corvid-os/kernel/internal/x86"
)

// Table is one page table: 1024 entries covering 4 MiB. It reserves its
// own physical frame for its hardware image, but the entries live only in
// the Go array; nothing writes encoded entry words into that frame.
type Table struct {
	frame   uint32
	entries [x86.EntriesPerTable]x86.PTE
}

// Frame returns the physical frame this table's hardware image lives in.
func (t *Table) Frame() uint32 { return t.frame }

// Entry returns a pointer to the table's entry at index i so callers can
// mutate flags in place (pmm.Bitmap.Alloc/Free both take a *x86.PTE).
func (t *Table) Entry(i int) *x86.PTE { return &t.entries[i] }

// slot is one directory slot: either unpopulated, a table this directory
// owns outright, or a link to a table shared with another directory (the
// kernel directory, or another thread's directory).
type slot struct {
	table  *Table
	shared bool
}

// Directory is a page directory: 1024 table slots, a parallel array of
// the tables' physical frame indices (no flag bits), and a reference
// count. Slots below sharedBoundary are per-process; slots at or above it,
// and any slot whose table is identical to the kernel directory's at the
// same index, are shared by linking the same *Table into both.
type Directory struct {
	slots     [x86.TablesPerDirectory]slot
	physSlots [x86.TablesPerDirectory]uint32 // frame index of slots[i].table, 0 if absent

	frame    uint32 // this directory's own physical frame
	refcount int

	bitmap         *pmm.Bitmap
	mem            *x86.PhysMem
	kernel         *Directory // nil only for the kernel directory itself
	sharedBoundary int        // slot index; slots >= this are the shared-memory region
}

// PhysAddr is the value CR3 would load for this directory.
func (d *Directory) PhysAddr() uintptr { return x86.FrameAddr(d.frame) }

// RefCount reports the directory's current reference count.
func (d *Directory) RefCount() int { return d.refcount }

// NewKernelDirectory allocates the one kernel directory that every other
// directory's shared slots are compared against and linked from.
func NewKernelDirectory(bitmap *pmm.Bitmap, mem *x86.PhysMem, sharedBoundary int) (*Directory, error) {
	frame, err := bitmap.AllocRaw()
	if err != nil {
		return nil, err
	}
	return &Directory{
		frame:          frame,
		refcount:       1,
		bitmap:         bitmap,
		mem:            mem,
		sharedBoundary: sharedBoundary,
	}, nil
}

// NewProcessDirectory allocates a fresh directory for a brand new process
// (spawn_init's address space) whose kernel-shared slots all alias the
// kernel directory. It starts with no per-process slots populated.
func NewProcessDirectory(kernelDir *Directory) (*Directory, error) {
	frame, err := kernelDir.bitmap.AllocRaw()
	if err != nil {
		return nil, err
	}
	d := &Directory{
		frame:          frame,
		refcount:       1,
		bitmap:         kernelDir.bitmap,
		mem:            kernelDir.mem,
		kernel:         kernelDir,
		sharedBoundary: kernelDir.sharedBoundary,
	}
	for i := kernelDir.sharedBoundary; i < x86.TablesPerDirectory; i++ {
		d.linkShared(i, kernelDir)
	}
	return d, nil
}

func (d *Directory) linkShared(i int, from *Directory) {
	d.slots[i] = slot{table: from.slots[i].table, shared: true}
	d.physSlots[i] = from.physSlots[i]
}

// GetPage returns the page-table entry for addr in dir, creating the
// intermediate table on demand when make is set. The new table's frame is
// zeroed and its frame index is stored in the parallel physical array;
// no present/writable/user flags are recorded there.
func (d *Directory) GetPage(addr uintptr, makeTable bool) (*x86.PTE, bool) {
	tableIdx := int((addr / x86.PageSize) / x86.EntriesPerTable)
	entryIdx := int((addr / x86.PageSize) % x86.EntriesPerTable)

	s := &d.slots[tableIdx]
	if s.table == nil {
		if !makeTable {
			return nil, false
		}
		frame, err := d.bitmap.AllocRaw()
		if err != nil {
			panic("vmm: out of memory allocating page table: " + err.Error())
		}
		s.table = &Table{frame: frame}
		s.shared = false
		d.physSlots[tableIdx] = frame
	}
	return s.table.Entry(entryIdx), true
}

// inSharedRegion reports whether slot index i falls in the shared-memory
// region (slots at or above sharedBoundary).
func (d *Directory) inSharedRegion(i int) bool {
	return i >= d.sharedBoundary
}
