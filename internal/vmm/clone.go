package vmm

import (
	"github.com/corvid-os/kernel/internal/pmm"
	"github.com/corvid-os/kernel/internal/x86"
)

// CloneDirectory produces a new directory from src where: (i) slots equal
// to the kernel directory's are aliased (shared table, shared physical
// pointer); (ii) slots in the shared-memory region are left untouched
// (aliased at construction, inherited here); (iii) every remaining slot is
// deep-copied via cloneTable. The new directory's reference count starts
// at 1.
func CloneDirectory(src *Directory) (*Directory, error) {
	frame, err := src.bitmap.AllocRaw()
	if err != nil {
		return nil, err
	}
	dst := &Directory{
		frame:          frame,
		refcount:       1,
		bitmap:         src.bitmap,
		mem:            src.mem,
		kernel:         src.kernel,
		sharedBoundary: src.sharedBoundary,
	}

	for i := 0; i < x86.TablesPerDirectory; i++ {
		srcSlot := src.slots[i]
		if srcSlot.table == nil {
			continue
		}
		if src.kernel != nil && srcSlot.table == src.kernel.slots[i].table {
			dst.linkShared(i, src.kernel)
			continue
		}
		if dst.inSharedRegion(i) {
			dst.slots[i] = srcSlot
			dst.physSlots[i] = src.physSlots[i]
			continue
		}
		cloned, err := cloneTable(dst.bitmap, dst.mem, srcSlot.table)
		if err != nil {
			return nil, err
		}
		dst.slots[i] = slot{table: cloned, shared: false}
		dst.physSlots[i] = cloned.frame
	}

	return dst, nil
}

// cloneTable deep-copies a page table: for every present entry it
// allocates a fresh frame and copies the 4 KiB through the identity-mapped
// physical copy primitive, preserving present/rw/user/accessed/dirty.
func cloneTable(bitmap *pmm.Bitmap, mem *x86.PhysMem, src *Table) (*Table, error) {
	frame, err := bitmap.AllocRaw()
	if err != nil {
		return nil, err
	}
	dst := &Table{frame: frame}

	for i := 0; i < x86.EntriesPerTable; i++ {
		srcEntry := src.entries[i]
		if !srcEntry.Present {
			continue
		}
		newFrame, err := bitmap.AllocRaw()
		if err != nil {
			return nil, err
		}
		mem.CopyFrame(newFrame, srcEntry.Frame)
		dst.entries[i] = x86.PTE{
			Present:  true,
			Writable: srcEntry.Writable,
			User:     srcEntry.User,
			Accessed: srcEntry.Accessed,
			Dirty:    srcEntry.Dirty,
			Frame:    newFrame,
		}
	}

	return dst, nil
}

// Retain increments the reference count, for clone()/thread-share and for
// any other directory reference a caller keeps around.
func (d *Directory) Retain() { d.refcount++ }

// Release decrements the reference count and, on reaching zero, walks
// non-shared per-process slots, frees every referenced frame, frees the
// table, and finally frees the directory's own frame.
func (d *Directory) Release() {
	d.refcount--
	if d.refcount > 0 {
		return
	}
	if d.refcount < 0 {
		panic("vmm: directory reference count went negative")
	}

	for i := 0; i < x86.TablesPerDirectory; i++ {
		s := d.slots[i]
		if s.table == nil || s.shared || d.inSharedRegion(i) {
			continue
		}
		for e := 0; e < x86.EntriesPerTable; e++ {
			entry := s.table.Entry(e)
			if entry.Present {
				d.bitmap.FreeRaw(entry.Frame)
				entry.Present = false
			}
		}
		d.bitmap.FreeRaw(s.table.frame)
	}
	d.bitmap.FreeRaw(d.frame)
}
