// Package x86 models the hardware boundary of a 32-bit protected-mode
// kernel: page sizes, the page-table-entry bit layout, and the sentinel
// instruction-pointer values the scheduler and page-fault handler use to
// recognize the fork/clone/signal suspension points.
//
// The only backend in this tree is the simulated RAM arena behind the
// PhysMem type, which keeps the rest of this module testable under
// `go test`. There is no realhw-tagged build here; such a build would back
// PhysMem directly with the kernel's identity-mapped view of physical memory,
// the way the teacher kernel's mazboot/asm package bridges to real MMIO
// and control-register primitives the Go runtime cannot express.
package x86

import "github.com/corvid-os/kernel/internal/bitfield"

const (
	// PageSize is the size in bytes of one physical frame / virtual page.
	PageSize = 4096
	// EntriesPerTable is the number of page-table entries in one table;
	// one table therefore covers EntriesPerTable*PageSize bytes.
	EntriesPerTable = 1024
	// TablesPerDirectory is the number of table slots in one directory.
	TablesPerDirectory = 1024
)

// Sentinel instruction-pointer values. These addresses are never valid
// code, so a page fault at one of them is the scheduler's cue to run a
// specific kernel action instead of delivering SIGSEGV.
const (
	SignalReturn uintptr = 0xFFFFDEAD // triggers return-from-signal-handler
	ThreadReturn uintptr = 0xFFFFBEEF // triggers thread exit with status 0
	// ResumeSentinel is the value the two-return register snapshot helper
	// yields on its second ("resuming") return, as opposed to its first
	// ("suspending") return. This module does not implement the literal
	// CPU-level two-return trick (see DESIGN.md), and nothing in it
	// currently reads this constant.
	ResumeSentinel uintptr = 0x10000
)

// StackMagic is written below the kernel stack of every freshly spawned
// process and checked by both branches of fork/clone as a corruption
// canary (spec.md §4.6: "A magic sentinel is asserted on both branches").
const StackMagic uint32 = 0xDEADBEEF

// PTE is the software view of one page-table entry. Encode/Decode convert
// it to and from the 32-bit hardware word via the bitfield package,
// keeping the hardware bit layout (present/rw/user/accessed/dirty + a
// 20-bit frame index) distinct from the struct a Go caller works with.
type PTE struct {
	Present  bool   `bitfield:"1"`
	Writable bool   `bitfield:"1"`
	User     bool   `bitfield:"1"`
	Accessed bool   `bitfield:"1"`
	Dirty    bool   `bitfield:"1"`
	reserved uint8  `bitfield:"7"`
	Frame    uint32 `bitfield:"20"`
}

// Encode packs the entry into its 32-bit hardware representation.
func (e PTE) Encode() uint32 {
	packed, err := bitfield.Pack(e)
	if err != nil {
		// A PTE's fields are in range whenever Frame comes from FrameIndex
		// of a 32-bit physical address (always below 1<<20); a packing
		// error here means Frame was set to an out-of-range index.
		panic("x86: invalid page-table entry: " + err.Error())
	}
	return uint32(packed)
}

// DecodePTE unpacks a hardware page-table-entry word into its software
// view.
func DecodePTE(word uint32) PTE {
	var e PTE
	if err := bitfield.Unpack(uint64(word), &e); err != nil {
		panic("x86: corrupt page-table entry: " + err.Error())
	}
	return e
}

// FrameAddr returns the physical address of the start of frame index f.
func FrameAddr(f uint32) uintptr { return uintptr(f) * PageSize }

// FrameIndex returns the frame index containing physical address addr.
func FrameIndex(addr uintptr) uint32 { return uint32(addr / PageSize) }
