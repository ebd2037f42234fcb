package x86

import "fmt"

// PhysMem is a simulated physical RAM arena addressed by byte offset,
// sized to cover exactly nframes page frames. It stands in for the
// identity-mapped view of RAM a real kernel touches directly through
// pointers; every frame-owning subsystem (the allocator, the directory
// manager's clone_table, the heap's sbrk) reads and writes through it so
// frame contents are observable and testable without real hardware.
type PhysMem struct {
	arena []byte
}

// NewPhysMem allocates a simulated RAM arena covering nframes page frames.
func NewPhysMem(nframes uint32) *PhysMem {
	return &PhysMem{arena: make([]byte, uint64(nframes)*PageSize)}
}

// NFrames reports the number of frames backing this arena.
func (m *PhysMem) NFrames() uint32 { return uint32(len(m.arena) / PageSize) }

func (m *PhysMem) checkFrame(f uint32) {
	if uint64(f)*PageSize >= uint64(len(m.arena)) {
		panic(fmt.Sprintf("x86: frame %d out of range (nframes=%d)", f, m.NFrames()))
	}
}

// ZeroFrame fills frame f with zero bytes, as the directory manager does
// for every freshly allocated page table.
func (m *PhysMem) ZeroFrame(f uint32) {
	m.checkFrame(f)
	page := m.page(f)
	for i := range page {
		page[i] = 0
	}
}

// CopyFrame copies the contents of frame src into frame dst, the
// identity-mapped physical copy primitive clone_table uses to duplicate a
// user page during fork.
func (m *PhysMem) CopyFrame(dst, src uint32) {
	m.checkFrame(dst)
	m.checkFrame(src)
	copy(m.page(dst), m.page(src))
}

// ReadFrame returns a read-only view of frame f's contents.
func (m *PhysMem) ReadFrame(f uint32) []byte {
	m.checkFrame(f)
	out := make([]byte, PageSize)
	copy(out, m.page(f))
	return out
}

// WriteByte writes a single byte at the given physical address, used by
// tests to simulate a process touching a freshly mapped page.
func (m *PhysMem) WriteByte(addr uintptr, b byte) {
	m.arena[addr] = b
}

// ReadByte reads a single byte at the given physical address.
func (m *PhysMem) ReadByte(addr uintptr) byte {
	return m.arena[addr]
}

func (m *PhysMem) page(f uint32) []byte {
	start := uint64(f) * PageSize
	return m.arena[start : start+PageSize]
}
