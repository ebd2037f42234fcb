package proc

import (
	"github.com/corvid-os/kernel/internal/vfsref"
	"github.com/corvid-os/kernel/internal/vmm"
)

// Table is the process table: the flat process list, the next-PID
// counter, and the tree every descriptor attaches to.
type Table struct {
	Tree *Tree
	list []*Process
	next PID
}

// kernelStackRegionBase and kernelStackStride lay out every process's
// kernel stack at a fixed, PID-derived virtual address, with an unused
// gap of one stack size between neighbours, so fork's esp/ebp translation has real addresses to work
// with instead of opaque slice pointers (spec.md §4.6 step 6b).
const (
	kernelStackRegionBase uintptr = 0xE0000000
	kernelStackStride     uintptr = KernelStackSize * 2
)

func kstackAddrFor(pid PID) uintptr {
	return kernelStackRegionBase + uintptr(pid)*kernelStackStride
}

// NewTable creates an empty process table with an empty tree.
func NewTable() *Table {
	return &Table{Tree: NewTree(), next: 1}
}

// SpawnInit returns PID 1 with no parent, the root of the process tree.
func (t *Table) SpawnInit(dir *vmm.Directory) *Process {
	p := &Process{
		PID:     1,
		Group:   1,
		Job:     1,
		Session: 1,
		FDs:     vfsref.NewTable(),
		KStack:  make([]byte, KernelStackSize),
	}
	p.KStackAddr = kstackAddrFor(p.PID)
	p.Thread.Directory = dir
	t.next = 2
	t.list = append(t.list, p)
	t.Tree.AddRoot(p)
	return p
}

// SpawnProcess allocates a descriptor, assigns the next monotonically
// increasing PID, copies identity fields from parent, inherits the
// descriptor table by reference-count increment, attaches to parent in
// the tree, and returns the descriptor with empty queues and started=0
// (spec.md §4.4).
func (t *Table) SpawnProcess(parent *Process) *Process {
	pid := t.next
	t.next++

	parent.FDs.Retain()
	child := &Process{
		PID:     pid,
		Name:    parent.Name,
		CmdLine: append([]string(nil), parent.CmdLine...),
		User:    parent.User,
		Mask:    parent.Mask,
		Group:   parent.Group,
		Job:     parent.Job,
		Session: parent.Session,
		WDName:  parent.WDName,
		FDs:     parent.FDs,
		KStack:  make([]byte, KernelStackSize),
	}
	child.KStackAddr = kstackAddrFor(child.PID)

	t.list = append(t.list, child)
	t.Tree.Attach(parent, child)
	return child
}

// FromPID is an O(n) scan over the process list (process_from_pid).
func (t *Table) FromPID(pid PID) (*Process, bool) {
	for _, p := range t.list {
		if p.PID == pid {
			return p, true
		}
	}
	return nil, false
}

// All returns the live process list (not including reaped processes that
// have since been deleted).
func (t *Table) All() []*Process {
	return t.list
}

// Delete removes p from the process list once the reaper has freed its
// resources, and detaches it from the tree.
func (t *Table) Delete(p *Process) {
	for i, entry := range t.list {
		if entry == p {
			t.list = append(t.list[:i], t.list[i+1:]...)
			break
		}
	}
	t.Tree.Remove(p)
	p.Reaped = true
}

// AppendFD grows proc's descriptor table and installs node, returning its
// index (process_append_fd).
func AppendFD(p *Process, h vfsref.Handle) int {
	return p.FDs.Append(h)
}

// MoveFD replaces slot dest with the entry at src (process_move_fd).
func MoveFD(p *Process, src, dest int) {
	p.FDs.Move(src, dest)
}
