package spawn

import (
	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sched"
	"github.com/corvid-os/kernel/internal/x86"
)

// writeUint32 stores a little-endian word through the physical-memory
// arena one byte at a time, the same primitive the identity-mapped kernel
// uses to touch user memory directly.
func writeUint32(mem *x86.PhysMem, addr uintptr, v uint32) {
	mem.WriteByte(addr+0, byte(v))
	mem.WriteByte(addr+1, byte(v>>8))
	mem.WriteByte(addr+2, byte(v>>16))
	mem.WriteByte(addr+3, byte(v>>24))
}

// Clone shares parent's address space (incrementing its reference count
// rather than copying it), obtains a child descriptor, copies and
// relocates the kernel stack and syscall frame as Fork does (eax 0), and
// sets the child up as a fresh thread: the caller-supplied argument and the
// thread-return sentinel are pushed onto the supplied user stack in cdecl
// order so that when the thread entry point eventually executes `ret` it
// resumes at x86.ThreadReturn with arg as its first parameter, and the
// child's saved eip/esp point directly at entry/the prepared stack
// (spec.md §4.6's clone paragraph).
func Clone(table *proc.Table, ready *sched.ReadyQueue, mem *x86.PhysMem, parent *proc.Process, userStack, entry uintptr, arg uint32) (*proc.Process, error) {
	checkStackMagic(parent.KStack)

	parent.Thread.Directory.Retain()

	child := table.SpawnProcess(parent)
	stampStackMagic(child.KStack)
	child.Thread.Directory = parent.Thread.Directory
	relocate(parent, child)
	if child.SyscallFrame != nil {
		child.SyscallFrame.Eax = 0
	}

	sp := userStack
	sp -= 4
	writeUint32(mem, sp, arg)
	sp -= 4
	writeUint32(mem, sp, uint32(x86.ThreadReturn))

	child.Thread.ESP = sp
	child.Thread.EBP = sp
	child.Thread.EIP = entry
	child.Image.UserStack = userStack

	child.Started = true
	ready.PushBack(child)
	return child, nil
}
