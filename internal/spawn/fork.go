// Package spawn is fork and clone: duplicating or sharing an address
// space, translating and byte-copying the parent's kernel stack into the
// child's, and producing a child descriptor whose saved register frame
// differs from the parent's only in eax and stack-relative addresses
// (spec.md §4.6).
//
// The source models fork/clone's suspension point with a helper that is
// entered once and "returns" twice, once in the parent and once when the
// child is later scheduled. This module does not emulate that with Go
// coroutines or goroutines (see DESIGN.md); instead Fork and Clone are
// ordinary synchronous functions that compute both branches' resulting
// state directly: the child descriptor is built with eax already set to
// its resume value, and the function's own return value is what the
// parent's syscall sees. The scheduler resumes the child later by
// installing its saved thread context exactly like any other process.
package spawn

import (
	"encoding/binary"

	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sched"
	"github.com/corvid-os/kernel/internal/vmm"
	"github.com/corvid-os/kernel/internal/x86"
)

// stampStackMagic writes the corruption canary at the base of a freshly
// allocated kernel stack.
func stampStackMagic(stack []byte) {
	binary.LittleEndian.PutUint32(stack, x86.StackMagic)
}

// checkStackMagic panics if a kernel stack's canary has been corrupted —
// spec.md §4.6's "a magic sentinel is asserted on both branches."
func checkStackMagic(stack []byte) {
	if len(stack) < 4 || binary.LittleEndian.Uint32(stack) != x86.StackMagic {
		panic("spawn: kernel stack magic mismatch")
	}
}

// relocate copies parent's kernel stack into child's and translates the
// parent's saved esp/ebp and syscall-frame pointer by the signed
// difference between the two stacks' base addresses, so every
// stack-relative address the child resumes with points into its own
// stack rather than the parent's (spec.md §4.6 steps 6a-6d).
func relocate(parent, child *proc.Process) {
	copy(child.KStack, parent.KStack)

	delta := int64(child.KStackAddr) - int64(parent.KStackAddr)
	child.Thread.ESP = uintptr(int64(parent.Thread.ESP) + delta)
	child.Thread.EBP = uintptr(int64(parent.Thread.EBP) + delta)

	if parent.SyscallFrame != nil {
		child.SyscallFrame = parent.SyscallFrame.Clone()
		child.SyscallFrame.Relocate(delta)
	}
}

// Fork deep-copies parent's address space, obtains a child descriptor via
// spawn_process, translates and copies the kernel stack, points the
// child's resume instruction pointer at the same place the parent is
// resuming from (both branches resume past the same syscall), and sets
// the child's eax to 0. It enqueues the child ready to run and returns
// the child descriptor — the PID the parent's fork() syscall returns.
func Fork(table *proc.Table, ready *sched.ReadyQueue, parent *proc.Process) (*proc.Process, error) {
	checkStackMagic(parent.KStack)

	childDir, err := vmm.CloneDirectory(parent.Thread.Directory)
	if err != nil {
		return nil, err
	}

	child := table.SpawnProcess(parent)
	stampStackMagic(child.KStack)

	child.Thread.Directory = childDir
	child.Thread.EIP = parent.Thread.EIP
	relocate(parent, child)
	if child.SyscallFrame != nil {
		child.SyscallFrame.Eax = 0
	}

	child.Started = true
	ready.PushBack(child)
	return child, nil
}
