// Package proc is the process table and tree: process descriptors,
// parent/child membership, PID lookup, and the descriptor table the
// syscall layer grows through process_append_fd/process_move_fd.
package proc

import (
	"github.com/corvid-os/kernel/internal/shmref"
	"github.com/corvid-os/kernel/internal/syscallframe"
	"github.com/corvid-os/kernel/internal/vfsref"
	"github.com/corvid-os/kernel/internal/vmm"
)

// PID is a process (or thread) identifier.
type PID int32

// NoTask and Any are the two sentinel peer values IPC send/recv accept in
// place of a concrete PID (spec.md §4.9 data model: PROC_ANY / PROC_NO_TASK).
const (
	Any    PID = -1
	NoTask PID = -2
)

// IPCState is a process's send/receive/running state for the message IPC
// subsystem.
type IPCState int

const (
	Running IPCState = iota
	Sending
	Receiving
)

// Membership records which of the mutually-exclusive queues a process
// currently belongs to (spec.md §8: "a process is in at most one of
// these"). Only MemberReady and MemberSleeper are ever set, by the ready
// queue and the sleeper list; internal/ipc does not set MemberSenderQueue
// or MemberReceiverQueue, and an IPC-blocked process is recognized by its
// SendingOrReceiving state instead.
type Membership int

const (
	MemberNone Membership = iota
	MemberReady
	MemberSleeper
	MemberSenderQueue
	MemberReceiverQueue
)

// ThreadContext is the saved CPU context for a suspended thread: stack
// pointer, base pointer, instruction pointer, FPU state, and the owning
// page directory (spec.md §3 data model).
type ThreadContext struct {
	ESP, EBP, EIP uintptr
	FPU           [512]byte
	Directory     *vmm.Directory
}

// Image is the portable image struct: entry point, heap pointer, and
// stack tops for the process's user-space binary image.
type Image struct {
	Size       uintptr
	Entry      uintptr
	Heap       uintptr
	HeapActual uintptr
	Stack      uintptr
	UserStack  uintptr
	Start      uintptr
	ShmHeap    uintptr
}

// KernelStackSize is the size in bytes of a process's primary and
// alternate kernel stacks.
const KernelStackSize = 0x8000

// Process is the process descriptor: identity, image, queues, and the two
// kernel stacks spec.md §3 describes.
type Process struct {
	PID     PID
	Name    string
	CmdLine []string
	User    uint32
	Mask    int

	Group, Job, Session PID

	Thread ThreadContext
	Image  Image

	WDName string
	FDs    *vfsref.Table

	Status   byte
	Started  bool
	Finished bool
	Reaped   bool

	Signals         [NumSignalsTableLen]uintptr // handler addresses, 0 = default
	SignalQueue     []byte                      // queued signal numbers, enqueue order
	SignalState     ThreadContext
	KStack          []byte
	KStackAddr      uintptr // base virtual address KStack is mapped at
	AltKStack       []byte
	InSignalHandler bool

	SyscallFrame *syscallframe.Frame

	WaitQueue []PID // processes blocked in waitpid(this pid)

	ShmMappings []shmref.Mapping

	SendingOrReceiving IPCState
	SendTo, RecvFrom   PID
	SenderQueue        []PID
	ReceiverQueue      []PID
	PendingMsg         []byte

	Membership Membership

	parentIdx int // tree.go: index into Tree.nodes, -1 for init
}

// NumSignalsTableLen is NUMSIGNALS+1: spec.md §3 sizes the signal table at
// NUMSIGNALS+1 so signal numbers can be used as a 1-based index directly.
const NumSignalsTableLen = NumSignals + 1

// HandlerFor returns the registered handler address for signal number sig
// (0 means default disposition).
func (p *Process) HandlerFor(sig int) uintptr {
	return p.Signals[sig]
}
