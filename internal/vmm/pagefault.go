package vmm

import "github.com/corvid-os/kernel/internal/x86"

// FaultAction is the scheduler-independent classification of a page
// fault; the kernel package maps it onto process-level actions (none of
// which vmm knows about directly, to avoid a dependency cycle with proc).
type FaultAction int

const (
	// FaultSignalReturn means the faulting instruction pointer is the
	// signal-return sentinel: run return-from-signal-handler.
	FaultSignalReturn FaultAction = iota
	// FaultThreadReturn means the faulting instruction pointer is the
	// thread-return sentinel: terminate the current task with status 0.
	FaultThreadReturn
	// FaultSegv means neither sentinel matched: synthesize SIGSEGV.
	FaultSegv
)

// ClassifyFault implements spec.md §4.2's page-fault policy: the faulting
// instruction pointer is compared against the two reserved sentinels
// before falling back to a synthesized segmentation signal.
func ClassifyFault(faultingEIP uintptr) FaultAction {
	switch faultingEIP {
	case x86.SignalReturn:
		return FaultSignalReturn
	case x86.ThreadReturn:
		return FaultThreadReturn
	default:
		return FaultSegv
	}
}
