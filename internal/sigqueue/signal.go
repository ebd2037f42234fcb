// Package sigqueue is signal delivery: per-process queues, and the
// dispatch that swaps to a shadow kernel stack, runs a user handler, and
// returns via the signal-return sentinel (spec.md §4.7).
package sigqueue

import "github.com/corvid-os/kernel/internal/proc"

// SIGSEGV is re-exported from proc so callers needn't import both
// packages just to synthesize the page-fault signal.
const SIGSEGV = proc.SIGSEGV

// Enqueue appends signal number sig to p's signal queue, in FIFO
// (enqueue) order, regardless of which kernel path raised it (page-fault
// synthesis, kill, IPC).
func Enqueue(p *proc.Process, sig int) {
	p.SignalQueue = append(p.SignalQueue, byte(sig))
}

// HasPending reports whether p has a queued signal.
func HasPending(p *proc.Process) bool {
	return len(p.SignalQueue) > 0
}

func dequeue(p *proc.Process) (int, bool) {
	if len(p.SignalQueue) == 0 {
		return 0, false
	}
	sig := int(p.SignalQueue[0])
	p.SignalQueue = p.SignalQueue[1:]
	return sig, true
}

// Outcome is what Dispatch did with the signal it dequeued.
type Outcome int

const (
	// OutcomeNone means there was no pending signal to dispatch.
	OutcomeNone Outcome = iota
	// OutcomeHandled means a registered handler now owns the CPU on the
	// alternate kernel stack.
	OutcomeHandled
	// OutcomeDefaultTerminate means the signal had no registered handler;
	// the caller must terminate the process with the signal number as its
	// exit status (spec.md §7).
	OutcomeDefaultTerminate
)

// Dispatch dequeues the next pending signal (if any) and delivers it: if
// p has no handler registered, the caller is told to terminate p with the
// signal number as status. Otherwise, it allocates the alternate kernel
// stack if absent, snapshots the current thread context into SignalState,
// copies the primary kernel stack into the alternate, and points the
// thread context's instruction pointer at the handler so the process
// resumes directly into it.
func Dispatch(p *proc.Process) (Outcome, int) {
	sig, ok := dequeue(p)
	if !ok {
		return OutcomeNone, 0
	}

	handler := p.HandlerFor(sig)
	if handler == 0 {
		return OutcomeDefaultTerminate, sig
	}

	if p.AltKStack == nil {
		p.AltKStack = make([]byte, proc.KernelStackSize)
	}
	p.SignalState = p.Thread
	copy(p.AltKStack, p.KStack)
	p.Thread.EIP = handler
	p.InSignalHandler = true

	return OutcomeHandled, sig
}

// ReturnFromHandler restores SignalState back into the thread context,
// discards the alternate stack, and resumes the interrupted code — run
// when the handler faults on the signal-return sentinel.
func ReturnFromHandler(p *proc.Process) {
	p.Thread = p.SignalState
	p.AltKStack = nil
	p.InSignalHandler = false
}
