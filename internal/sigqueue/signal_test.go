package sigqueue

import (
	"testing"

	"github.com/corvid-os/kernel/internal/proc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignalViaPageFaultScenario mirrors spec.md §8 scenario 3: a process
// with a registered SIGSEGV handler dereferences address 0, the fault
// synthesizes SIGSEGV, and the next dispatch runs the handler on the
// alternate kernel stack, restoring the original context on return.
func TestSignalViaPageFaultScenario(t *testing.T) {
	p := &proc.Process{KStack: make([]byte, proc.KernelStackSize)}
	p.Signals[SIGSEGV] = 0xC0DE1000
	p.Thread.EIP = 0x1234 // faulting instruction, interrupted

	Enqueue(p, SIGSEGV)
	require.True(t, HasPending(p))

	outcome, sig := Dispatch(p)
	assert.Equal(t, OutcomeHandled, outcome)
	assert.Equal(t, SIGSEGV, sig)
	assert.Equal(t, uintptr(0xC0DE1000), p.Thread.EIP)
	assert.NotNil(t, p.AltKStack)
	assert.True(t, p.InSignalHandler)
	assert.Equal(t, uintptr(0x1234), p.SignalState.EIP)

	ReturnFromHandler(p)
	assert.Equal(t, uintptr(0x1234), p.Thread.EIP, "must resume at the faulting instruction")
	assert.Nil(t, p.AltKStack)
	assert.False(t, p.InSignalHandler)
}

func TestDispatchWithNoHandlerSignalsDefaultTermination(t *testing.T) {
	p := &proc.Process{}
	Enqueue(p, SIGSEGV)

	outcome, sig := Dispatch(p)
	assert.Equal(t, OutcomeDefaultTerminate, outcome)
	assert.Equal(t, SIGSEGV, sig)
}

func TestDispatchWithNothingQueuedIsNoOp(t *testing.T) {
	p := &proc.Process{}
	outcome, _ := Dispatch(p)
	assert.Equal(t, OutcomeNone, outcome)
}

func TestSignalsDeliveredInEnqueueOrder(t *testing.T) {
	p := &proc.Process{KStack: make([]byte, proc.KernelStackSize)}
	p.Signals[5] = 0x1000
	p.Signals[6] = 0x2000
	Enqueue(p, 5)
	Enqueue(p, 6)

	_, sig := Dispatch(p)
	assert.Equal(t, 5, sig)
	ReturnFromHandler(p)

	_, sig = Dispatch(p)
	assert.Equal(t, 6, sig)
}
