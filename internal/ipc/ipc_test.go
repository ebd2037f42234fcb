package ipc

import (
	"testing"

	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLookup(procs ...*proc.Process) Lookup {
	return func(pid proc.PID) (*proc.Process, bool) {
		for _, p := range procs {
			if p.PID == pid {
				return p, true
			}
		}
		return nil, false
	}
}

// TestRecvThenSendNeverBlocks mirrors spec.md §8 scenario 5, first
// ordering: A calls recv(any) then B calls send(A, m); B must never
// block and A must resume with msg == m.
func TestRecvThenSendNeverBlocks(t *testing.T) {
	ready := sched.NewReadyQueue()
	out := NewOutbox()
	a := &proc.Process{PID: 1}
	b := &proc.Process{PID: 2}
	lookup := newLookup(a, b)

	_, ok := Recv(ready, out, lookup, a, proc.Any)
	require.False(t, ok, "A must block, no sender queued yet")
	assert.Equal(t, proc.Receiving, a.SendingOrReceiving)

	delivered := Send(ready, out, b, a, []byte("m"))
	assert.True(t, delivered, "B must never block")
	assert.Equal(t, proc.Running, a.SendingOrReceiving)
	assert.Equal(t, []byte("m"), a.PendingMsg)
	assert.Equal(t, 1, ready.Len(), "A must be re-queued runnable")
}

// TestSendThenRecvReturnsImmediately mirrors spec.md §8 scenario 5,
// reversed ordering: B blocks in send, A's later recv returns m
// immediately and B is re-queued.
func TestSendThenRecvReturnsImmediately(t *testing.T) {
	ready := sched.NewReadyQueue()
	out := NewOutbox()
	a := &proc.Process{PID: 1}
	b := &proc.Process{PID: 2}
	lookup := newLookup(a, b)

	delivered := Send(ready, out, b, a, []byte("m"))
	assert.False(t, delivered, "B must block, A isn't receiving yet")
	assert.Equal(t, proc.Sending, b.SendingOrReceiving)
	assert.Equal(t, []proc.PID{2}, a.SenderQueue)

	msg, ok := Recv(ready, out, lookup, a, proc.Any)
	require.True(t, ok)
	assert.Equal(t, []byte("m"), msg.Body)
	assert.Equal(t, proc.PID(2), msg.From)
	assert.Equal(t, proc.Running, b.SendingOrReceiving)
	assert.Equal(t, 1, ready.Len(), "B must be re-queued runnable")
	assert.Empty(t, a.SenderQueue)
}

func TestRecvFromSpecificPIDIgnoresOtherSenders(t *testing.T) {
	ready := sched.NewReadyQueue()
	out := NewOutbox()
	a := &proc.Process{PID: 1}
	b := &proc.Process{PID: 2}
	c := &proc.Process{PID: 3}
	lookup := newLookup(a, b, c)

	Send(ready, out, b, a, []byte("from b"))
	_, ok := Recv(ready, out, lookup, a, c.PID)
	assert.False(t, ok, "no message from c queued yet")

	Send(ready, out, c, a, []byte("from c"))
	msg, ok := Recv(ready, out, lookup, a, c.PID)
	require.True(t, ok)
	assert.Equal(t, []byte("from c"), msg.Body)
}
