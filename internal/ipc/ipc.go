// Package ipc is synchronous send/receive message passing: a sender
// either rendezvouses immediately with a blocked receiver or queues
// itself on the target's sender queue; a receiver either takes a queued
// sender's message immediately or blocks on the source's receiver queue.
package ipc

import (
	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sched"
)

// Message is the payload exchanged by a single send/recv rendezvous.
type Message struct {
	From proc.PID
	Body []byte
}

// Outbox tracks the message each currently-blocked sender is trying to
// deliver. It belongs to the kernel-wide context, not a package global,
// so independent kernels (and tests) never share state.
type Outbox struct {
	pending map[proc.PID][]byte
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox { return &Outbox{pending: map[proc.PID][]byte{}} }

// Send implements spec.md §4.9's send(to, msg): if target is already
// blocked receiving from me or from any, the message is delivered
// directly and target is re-queued as runnable. Otherwise me blocks as
// sending, appended to target's sender queue, and Send reports that the
// caller must remove me from the ready queue and yield.
func Send(ready *sched.ReadyQueue, out *Outbox, me, target *proc.Process, body []byte) (delivered bool) {
	if target.SendingOrReceiving == proc.Receiving &&
		(target.RecvFrom == proc.Any || target.RecvFrom == me.PID) {
		target.PendingMsg = body
		target.SendingOrReceiving = proc.Running
		target.RecvFrom = me.PID // sender of PendingMsg, read back by Recv
		ready.PushBack(target)
		return true
	}

	me.SendingOrReceiving = proc.Sending
	me.SendTo = target.PID
	target.SenderQueue = append(target.SenderQueue, me.PID)
	out.pending[me.PID] = body
	return false
}

// Lookup resolves a PID to its process descriptor; the caller supplies it
// since the process table lives in the kernel-wide context, not here.
type Lookup func(proc.PID) (*proc.Process, bool)

// Recv implements spec.md §4.9's recv(from). A message Send already
// delivered into me.PendingMsg is returned first (this is the blocked
// recv resuming), with its sender. Otherwise Recv scans me's sender queue for
// an entry matching from (or any); if found, copies that sender's
// message, re-queues the sender as runnable, and returns the message
// directly. Otherwise me blocks as receiving, recorded on the named
// source's receiver queue (nothing to record for Any), and Recv reports
// that the caller must remove me from the ready queue and yield.
func Recv(ready *sched.ReadyQueue, out *Outbox, lookup Lookup, me *proc.Process, from proc.PID) (Message, bool) {
	if me.PendingMsg != nil && (from == proc.Any || from == me.RecvFrom) {
		msg := Message{From: me.RecvFrom, Body: me.PendingMsg}
		me.PendingMsg = nil
		me.RecvFrom = 0
		return msg, true
	}

	for i, senderPID := range me.SenderQueue {
		if from != proc.Any && senderPID != from {
			continue
		}
		sender, ok := lookup(senderPID)
		if !ok {
			continue
		}
		msg := Message{From: senderPID, Body: out.pending[senderPID]}
		delete(out.pending, senderPID)

		me.SenderQueue = append(me.SenderQueue[:i], me.SenderQueue[i+1:]...)
		sender.SendingOrReceiving = proc.Running
		sender.SendTo = 0
		ready.PushBack(sender)
		return msg, true
	}

	me.SendingOrReceiving = proc.Receiving
	me.RecvFrom = from
	if from != proc.Any {
		if src, ok := lookup(from); ok {
			src.ReceiverQueue = append(src.ReceiverQueue, me.PID)
		}
	}
	return Message{}, false
}
