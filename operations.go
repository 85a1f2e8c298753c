// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import "container/list"

// operation is a unit of deferred work the coordinator wants to run after
// the current poll-loop step completes, e.g. firing onnegotiationneeded
// once a batch of AddTrack/RemoveTrack calls settles.
type operation func()

// operations is a synchronous FIFO task queue. Unlike the teacher's
// goroutine-per-queue version, this module drives the queue from the
// coordinator's own poll loop (PeerConnection.HandleTimeout calls Run): the sans-I/O
// core never spawns a goroutine of its own, so Enqueue only appends and
// the caller is responsible for periodically draining it.
type operations struct {
	ops *list.List

	updateNegotiationNeededFlagOnEmptyChain *atomicBool
	onNegotiationNeeded                     func()
	isClosed                                bool
}

func newOperations(
	updateNegotiationNeededFlagOnEmptyChain *atomicBool,
	onNegotiationNeeded func(),
) *operations {
	return &operations{
		ops:                                     list.New(),
		updateNegotiationNeededFlagOnEmptyChain: updateNegotiationNeededFlagOnEmptyChain,
		onNegotiationNeeded:                     onNegotiationNeeded,
	}
}

// Enqueue adds a new action to be executed on the next Run. If the queue
// has been closed, the operation is dropped.
func (o *operations) Enqueue(op operation) {
	if op == nil || o.isClosed {
		return
	}
	o.ops.PushBack(op)
}

// IsEmpty checks if there are tasks in the queue.
func (o *operations) IsEmpty() bool {
	return o.ops.Len() == 0
}

// Run drains every currently-queued operation in order, then fires
// onNegotiationNeeded if the negotiation-needed latch was armed while the
// chain was non-empty (spec.md's three-state negotiation-needed latch).
// Called synchronously from the coordinator's poll step -- never spawns
// a goroutine, never blocks.
func (o *operations) Run() {
	for {
		e := o.ops.Front()
		if e == nil {
			break
		}
		o.ops.Remove(e)
		if op, ok := e.Value.(operation); ok {
			op()
		}
	}

	if !o.updateNegotiationNeededFlagOnEmptyChain.get() {
		return
	}
	o.updateNegotiationNeededFlagOnEmptyChain.set(false)
	o.onNegotiationNeeded()
}

// Done runs every queued operation synchronously and returns once the
// queue is empty; kept for API parity with the teacher's blocking Done,
// but here it's just an alias for Run since there is no background worker
// to wait on.
func (o *operations) Done() {
	o.Run()
}

// GracefulClose drains the queue one last time and forbids further
// enqueues.
func (o *operations) GracefulClose() {
	if o.isClosed {
		return
	}
	o.Run()
	o.isClosed = true
}
