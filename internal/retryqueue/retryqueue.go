// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package retryqueue is the Retry Queue component (§2 item 4, §4.6): an
// unbounded channel of DDNS snapshots merged into the reconcile input,
// fed by the Error Policy's delayed re-enqueues.
package retryqueue

import (
	"context"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/metrics"
)

// Queue is an "unbounded" channel of delayed re-enqueues. It is backed by
// a growable slice rather than a fixed-capacity Go channel so that a
// backlog of retries can never deadlock the Error Policy's timer
// goroutines, matching §2's "unbounded channel" wording.
type Queue struct {
	in  chan ddnsobject.Event
	out chan ddnsobject.Event
}

// New creates an empty Retry Queue and starts its internal pump goroutine,
// which runs until ctx is cancelled.
func New(ctx context.Context) *Queue {
	q := &Queue{
		in:  make(chan ddnsobject.Event),
		out: make(chan ddnsobject.Event),
	}
	go q.pump(ctx)
	return q
}

// Push schedules obj to be re-enqueued. It never blocks on backpressure
// from the consumer side — the internal pump buffers unboundedly.
func (q *Queue) Push(ctx context.Context, obj *ddnsv1alpha1.DDNS) {
	select {
	case q.in <- ddnsobject.Event{Kind: ddnsobject.Applied, Object: obj}:
	case <-ctx.Done():
	}
}

// Out is the stream the Controller Top-Level merges into the serialiser's
// input.
func (q *Queue) Out() <-chan ddnsobject.Event {
	return q.out
}

// pump implements the unbounded buffer: an internal FIFO of pending
// entries, fed from in and drained into out whenever a reader is ready.
func (q *Queue) pump(ctx context.Context) {
	var pending []ddnsobject.Event

	for {
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case e := <-q.in:
				pending = append(pending, e)
				metrics.RetryQueueDepth.Set(float64(len(pending)))
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case e := <-q.in:
			pending = append(pending, e)
			metrics.RetryQueueDepth.Set(float64(len(pending)))
		case q.out <- pending[0]:
			pending = pending[1:]
			metrics.RetryQueueDepth.Set(float64(len(pending)))
		}
	}
}
