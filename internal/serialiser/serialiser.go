// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package serialiser is the Per-Object Serialiser of §4.4: it guarantees
// at-most-one concurrent reconcile per DDNS identity, coalesces bursts into
// a depth-3 FIFO per identity, and terminates the per-identity worker once
// a delete has been processed.
package serialiser

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/metrics"
	"github.com/containeredge/ddns-controller/internal/reconciler"
)

// fifoDepth is the per-identity FIFO capacity named in §4.4 step 2.
const fifoDepth = 3

// Reconciler is the single collaborator a worker drives its FIFO into.
type Reconciler interface {
	Reconcile(ctx context.Context, obj *ddnsv1alpha1.DDNS) error
}

type job struct {
	evt   ddnsobject.Event
	reply chan error
}

// Serialiser owns the identity → worker map and exposes the single public
// Submit operation of §4.4.
type Serialiser struct {
	reconciler Reconciler
	log        logr.Logger

	mu      sync.Mutex
	workers map[ddnsobject.Identity]chan job
}

// New builds a Serialiser driving reconciler.
func New(reconciler Reconciler, log logr.Logger) *Serialiser {
	return &Serialiser{
		reconciler: reconciler,
		log:        log.WithName("serialiser"),
		workers:    make(map[ddnsobject.Identity]chan job),
	}
}

// Submit enqueues evt's snapshot for its identity and returns the eventual
// outcome once the worker drains it (§4.4 steps 1–3, 5). FIFO overflow
// back-pressures the caller: Submit blocks until the worker has room. The
// event's Kind is carried through to the worker alongside the object itself,
// so a Deleted-kind snapshot is routed to the delete path even when the
// object carries no deletion timestamp of its own (the Object Watcher's
// tombstone case — see ddnsobject.Event.IsDelete).
func (s *Serialiser) Submit(ctx context.Context, evt ddnsobject.Event) error {
	id := ddnsobject.IdentityOf(evt.Object)
	reply := make(chan error, 1)
	j := job{evt: evt, reply: reply}

	fifo := s.fifoFor(id)

	select {
	case fifo <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fifoFor returns id's FIFO, lazily creating it and spawning its worker if
// this is the first submit for id (§4.4 step 2). The map mutation is the
// only place that needs exclusion — lookups and the create-if-absent check
// happen under the same lock.
func (s *Serialiser) fifoFor(id ddnsobject.Identity) chan job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fifo, ok := s.workers[id]; ok {
		return fifo
	}

	fifo := make(chan job, fifoDepth)
	s.workers[id] = fifo
	metrics.ActiveWorkers.Inc()
	go s.worker(id, fifo)
	return fifo
}

// worker drains fifo sequentially (§4.4 step 4): a delete snapshot
// unregisters the identity and terminates the worker after it is handled; a
// non-delete snapshot is reconciled and the worker continues.
func (s *Serialiser) worker(id ddnsobject.Identity, fifo chan job) {
	defer metrics.ActiveWorkers.Dec()

	for j := range fifo {
		if j.evt.IsDelete() {
			obj := j.evt.Object
			if obj.DeletionTimestamp == nil {
				// A Deleted-kind tombstone: stamp a copy so the Reconciler's
				// own dispatch takes the delete path, not apply.
				obj = obj.DeepCopy()
				now := metav1.Now()
				obj.DeletionTimestamp = &now
			}
			s.unregister(id)
			j.reply <- s.reconciler.Reconcile(context.Background(), obj)
			close(j.reply)
			s.abortRemainder(fifo)
			return
		}

		j.reply <- s.reconciler.Reconcile(context.Background(), j.evt.Object)
		close(j.reply)
	}
}

// abortRemainder delivers ErrAborted to any jobs already buffered behind
// the delete this worker just processed. The worker never reconciles them:
// the identity's lifetime ended with the delete, and a replacement submit
// after this point gets a fresh worker via a new map entry (§4.4 step 4).
// This is the one path in this implementation that produces the ABORTED
// outcome of §4.6.
func (s *Serialiser) abortRemainder(fifo chan job) {
	for {
		select {
		case j := <-fifo:
			j.reply <- reconciler.ErrAborted
			close(j.reply)
		default:
			return
		}
	}
}

// unregister removes id's map entry; a subsequent Submit for id finds no
// worker and creates a fresh slot, per §4.4 step 4's "correct, since a
// deleted object reappearing is a new lifetime" rationale. The old FIFO is
// deliberately left open rather than closed: a concurrent Submit that
// already read it from the map before this point may still be sending on
// it, and closing out from under a sender would panic. Anything still
// buffered on it is drained and aborted by abortRemainder; anything sent to
// it afterwards is never read and is reclaimed by the garbage collector
// once its sender gives up — which can only happen via context
// cancellation, since Submit itself never abandons a send it started.
func (s *Serialiser) unregister(id ddnsobject.Identity) {
	s.mu.Lock()
	delete(s.workers, id)
	s.mu.Unlock()
}
