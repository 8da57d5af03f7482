// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package serialiser_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/serialiser"
)

// blockingReconciler lets a test hold one reconcile in flight while more
// are submitted, to exercise the at-most-one-in-flight invariant (P1) and
// the burst-coalescing scenario.
type blockingReconciler struct {
	mu        sync.Mutex
	inFlight  int32
	maxInFlight int32
	release   chan struct{}
	calls     int32
}

func newBlockingReconciler() *blockingReconciler {
	return &blockingReconciler{release: make(chan struct{})}
}

func (r *blockingReconciler) Reconcile(_ context.Context, _ *ddnsv1alpha1.DDNS) error {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)

	r.mu.Lock()
	if n > r.maxInFlight {
		r.maxInFlight = n
	}
	r.mu.Unlock()

	atomic.AddInt32(&r.calls, 1)
	<-r.release
	return nil
}

func obj(name string) *ddnsv1alpha1.DDNS {
	return &ddnsv1alpha1.DDNS{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: name}}
}

// applied wraps obj as the Applied-kind event Submit expects from a normal
// create/update notification.
func applied(obj *ddnsv1alpha1.DDNS) ddnsobject.Event {
	return ddnsobject.Event{Kind: ddnsobject.Applied, Object: obj}
}

// deleted wraps obj as the Deleted-kind event the Object Watcher emits for a
// tombstone — the object itself may carry no deletion timestamp at all.
func deleted(obj *ddnsv1alpha1.DDNS) ddnsobject.Event {
	return ddnsobject.Event{Kind: ddnsobject.Deleted, Object: obj}
}

// TestAtMostOneInFlightPerIdentity is property P1: two submits for the same
// identity never reconcile concurrently.
func TestAtMostOneInFlightPerIdentity(t *testing.T) {
	rec := newBlockingReconciler()
	s := serialiser.New(rec, logr.Discard())

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- s.Submit(context.Background(), applied(obj("same"))) }()
	}

	// Give both submits a chance to reach the worker before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(rec.release)

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("submit %d returned error: %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&rec.maxInFlight); got != 1 {
		t.Fatalf("expected at most 1 concurrent reconcile for one identity, observed %d", got)
	}
	if got := atomic.LoadInt32(&rec.calls); got != 2 {
		t.Fatalf("expected both submits to be reconciled, got %d calls", got)
	}
}

// TestBurstCoalescing is the burst-coalescing scenario: a burst of submits for one identity
// all eventually complete, none with a panic or a lost reply, while the
// reconciler processes them one at a time.
func TestBurstCoalescing(t *testing.T) {
	rec := newBlockingReconciler()
	s := serialiser.New(rec, logr.Discard())

	const burst = 10
	done := make(chan error, burst)
	for i := 0; i < burst; i++ {
		i := i
		go func() {
			done <- s.Submit(context.Background(), applied(obj(fmt.Sprintf("burst-%d", i%1))))
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(rec.release)

	for i := 0; i < burst; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("submit returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for submit %d to complete", i)
		}
	}
}

// TestDistinctIdentitiesReconcileConcurrently is the "no ordering across
// identities" guarantee of §5: two distinct identities may both be in
// flight at once.
func TestDistinctIdentitiesReconcileConcurrently(t *testing.T) {
	rec := newBlockingReconciler()
	s := serialiser.New(rec, logr.Discard())

	done := make(chan error, 2)
	go func() { done <- s.Submit(context.Background(), applied(obj("a"))) }()
	go func() { done <- s.Submit(context.Background(), applied(obj("b"))) }()

	deadline := time.After(2 * time.Second)
	for {
		if atomic.LoadInt32(&rec.inFlight) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for both identities to be in flight concurrently")
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(rec.release)
	<-done
	<-done
}

// TestDeleteTerminatesWorker is part of §4.4 step 4: after a delete
// snapshot is processed, a later submit for the same identity gets a fresh
// worker rather than reusing the retired one.
func TestDeleteTerminatesWorker(t *testing.T) {
	rec := newBlockingReconciler()
	close(rec.release) // let every reconcile return immediately
	s := serialiser.New(rec, logr.Discard())

	deleting := obj("gone")
	deleting.DeletionTimestamp = &metav1.Time{Time: time.Now()}
	if err := s.Submit(context.Background(), applied(deleting)); err != nil {
		t.Fatalf("delete submit: %v", err)
	}

	recreated := obj("gone")
	if err := s.Submit(context.Background(), applied(recreated)); err != nil {
		t.Fatalf("submit after delete: %v", err)
	}

	if got := atomic.LoadInt32(&rec.calls); got != 2 {
		t.Fatalf("expected both the delete and the recreated submit to reconcile, got %d calls", got)
	}
}

// TestDeletedKindTerminatesWorkerWithoutTimestamp covers the Object
// Watcher's tombstone case: a Deleted-kind event whose object carries no
// deletion timestamp of its own (because it was never finalizer-guarded)
// must still be routed as a delete and terminate the worker, rather than
// falling through to apply and re-creating DNS state for a gone object.
func TestDeletedKindTerminatesWorkerWithoutTimestamp(t *testing.T) {
	rec := newBlockingReconciler()
	close(rec.release)
	s := serialiser.New(rec, logr.Discard())

	gone := obj("tombstoned")
	if err := s.Submit(context.Background(), deleted(gone)); err != nil {
		t.Fatalf("delete submit: %v", err)
	}

	recreated := obj("tombstoned")
	if err := s.Submit(context.Background(), applied(recreated)); err != nil {
		t.Fatalf("submit after delete: %v", err)
	}

	if got := atomic.LoadInt32(&rec.calls); got != 2 {
		t.Fatalf("expected both the delete and the recreated submit to reconcile, got %d calls", got)
	}
}
