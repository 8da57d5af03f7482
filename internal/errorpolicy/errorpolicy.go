// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package errorpolicy classifies reconcile outcomes into the three-way
// taxonomy of §4.6 — RETRY(d), OTHER, ABORTED — and schedules re-enqueue
// onto the Retry Queue off the reconcile path.
package errorpolicy

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/reconciler"
)

// defaultRetryDelay is the §4.6 OTHER(err) sleep: any error the reconciler
// did not classify as a specific RETRY(d) still gets unbounded eventual
// retry, never terminal abandonment.
const defaultRetryDelay = 3 * time.Second

// Pusher re-enqueues a snapshot onto the Retry Queue.
type Pusher interface {
	Push(ctx context.Context, obj *ddnsv1alpha1.DDNS)
}

// Policy owns the fire-and-forget timer tasks that turn a reconcile outcome
// into a delayed retry-queue push.
type Policy struct {
	queue Pusher
	log   logr.Logger
}

// New builds a Policy pushing retries onto queue.
func New(queue Pusher, log logr.Logger) *Policy {
	return &Policy{queue: queue, log: log.WithName("error-policy")}
}

// Handle classifies err (the outcome of reconciling obj) and, for RETRY and
// OTHER, schedules a timer task that pushes obj back onto the Retry Queue
// after the appropriate delay. ABORTED and nil (success) do nothing.
//
// The timer task exits early if ctx is cancelled before it fires, matching
// §5's "Cancellation" note that a controller shutdown drops outstanding
// tasks rather than queuing work against a client that is about to
// disappear; convergent reconciliation repairs any state the dropped retry
// would have fixed on the next process start.
func (p *Policy) Handle(ctx context.Context, obj *ddnsv1alpha1.DDNS, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, reconciler.ErrAborted) {
		// A pre-empted worker: the replacement work already subsumes it.
		return
	}

	delay := defaultRetryDelay
	if d, ok := reconciler.AsRetryAfter(err); ok {
		delay = d
	}

	p.log.V(1).Info("scheduling retry", "delay", delay, "namespace", obj.Namespace, "name", obj.Name, "cause", err)

	go p.scheduleRetry(ctx, obj, delay)
}

func (p *Policy) scheduleRetry(ctx context.Context, obj *ddnsv1alpha1.DDNS, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		p.queue.Push(ctx, obj)
	case <-ctx.Done():
	}
}
