// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package controller is the Controller Top-Level of §4.7: it owns
// construction order and merges the Object Watcher, Retry Queue, and
// Trigger output into a single input stream for the Per-Object Serialiser.
package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/containeredge/ddns-controller/internal/clusterwatch"
	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/errorpolicy"
	"github.com/containeredge/ddns-controller/internal/retryqueue"
	"github.com/containeredge/ddns-controller/internal/serialiser"
	"github.com/containeredge/ddns-controller/internal/trigger"
)

// Controller owns the watchers, the trigger, the retry queue, and the
// merge loop feeding the serialiser. Every component, including the
// reconciler and DNS client, is constructed by the caller
// (cmd/ddns-controller) and handed in already wired into serialiser and
// errorPolicy.
type Controller struct {
	objectWatcher  *clusterwatch.ObjectWatcher
	serviceWatcher *clusterwatch.ServiceWatcher
	trigger        *trigger.Trigger
	retryQueue     *retryqueue.Queue
	serialiser     *serialiser.Serialiser
	errorPolicy    *errorpolicy.Policy
	log            logr.Logger
}

// New wires every component of the reconciliation engine. The caller is
// responsible for constructing the cluster client, DNS provider,
// Reconciler, Serialiser and Error Policy first, per §4.7's ordering.
func New(
	objectWatcher *clusterwatch.ObjectWatcher,
	serviceWatcher *clusterwatch.ServiceWatcher,
	t *trigger.Trigger,
	retryQueue *retryqueue.Queue,
	s *serialiser.Serialiser,
	ep *errorpolicy.Policy,
	log logr.Logger,
) *Controller {
	return &Controller{
		objectWatcher:  objectWatcher,
		serviceWatcher: serviceWatcher,
		trigger:        t,
		retryQueue:     retryQueue,
		serialiser:     s,
		errorPolicy:    ep,
		log:            log.WithName("controller"),
	}
}

// Run starts every component and blocks until ctx is cancelled or any
// watcher stream terminates unexpectedly — which is treated as fatal to
// the whole process group, per §4.7: an errgroup cancels every other
// goroutine's context as soon as one member returns a non-nil error.
func (c *Controller) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	objectEvents := make(chan ddnsobject.Event)
	serviceEvents := make(chan clusterwatch.ServiceEvent)
	triggerEvents := make(chan ddnsobject.Event)

	group.Go(func() error {
		return c.objectWatcher.Run(ctx, objectEvents)
	})
	group.Go(func() error {
		return c.serviceWatcher.Run(ctx, serviceEvents)
	})
	group.Go(func() error {
		return c.trigger.Run(ctx, serviceEvents, triggerEvents)
	})
	group.Go(func() error {
		return c.mergeAndSubmit(ctx, objectEvents, triggerEvents, c.retryQueue.Out())
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	return nil
}

// mergeAndSubmit is the Controller-input loop of §5: it fans in the three
// upstream event sources and hands each snapshot to the serialiser,
// routing the outcome to the Error Policy.
func (c *Controller) mergeAndSubmit(
	ctx context.Context,
	objectEvents <-chan ddnsobject.Event,
	triggerEvents <-chan ddnsobject.Event,
	retryEvents <-chan ddnsobject.Event,
) error {
	for {
		var evt ddnsobject.Event
		select {
		case <-ctx.Done():
			return nil
		case evt = <-objectEvents:
		case evt = <-triggerEvents:
		case evt = <-retryEvents:
		}

		if evt.Object == nil {
			continue
		}

		go c.submitOne(ctx, evt)
	}
}

// submitOne runs one snapshot through the serialiser and routes its
// outcome to the Error Policy. It is fire-and-forget from the merge
// loop's point of view: the serialiser itself guarantees per-identity
// FIFO ordering, so the merge loop never waits for one snapshot to finish
// before accepting the next.
func (c *Controller) submitOne(ctx context.Context, evt ddnsobject.Event) {
	err := c.serialiser.Submit(ctx, evt)
	c.errorPolicy.Handle(ctx, evt.Object, err)
}
