// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package trigger fans service-change events out to every DDNS object whose
// selector matches the changed service's labels (§4.3).
package trigger

import (
	"context"

	"github.com/go-logr/logr"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/clusterwatch"
	"github.com/containeredge/ddns-controller/internal/ddnsobject"
)

// ObjectLister is the subset of ObjectWatcher the Trigger needs: a local,
// in-process index of known DDNS objects. The cluster's label-selector list
// parameter cannot answer "whose selector is a subset of these labels", so
// matching happens here instead, against objects already listed by
// namespace (§4.3 rationale).
type ObjectLister interface {
	ListByNamespace(namespace string) ([]*ddnsv1alpha1.DDNS, error)
}

// Trigger is the Service → DDNS fan-out component.
type Trigger struct {
	objects ObjectLister
	log     logr.Logger
}

// New builds a Trigger over the given object index.
func New(objects ObjectLister, log logr.Logger) *Trigger {
	return &Trigger{objects: objects, log: log.WithName("trigger")}
}

// Run consumes service events from in and pushes one reconcile Event per
// matching DDNS object onto out, until in closes or ctx is cancelled. A
// listing failure is logged and simply skipped for that service event —
// per §4.3, the fan-out is best-effort and not fatal.
func (t *Trigger) Run(ctx context.Context, in <-chan clusterwatch.ServiceEvent, out chan<- ddnsobject.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-in:
			if !ok {
				return nil
			}
			t.handle(ctx, evt, out)
		}
	}
}

func (t *Trigger) handle(ctx context.Context, evt clusterwatch.ServiceEvent, out chan<- ddnsobject.Event) {
	svc := evt.Service
	candidates, err := t.objects.ListByNamespace(svc.Namespace)
	if err != nil {
		t.log.Error(err, "list ddns candidates for service failed, will retry on next service event",
			"namespace", svc.Namespace, "service", svc.Name)
		return
	}

	for _, candidate := range candidates {
		if !selectorIsSubset(candidate.Spec.Selector, svc.Labels) {
			continue
		}
		select {
		case out <- ddnsobject.Event{Kind: ddnsobject.Applied, Object: candidate}:
		case <-ctx.Done():
			return
		}
	}
}

// selectorIsSubset reports whether every (key, value) pair in selector is
// present in labels — "DDNS.selector ⊆ service.labels", per §4.3.
func selectorIsSubset(selector, labels map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}
