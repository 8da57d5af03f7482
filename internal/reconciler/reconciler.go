// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package reconciler is the apply/delete state machine of §4.5: it
// computes the desired IP set, converges the DNS provider, patches status,
// and manages the finalizer.
package reconciler

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/dnsprovider"
	"github.com/containeredge/ddns-controller/internal/metrics"
)

// emptyLoadBalancerRetry is the §4.5.1 step-2 RETRY(d) duration used when a
// DDNS object's selector currently matches no externally-reachable IP.
const emptyLoadBalancerRetry = 3 * time.Second

// PatchClient is the subset of the cluster API client the Reconciler needs
// for finalizer and status merge-patches (§6.1).
type PatchClient interface {
	PatchFinalizers(ctx context.Context, id ddnsobject.Identity, finalizers []string) error
	PatchStatus(ctx context.Context, id ddnsobject.Identity, status ddnsv1alpha1.DDNSStatus) error
}

// ServiceLister lists Services in namespace whose labels are a superset of
// every pair in selector (AND across all pairs, §3's selector invariant).
type ServiceLister interface {
	ListBySelector(ctx context.Context, namespace string, selector map[string]string) ([]*corev1.Service, error)
}

// NotFoundChecker reports whether an error from PatchClient represents a
// 404 — the object-gone race absorbed as success throughout §4.5/§7.
type NotFoundChecker func(error) bool

// Reconciler implements the apply (§4.5.1) and delete (§4.5.3) state
// machines.
type Reconciler struct {
	patch      PatchClient
	services   ServiceLister
	provider   dnsprovider.Provider
	isNotFound NotFoundChecker
	log        logr.Logger
	tracer     trace.Tracer
}

// New builds a Reconciler over its external collaborators.
func New(patch PatchClient, services ServiceLister, provider dnsprovider.Provider, isNotFound NotFoundChecker, log logr.Logger) *Reconciler {
	return &Reconciler{
		patch:      patch,
		services:   services,
		provider:   provider,
		isNotFound: isNotFound,
		log:        log.WithName("reconciler"),
		tracer:     otel.Tracer("github.com/containeredge/ddns-controller/reconciler"),
	}
}

// Reconcile dispatches a snapshot to the apply or delete path, per the Per-
// Object Serialiser's own dispatch in §4.4 step 4 — duplicated here so the
// Reconciler alone is a complete, directly testable state machine.
func (r *Reconciler) Reconcile(ctx context.Context, obj *ddnsv1alpha1.DDNS) error {
	if obj.DeletionTimestamp != nil {
		return r.delete(ctx, obj)
	}
	return r.apply(ctx, obj)
}

func (r *Reconciler) recordOutcome(kind string, err error) {
	switch {
	case err == nil:
		metrics.ReconcilesTotal.WithLabelValues(kind, "success").Inc()
	case AsRetryAfterOutcome(err):
		metrics.ReconcilesTotal.WithLabelValues(kind, "retry").Inc()
	default:
		metrics.ReconcilesTotal.WithLabelValues(kind, "error").Inc()
	}
}

// AsRetryAfterOutcome reports whether err is a RetryAfter outcome, without
// needing the duration.
func AsRetryAfterOutcome(err error) bool {
	_, ok := AsRetryAfter(err)
	return ok
}
