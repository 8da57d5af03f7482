// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package reconciler

import (
	"context"
	"fmt"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/dnsprovider"
)

// delete implements §4.5.3's five-step delete path. Every step absorbs a
// 404/already-gone outcome as success, so a delete that is retried after a
// partial failure converges rather than erroring forever.
func (r *Reconciler) delete(ctx context.Context, obj *ddnsv1alpha1.DDNS) (err error) {
	id := ddnsobject.IdentityOf(obj)

	ctx, span := r.tracer.Start(ctx, "reconciler.delete")
	defer span.End()
	defer func() { r.recordOutcome("delete", err) }()

	if !hasFinalizer(obj.Finalizers, ddnsv1alpha1.Finalizer) {
		// Never applied, or already fully torn down: nothing to do.
		return nil
	}

	// Step 1: the cleanup target is whatever was last actually published —
	// status, when present — falling back to spec only for an object that
	// never completed an apply before being deleted.
	domain := obj.Status.Domain
	zone := obj.Status.Zone
	if domain == "" {
		domain = obj.Spec.Domain
		zone = obj.Spec.Zone
	}

	// Step 2: mark the object as tearing down, so a concurrent observer
	// (and a restarted controller) can tell deletion is in progress.
	deletingStatus := ddnsv1alpha1.DDNSStatus{
		Status:   ddnsv1alpha1.StatusDeleting,
		Selector: obj.Spec.Selector,
		Domain:   domain,
		Zone:     zone,
	}
	if err := r.patch.PatchStatus(ctx, id, deletingStatus); err != nil && !r.isNotFound(err) {
		return fmt.Errorf("patch DELETING status for %s: %w", id, err)
	}

	// Step 3: remove every record this object ever published, both kinds.
	if domain != "" {
		if err := dnsprovider.RemoveRecords(ctx, r.provider, zone, domain, dnsprovider.A); err != nil {
			return fmt.Errorf("remove A records for %s: %w", id, err)
		}
		if err := dnsprovider.RemoveRecords(ctx, r.provider, zone, domain, dnsprovider.AAAA); err != nil {
			return fmt.Errorf("remove AAAA records for %s: %w", id, err)
		}
	}

	// Step 4: record completion before releasing the finalizer, so a crash
	// between these two patches still leaves an observable DELETED status.
	deletedStatus := deletingStatus
	deletedStatus.Status = ddnsv1alpha1.StatusDeleted
	if err := r.patch.PatchStatus(ctx, id, deletedStatus); err != nil && !r.isNotFound(err) {
		return fmt.Errorf("patch DELETED status for %s: %w", id, err)
	}

	// Step 5: release the finalizer fence, letting the API server garbage
	// collect the object.
	remaining := removeFinalizer(obj.Finalizers, ddnsv1alpha1.Finalizer)
	if err := r.patch.PatchFinalizers(ctx, id, remaining); err != nil && !r.isNotFound(err) {
		return fmt.Errorf("remove finalizer from %s: %w", id, err)
	}

	return nil
}

func removeFinalizer(finalizers []string, target string) []string {
	out := make([]string, 0, len(finalizers))
	for _, f := range finalizers {
		if f != target {
			out = append(out, f)
		}
	}
	return out
}
