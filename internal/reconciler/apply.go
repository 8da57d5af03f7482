// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package reconciler

import (
	"context"
	"fmt"
	"slices"
	"sort"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/clusterwatch"
	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/dnsprovider"
)

// apply implements §4.5.1's five-step apply path. It is convergent: running
// it twice in a row against an unchanged Service set is a no-op at the DNS
// provider (P7).
func (r *Reconciler) apply(ctx context.Context, obj *ddnsv1alpha1.DDNS) (err error) {
	id := ddnsobject.IdentityOf(obj)

	ctx, span := r.tracer.Start(ctx, "reconciler.apply")
	defer span.End()
	defer func() { r.recordOutcome("apply", err) }()

	// Step 1: if the domain moved since the last successful apply, the old
	// domain's records must be cleaned up first — a bare overwrite would
	// orphan them. A status with no prior Domain recorded means there is
	// nothing to clean up.
	if obj.Status.Domain != "" && obj.Status.Domain != obj.Spec.Domain {
		oldZone := obj.Status.Zone
		if oldZone == "" {
			oldZone = obj.Spec.Zone
		}
		if err := dnsprovider.RemoveRecords(ctx, r.provider, oldZone, obj.Status.Domain, dnsprovider.A); err != nil {
			return fmt.Errorf("clean up old domain %q (A): %w", obj.Status.Domain, err)
		}
		if err := dnsprovider.RemoveRecords(ctx, r.provider, oldZone, obj.Status.Domain, dnsprovider.AAAA); err != nil {
			return fmt.Errorf("clean up old domain %q (AAAA): %w", obj.Status.Domain, err)
		}
	}

	// Step 2: list every Service in this object's own namespace whose
	// labels are a superset of spec.Selector (single AND selector, not a
	// per-pair union — see DESIGN.md), and fold their ingress IPs into one
	// set.
	services, err := r.services.ListBySelector(ctx, obj.Namespace, obj.Spec.Selector)
	if err != nil {
		return fmt.Errorf("list services for %s: %w", id, err)
	}

	var v4, v6 []string
	for _, svc := range services {
		ips, err := clusterwatch.LoadBalancerIPs(svc)
		if err != nil {
			// An unparseable ingress IP is fatal for this pass (§3): it
			// signals a malformed Service the controller cannot reason
			// about, not a transient condition.
			return fmt.Errorf("%w", err)
		}
		for _, ip := range ips {
			if ip4 := ip.To4(); ip4 != nil {
				v4 = append(v4, ip4.String())
			} else {
				v6 = append(v6, ip.String())
			}
		}
	}

	if len(v4) == 0 && len(v6) == 0 {
		// No externally-reachable IP yet: an expected pending condition,
		// not an error (§4.5.1 step 2, §4.6).
		return RetryAfter(emptyLoadBalancerRetry)
	}

	sort.Strings(v4)
	sort.Strings(v6)
	v4 = slices.Compact(v4)
	v6 = slices.Compact(v6)

	// Step 3: converge the provider onto exactly the desired set, split by
	// record kind (§3, §10).
	if err := dnsprovider.SetRecordSet(ctx, r.provider, obj.Spec.Zone, obj.Spec.Domain, dnsprovider.A, v4); err != nil {
		return fmt.Errorf("converge A records for %s: %w", id, err)
	}
	if err := dnsprovider.SetRecordSet(ctx, r.provider, obj.Spec.Zone, obj.Spec.Domain, dnsprovider.AAAA, v6); err != nil {
		return fmt.Errorf("converge AAAA records for %s: %w", id, err)
	}

	// Step 4: ensure the finalizer is present before the object is allowed
	// to be considered "owned" by DNS state.
	if !hasFinalizer(obj.Finalizers, ddnsv1alpha1.Finalizer) {
		finalizers := append(append([]string{}, obj.Finalizers...), ddnsv1alpha1.Finalizer)
		if err := r.patch.PatchFinalizers(ctx, id, finalizers); err != nil && !r.isNotFound(err) {
			return fmt.Errorf("add finalizer to %s: %w", id, err)
		}
	}

	// Step 5: record what was actually published, so a future domain/zone
	// change can find and clean up the old records.
	status := ddnsv1alpha1.DDNSStatus{
		Status:   ddnsv1alpha1.StatusRunning,
		Selector: obj.Spec.Selector,
		Domain:   obj.Spec.Domain,
		Zone:     obj.Spec.Zone,
	}
	if err := r.patch.PatchStatus(ctx, id, status); err != nil && !r.isNotFound(err) {
		return fmt.Errorf("patch status for %s: %w", id, err)
	}

	return nil
}

func hasFinalizer(finalizers []string, target string) bool {
	for _, f := range finalizers {
		if f == target {
			return true
		}
	}
	return false
}
