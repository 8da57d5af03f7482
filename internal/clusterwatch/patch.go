// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package clusterwatch

import (
	"context"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
)

// PatchClient applies the merge-patches the Reconciler needs on metadata
// and the status subresource (§6.1). It wraps the dynamic client directly
// rather than a generated clientset — see DESIGN.md for why no
// code-generator dependency is wired for the DDNS resource.
type PatchClient struct {
	dyn dynamic.Interface
}

// NewPatchClient wraps a dynamic client for DDNS merge-patches.
func NewPatchClient(dyn dynamic.Interface) *PatchClient {
	return &PatchClient{dyn: dyn}
}

// PatchFinalizers merge-patches metadata.finalizers to finalizers. A 404 is
// reported back to the caller unchanged; callers absorb it per their own
// §7 rules (apply never expects one here, delete does).
func (c *PatchClient) PatchFinalizers(ctx context.Context, id ddnsobject.Identity, finalizers []string) error {
	patch := map[string]any{
		"metadata": map[string]any{
			"finalizers": finalizers,
		},
	}
	return c.patch(ctx, id, patch, "")
}

// PatchStatus merge-patches the status subresource to status.
func (c *PatchClient) PatchStatus(ctx context.Context, id ddnsobject.Identity, status ddnsv1alpha1.DDNSStatus) error {
	patch := map[string]any{
		"status": status,
	}
	return c.patch(ctx, id, patch, "status")
}

func (c *PatchClient) patch(ctx context.Context, id ddnsobject.Identity, patch map[string]any, subresource string) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal merge patch for %s: %w", id, err)
	}

	var subresources []string
	if subresource != "" {
		subresources = []string{subresource}
	}

	_, err = c.dyn.Resource(ddnsv1alpha1.GroupVersionResource).
		Namespace(id.Namespace).
		Patch(ctx, id.Name, types.MergePatchType, data, metav1.PatchOptions{}, subresources...)
	if err != nil {
		return fmt.Errorf("patch %s (subresource %q) for %s: %w", string(types.MergePatchType), subresource, id, err)
	}
	return nil
}
