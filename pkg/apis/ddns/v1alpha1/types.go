// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package v1alpha1 contains the DDNS custom resource schema.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Status values recorded in DDNSStatus.Status.
const (
	StatusRunning  = "RUNNING"
	StatusDeleting = "DELETING"
	StatusDeleted  = "DELETED"
)

// Finalizer is attached to every DDNS object the controller has applied at
// least once, and is only removed once a delete reconcile has completed.
// It must stay stable across releases: changing it strands previously
// finalized objects.
const Finalizer = "ddns.finalizer.containeredge.io"

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// DDNS binds a DNS record (domain + zone) to the union of load-balancer
// ingress IPs of every Service matched by Spec.Selector.
type DDNS struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DDNSSpec `json:"spec"`
	// +optional
	Status DDNSStatus `json:"status,omitempty"`
}

// DDNSSpec is user-owned; the controller never writes it.
type DDNSSpec struct {
	// Selector is a non-empty set of label key/value pairs. A Service
	// matches when every pair is present in its labels (selector ⊆ labels).
	Selector map[string]string `json:"selector"`
	// Domain is the DNS name the controller publishes.
	Domain string `json:"domain"`
	// Zone is the authoritative zone containing Domain.
	Zone string `json:"zone"`
}

// DDNSStatus mirrors the spec values as of the last successful apply.
type DDNSStatus struct {
	// +optional
	Status string `json:"status,omitempty"`
	// +optional
	Selector map[string]string `json:"selector,omitempty"`
	// +optional
	Domain string `json:"domain,omitempty"`
	// +optional
	Zone string `json:"zone,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// DDNSList is a list of DDNS objects.
type DDNSList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DDNS `json:"items"`
}
