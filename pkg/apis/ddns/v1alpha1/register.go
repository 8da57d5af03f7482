// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// GroupName is the API group of the DDNS custom resource.
	GroupName = "ddns.containeredge.io"
	// Version is the API version of the DDNS custom resource.
	Version = "v1alpha1"

	// Kind is the unqualified kind name of the DDNS custom resource.
	Kind = "DDNS"
	// Resource is the plural resource name of the DDNS custom resource.
	Resource = "ddnses"
)

// SchemeGroupVersion is the group version used to register DDNS types.
var SchemeGroupVersion = schema.GroupVersion{Group: GroupName, Version: Version}

// GroupVersionResource identifies the DDNS resource for the dynamic client.
var GroupVersionResource = SchemeGroupVersion.WithResource(Resource)

// GroupVersionKind identifies the DDNS kind for the dynamic client.
var GroupVersionKind = SchemeGroupVersion.WithKind(Kind)

var (
	// SchemeBuilder collects functions that add types to a scheme.
	SchemeBuilder = runtime.NewSchemeBuilder(addKnownTypes)
	// AddToScheme adds the DDNS types to an existing scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

func addKnownTypes(scheme *runtime.Scheme) error {
	scheme.AddKnownTypes(SchemeGroupVersion,
		&DDNS{},
		&DDNSList{},
	)
	metav1.AddToGroupVersion(scheme, SchemeGroupVersion)
	return nil
}
