// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap installs the DDNS CustomResourceDefinition at process
// start when requested. It is not part of the reconciliation engine: it
// runs once before the Controller Top-Level is constructed and carries no
// invariant from the testable properties.
package bootstrap

import (
	"context"
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"
)

// crdName is the cluster-scoped name of the DDNS CustomResourceDefinition.
const crdName = ddnsv1alpha1.Resource + "." + ddnsv1alpha1.GroupName

// InstallCRD creates the DDNS CustomResourceDefinition if it does not
// already exist. An already-existing CRD (of whatever version) is left
// untouched — this is a bootstrap convenience, not a schema migration tool.
func InstallCRD(ctx context.Context, client apiextensionsclient.Interface) error {
	crd := &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: crdName},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: ddnsv1alpha1.GroupName,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   ddnsv1alpha1.Resource,
				Singular: "ddns",
				Kind:     ddnsv1alpha1.Kind,
				ListKind: ddnsv1alpha1.Kind + "List",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    ddnsv1alpha1.Version,
					Served:  true,
					Storage: true,
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: schema(),
					},
				},
			},
		},
	}

	_, err := client.ApiextensionsV1().CustomResourceDefinitions().Create(ctx, crd, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create %s CRD: %w", crdName, err)
	}
	return nil
}

// schema is a structural schema typing only the fields the engine reads
// (selector, domain, zone, status). It sets no
// x-kubernetes-preserve-unknown-fields, so the API server prunes any other
// field under spec or status.
func schema() *apiextensionsv1.JSONSchemaProps {
	stringMap := &apiextensionsv1.JSONSchemaProps{
		Type:                 "object",
		AdditionalProperties: &apiextensionsv1.JSONSchemaPropsOrBool{Schema: &apiextensionsv1.JSONSchemaProps{Type: "string"}},
	}

	return &apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"spec": {
				Type:     "object",
				Required: []string{"selector", "domain", "zone"},
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"selector": *stringMap,
					"domain":   {Type: "string"},
					"zone":     {Type: "string"},
				},
			},
			"status": {
				Type: "object",
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"status":   {Type: "string"},
					"selector": *stringMap,
					"domain":   {Type: "string"},
					"zone":     {Type: "string"},
				},
			},
		},
	}
}
