// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package clusterwatch

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/informers"
	corev1listers "k8s.io/client-go/listers/core/v1"
)

// ServiceLister answers the apply path's step-2 query (§4.5.1): every
// Service in a namespace whose labels are a superset of a given selector.
// It reads from the same informer cache ServiceWatcher watches, so a
// reconcile never issues a live List call against the API server.
type ServiceLister struct {
	lister corev1listers.ServiceLister
}

// NewServiceLister builds a ServiceLister over the shared informer
// factory's Service lister, which shares the Service informer that
// NewServiceWatcher requests. The lister returns no Services until that
// informer has been started and has synced.
func NewServiceLister(factory informers.SharedInformerFactory) *ServiceLister {
	return &ServiceLister{lister: factory.Core().V1().Services().Lister()}
}

// ListBySelector implements reconciler.ServiceLister.
func (l *ServiceLister) ListBySelector(_ context.Context, namespace string, selector map[string]string) ([]*corev1.Service, error) {
	if len(selector) == 0 {
		return nil, nil
	}
	services, err := l.lister.Services(namespace).List(labels.SelectorFromSet(selector))
	if err != nil {
		return nil, fmt.Errorf("list services in %q matching %v: %w", namespace, selector, err)
	}
	out := make([]*corev1.Service, 0, len(services))
	for _, svc := range services {
		if isLoadBalancerFilter(svc) {
			out = append(out, svc)
		}
	}
	return out, nil
}
