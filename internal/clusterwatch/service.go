// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package clusterwatch

import (
	"context"
	"fmt"
	"net"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/tools/cache"
)

// ServiceEventKind classifies a Service Watcher notification (§4.2).
type ServiceEventKind int

const (
	// ServiceApplied is emitted for a created or modified Service.
	ServiceApplied ServiceEventKind = iota
	// ServiceDeleted is emitted for a removed Service.
	ServiceDeleted
)

// ServiceEvent carries the surviving Service after both filters of §4.2.
type ServiceEvent struct {
	Kind    ServiceEventKind
	Service *corev1.Service
}

// ServiceWatcher is the Service Watcher component (§4.2). It watches all
// namespaces and drops every Service that is not of type LoadBalancer or
// carries no labels — those can never affect a DDNS answer set.
type ServiceWatcher struct {
	informer cache.SharedIndexInformer
	log      logr.Logger
}

// NewServiceWatcher builds a ServiceWatcher from a typed informer factory.
func NewServiceWatcher(factory informers.SharedInformerFactory, log logr.Logger) *ServiceWatcher {
	informer := factory.Core().V1().Services().Informer()
	return &ServiceWatcher{informer: informer, log: log.WithName("service-watcher")}
}

// Run feeds the filtered event sequence to out until ctx is cancelled or the
// underlying watch fails terminally.
func (w *ServiceWatcher) Run(ctx context.Context, out chan<- ServiceEvent) error {
	errCh := make(chan error, 1)

	reg, err := w.informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj any) {
			w.emit(ctx, out, ServiceApplied, obj)
		},
		UpdateFunc: func(_, newObj any) {
			w.emit(ctx, out, ServiceApplied, newObj)
		},
		DeleteFunc: func(obj any) {
			if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			w.emit(ctx, out, ServiceDeleted, obj)
		},
	})
	if err != nil {
		return fmt.Errorf("register service informer handler: %w", err)
	}
	defer func() { _ = w.informer.RemoveEventHandler(reg) }()

	w.informer.SetWatchErrorHandler(func(_ *cache.Reflector, err error) {
		select {
		case errCh <- fmt.Errorf("service watch failed: %w", err):
		default:
		}
	})

	go w.informer.Run(ctx.Done())

	if !cache.WaitForCacheSync(ctx.Done(), w.informer.HasSynced) {
		return fmt.Errorf("service informer cache never synced")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (w *ServiceWatcher) emit(ctx context.Context, out chan<- ServiceEvent, kind ServiceEventKind, obj any) {
	svc, ok := obj.(*corev1.Service)
	if !ok {
		return
	}
	if !isLoadBalancerFilter(svc) || !hasLabelsFilter(svc) {
		return
	}
	select {
	case out <- ServiceEvent{Kind: kind, Service: svc}:
	case <-ctx.Done():
	}
}

func isLoadBalancerFilter(svc *corev1.Service) bool {
	return svc.Spec.Type == corev1.ServiceTypeLoadBalancer
}

func hasLabelsFilter(svc *corev1.Service) bool {
	return len(svc.Labels) > 0
}

// LoadBalancerIPs parses every ingress IP of svc, per the data model §3
// ("unparseable entries are fatal for this reconcile pass"). It returns an
// error naming the first unparseable entry rather than silently skipping
// it.
func LoadBalancerIPs(svc *corev1.Service) ([]net.IP, error) {
	var ips []net.IP
	for _, ingress := range svc.Status.LoadBalancer.Ingress {
		if ingress.IP == "" {
			continue
		}
		ip := net.ParseIP(ingress.IP)
		if ip == nil {
			return nil, fmt.Errorf("service %s/%s: unparseable load balancer ingress IP %q", svc.Namespace, svc.Name, ingress.IP)
		}
		ips = append(ips, ip)
	}
	return ips, nil
}
