// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package reconciler_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
	"github.com/containeredge/ddns-controller/internal/dnsprovider"
	"github.com/containeredge/ddns-controller/internal/reconciler"
)

type fakeProvider struct {
	zones        map[string]string
	records      map[string][]dnsprovider.Record
	nextRecordID int
	createCalls  int
	deleteCalls  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		zones:   map[string]string{"example.com": "zone-1"},
		records: map[string][]dnsprovider.Record{},
	}
}

func (p *fakeProvider) ResolveZone(_ context.Context, zoneName string) (string, error) {
	id, ok := p.zones[zoneName]
	if !ok {
		return "", dnsprovider.ErrZoneNotFound
	}
	return id, nil
}

func (p *fakeProvider) ListRecords(_ context.Context, zoneID, name string) ([]dnsprovider.Record, error) {
	return append([]dnsprovider.Record{}, p.records[zoneID+"/"+name]...), nil
}

func (p *fakeProvider) CreateRecord(_ context.Context, zoneID, name string, kind dnsprovider.RecordKind, content string, _ time.Duration) error {
	p.createCalls++
	p.nextRecordID++
	key := zoneID + "/" + name
	p.records[key] = append(p.records[key], dnsprovider.Record{
		ID:      fmt.Sprintf("rec-%d", p.nextRecordID),
		Kind:    kind,
		Name:    name,
		Content: content,
	})
	return nil
}

func (p *fakeProvider) DeleteRecord(_ context.Context, zoneID, recordID string) error {
	p.deleteCalls++
	for key, recs := range p.records {
		for i, r := range recs {
			if r.ID == recordID {
				p.records[key] = append(recs[:i], recs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

type fakePatchClient struct {
	finalizers   []string
	statuses     []ddnsv1alpha1.DDNSStatus
	notFoundNext bool
}

func (c *fakePatchClient) PatchFinalizers(_ context.Context, _ ddnsobject.Identity, finalizers []string) error {
	if c.notFoundNext {
		return fmt.Errorf("not found")
	}
	c.finalizers = finalizers
	return nil
}

func (c *fakePatchClient) PatchStatus(_ context.Context, _ ddnsobject.Identity, status ddnsv1alpha1.DDNSStatus) error {
	c.statuses = append(c.statuses, status)
	return nil
}

type fakeServiceLister struct {
	services []*corev1.Service
}

func (l *fakeServiceLister) ListBySelector(_ context.Context, _ string, _ map[string]string) ([]*corev1.Service, error) {
	return l.services, nil
}

func neverNotFound(error) bool { return false }

func newDDNS() *ddnsv1alpha1.DDNS {
	return &ddnsv1alpha1.DDNS{
		ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web"},
		Spec: ddnsv1alpha1.DDNSSpec{
			Selector: map[string]string{"app": "web"},
			Domain:   "web.example.com",
			Zone:     "example.com",
		},
	}
}

func loadBalancerService(ip string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web", Labels: map[string]string{"app": "web"}},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
		Status: corev1.ServiceStatus{
			LoadBalancer: corev1.LoadBalancerStatus{
				Ingress: []corev1.LoadBalancerIngress{{IP: ip}},
			},
		},
	}
}

var _ = Describe("Reconciler", func() {
	var (
		provider *fakeProvider
		patch    *fakePatchClient
		services *fakeServiceLister
		rec      *reconciler.Reconciler
		ctx      context.Context
	)

	BeforeEach(func() {
		provider = newFakeProvider()
		patch = &fakePatchClient{}
		services = &fakeServiceLister{}
		rec = reconciler.New(patch, services, provider, neverNotFound, logrDiscard())
		ctx = context.Background()
	})

	Describe("apply", func() {
		It("retries when no service has a load balancer IP yet", func() {
			err := rec.Reconcile(ctx, newDDNS())
			Expect(err).To(HaveOccurred())
			delay, ok := reconciler.AsRetryAfter(err)
			Expect(ok).To(BeTrue())
			Expect(delay).To(Equal(3 * time.Second))
		})

		It("creates an A record, sets the finalizer, and records RUNNING status", func() {
			services.services = []*corev1.Service{loadBalancerService("203.0.113.10")}

			Expect(rec.Reconcile(ctx, newDDNS())).To(Succeed())

			Expect(provider.createCalls).To(Equal(1))
			Expect(patch.finalizers).To(ContainElement(ddnsv1alpha1.Finalizer))
			Expect(patch.statuses).To(HaveLen(1))
			Expect(patch.statuses[0].Status).To(Equal(ddnsv1alpha1.StatusRunning))
			Expect(patch.statuses[0].Domain).To(Equal("web.example.com"))
		})

		It("is idempotent: a second reconcile against unchanged state writes nothing new", func() {
			services.services = []*corev1.Service{loadBalancerService("203.0.113.10")}

			Expect(rec.Reconcile(ctx, newDDNS())).To(Succeed())
			createsAfterFirst := provider.createCalls
			deletesAfterFirst := provider.deleteCalls

			Expect(rec.Reconcile(ctx, newDDNS())).To(Succeed())
			Expect(provider.createCalls).To(Equal(createsAfterFirst))
			Expect(provider.deleteCalls).To(Equal(deletesAfterFirst))
		})

		It("splits IPv4 and IPv6 ingress IPs into A and AAAA records", func() {
			services.services = []*corev1.Service{
				loadBalancerService("203.0.113.10"),
				loadBalancerService("2001:db8::1"),
			}

			Expect(rec.Reconcile(ctx, newDDNS())).To(Succeed())

			recs := provider.records["zone-1/web.example.com"]
			var kinds []dnsprovider.RecordKind
			for _, r := range recs {
				kinds = append(kinds, r.Kind)
			}
			Expect(kinds).To(ConsistOf(dnsprovider.A, dnsprovider.AAAA))
		})
	})

	Describe("delete", func() {
		It("does nothing for an object that never had the finalizer", func() {
			obj := newDDNS()
			obj.DeletionTimestamp = &metav1.Time{Time: time.Now()}

			Expect(rec.Reconcile(ctx, obj)).To(Succeed())
			Expect(patch.statuses).To(BeEmpty())
		})

		It("tears down records and removes the finalizer in DELETING -> DELETED -> gone order", func() {
			obj := newDDNS()
			obj.Finalizers = []string{ddnsv1alpha1.Finalizer}
			obj.Status = ddnsv1alpha1.DDNSStatus{Domain: "web.example.com", Zone: "example.com"}
			provider.records["zone-1/web.example.com"] = []dnsprovider.Record{
				{ID: "rec-1", Kind: dnsprovider.A, Name: "web.example.com", Content: "203.0.113.10"},
			}
			obj.DeletionTimestamp = &metav1.Time{Time: time.Now()}

			Expect(rec.Reconcile(ctx, obj)).To(Succeed())

			Expect(patch.statuses).To(HaveLen(2))
			Expect(patch.statuses[0].Status).To(Equal(ddnsv1alpha1.StatusDeleting))
			Expect(patch.statuses[1].Status).To(Equal(ddnsv1alpha1.StatusDeleted))
			Expect(provider.records["zone-1/web.example.com"]).To(BeEmpty())
			Expect(patch.finalizers).NotTo(ContainElement(ddnsv1alpha1.Finalizer))
		})

		It("falls back to spec domain/zone when status was never populated", func() {
			obj := newDDNS()
			obj.Finalizers = []string{ddnsv1alpha1.Finalizer}
			obj.DeletionTimestamp = &metav1.Time{Time: time.Now()}

			Expect(rec.Reconcile(ctx, obj)).To(Succeed())
			Expect(patch.statuses[0].Domain).To(Equal(obj.Spec.Domain))
		})
	})
})
