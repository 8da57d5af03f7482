// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package clusterwatch is the cluster API client collaborator: it turns
// DDNS and Service informer callbacks into the flat event sequences the
// reconciliation engine consumes, and applies the merge-patches the
// Reconciler needs. It is intentionally thin — the engine's invariants live
// in internal/serialiser and internal/reconciler, not here.
package clusterwatch

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/tools/cache"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"

	"github.com/containeredge/ddns-controller/internal/ddnsobject"
)

// ObjectWatcher is the Object Watcher component (§4.1): it watches DDNS
// objects across all namespaces and emits a flat {Applied, Deleted,
// Restarted} sequence, and doubles as the in-process index the Trigger
// queries for selector matches.
type ObjectWatcher struct {
	informer cache.SharedIndexInformer
	log      logr.Logger
}

// NewObjectWatcher builds an ObjectWatcher from a dynamic client factory.
// The factory's resync period sets how often the informer replays its
// cache; replayed objects arrive as Applied events, and only the informer's
// initial list is reported as Restarted.
func NewObjectWatcher(factory dynamicinformer.DynamicSharedInformerFactory, log logr.Logger) *ObjectWatcher {
	informer := factory.ForResource(ddnsv1alpha1.GroupVersionResource).Informer()
	return &ObjectWatcher{informer: informer, log: log.WithName("object-watcher")}
}

// Run feeds the flat event sequence to out until ctx is cancelled or the
// underlying watch fails terminally, in which case it returns a non-nil
// error — fatal to the whole controller, per §4.1 and §4.7.
func (w *ObjectWatcher) Run(ctx context.Context, out chan<- ddnsobject.Event) error {
	errCh := make(chan error, 1)

	// AddFunc's isInInitialList flag distinguishes the informer's startup
	// list (a "Restarted" full resync, per §4.1) from objects that arrive
	// afterwards through the live watch ("Applied").
	reg, err := w.informer.AddEventHandler(cache.ResourceEventHandlerDetailedFuncs{
		AddFunc: func(obj any, isInInitialList bool) {
			kind := ddnsobject.Applied
			if isInInitialList {
				kind = ddnsobject.Restarted
			}
			w.emit(ctx, out, kind, obj)
		},
		UpdateFunc: func(_, newObj any) {
			w.emit(ctx, out, ddnsobject.Applied, newObj)
		},
		DeleteFunc: func(obj any) {
			if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			w.emit(ctx, out, ddnsobject.Deleted, obj)
		},
	})
	if err != nil {
		return fmt.Errorf("register ddns informer handler: %w", err)
	}
	defer func() { _ = w.informer.RemoveEventHandler(reg) }()

	w.informer.SetWatchErrorHandler(func(_ *cache.Reflector, err error) {
		select {
		case errCh <- fmt.Errorf("ddns watch failed: %w", err):
		default:
		}
	})

	go w.informer.Run(ctx.Done())

	if !cache.WaitForCacheSync(ctx.Done(), w.informer.HasSynced) {
		return fmt.Errorf("ddns informer cache never synced")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (w *ObjectWatcher) emit(ctx context.Context, out chan<- ddnsobject.Event, kind ddnsobject.EventKind, obj any) {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		w.log.Info("dropping non-unstructured informer object", "type", fmt.Sprintf("%T", obj))
		return
	}
	ddns, err := fromUnstructured(u)
	if err != nil {
		w.log.Error(err, "dropping malformed ddns object", "name", u.GetName(), "namespace", u.GetNamespace())
		return
	}
	select {
	case out <- ddnsobject.Event{Kind: kind, Object: ddns}:
	case <-ctx.Done():
	}
}

// ListByNamespace returns every DDNS object currently known in namespace,
// from the informer's local cache — the in-process index the Trigger uses
// instead of a live API list, per the rationale in §4.3/design notes.
func (w *ObjectWatcher) ListByNamespace(namespace string) ([]*ddnsv1alpha1.DDNS, error) {
	var out []*ddnsv1alpha1.DDNS
	for _, raw := range w.informer.GetStore().List() {
		u, ok := raw.(*unstructured.Unstructured)
		if !ok {
			continue
		}
		if u.GetNamespace() != namespace {
			continue
		}
		ddns, err := fromUnstructured(u)
		if err != nil {
			return nil, err
		}
		out = append(out, ddns)
	}
	return out, nil
}

func fromUnstructured(u *unstructured.Unstructured) (*ddnsv1alpha1.DDNS, error) {
	var ddns ddnsv1alpha1.DDNS
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), &ddns); err != nil {
		return nil, fmt.Errorf("convert unstructured ddns object: %w", err)
	}
	return &ddns, nil
}

// IsNotFound reports whether err represents a 404 from the API server —
// the "object-gone-race" absorbed as success throughout §4.5 and §7.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}
