// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package ddnsobject holds the in-process representation of a DDNS object
// and its change events, shared by every stage of the reconciliation engine.
package ddnsobject

import (
	"fmt"

	ddnsv1alpha1 "github.com/containeredge/ddns-controller/pkg/apis/ddns/v1alpha1"
)

// Identity is the stable key of a DDNS object for its whole lifetime.
type Identity struct {
	Namespace string
	Name      string
}

// String renders the identity as "namespace/name", the conventional form
// used throughout the teacher's codebase for object keys.
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s", id.Namespace, id.Name)
}

// IdentityOf extracts the Identity of a DDNS object.
func IdentityOf(obj *ddnsv1alpha1.DDNS) Identity {
	return Identity{Namespace: obj.Namespace, Name: obj.Name}
}

// EventKind classifies an Object Watcher notification.
type EventKind int

const (
	// Applied is emitted for a created or modified DDNS object.
	Applied EventKind = iota
	// Deleted is emitted once a DDNS object is gone from the API server
	// (its finalizer has already been removed by this or a prior process).
	Deleted
	// Restarted is emitted, once per object, for the objects of the watch's
	// initial full list.
	Restarted
)

func (k EventKind) String() string {
	switch k {
	case Applied:
		return "Applied"
	case Deleted:
		return "Deleted"
	case Restarted:
		return "Restarted"
	default:
		return "Unknown"
	}
}

// Event is a single flattened notification from the Object Watcher. A
// Restarted list resync is unfolded into one Event per object before it
// reaches this type — no batch ever appears here.
type Event struct {
	Kind   EventKind
	Object *ddnsv1alpha1.DDNS
}

// IsDelete reports whether this snapshot must be routed to the Reconciler's
// delete path: either the watcher told us the object is gone, or the object
// itself carries a deletion timestamp.
func (e Event) IsDelete() bool {
	if e.Kind == Deleted {
		return true
	}
	return e.Object != nil && e.Object.DeletionTimestamp != nil
}
