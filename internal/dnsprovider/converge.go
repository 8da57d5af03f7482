// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package dnsprovider

import (
	"context"
	"errors"
	"fmt"
)

// SetRecordSet is the provider's idempotent "set record set" operation
// (§4.5.2), used by the apply path to converge (domain, zone, kind) onto
// exactly desired. It is convergent but not transactional: a call that
// fails partway is safe to retry, and retrying reaches the desired set
// (P7).
func SetRecordSet(ctx context.Context, p Provider, zone, name string, kind RecordKind, desired []string) error {
	zoneID, err := p.ResolveZone(ctx, zone)
	if err != nil {
		return fmt.Errorf("resolve zone %q: %w", zone, err)
	}

	existing, err := p.ListRecords(ctx, zoneID, name)
	if err != nil {
		return fmt.Errorf("list records for %q in zone %q: %w", name, zone, err)
	}

	existingIPs := make(map[string]Record, len(existing))
	for _, r := range existing {
		if r.Kind != kind {
			continue
		}
		existingIPs[r.Content] = r
	}

	if recordSetEquals(existingIPs, desired) {
		// Already converged: zero write calls, per P7.
		return nil
	}

	for _, r := range existing {
		if r.Kind != kind {
			continue
		}
		if err := p.DeleteRecord(ctx, zoneID, r.ID); err != nil {
			return fmt.Errorf("delete existing record %s for %q: %w", r.ID, name, err)
		}
	}

	for _, ip := range desired {
		if err := p.CreateRecord(ctx, zoneID, name, kind, ip, TTL); err != nil {
			return fmt.Errorf("create %s record %q=%q: %w", kind, name, ip, err)
		}
	}

	return nil
}

// RemoveRecords deletes every record of kind named exactly name in zone. A
// zone that no longer exists, or a name with no matching records, is
// success (the "already gone" race of §7 is absorbed here too).
func RemoveRecords(ctx context.Context, p Provider, zone, name string, kind RecordKind) error {
	zoneID, err := p.ResolveZone(ctx, zone)
	if errors.Is(err, ErrZoneNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve zone %q: %w", zone, err)
	}

	existing, err := p.ListRecords(ctx, zoneID, name)
	if err != nil {
		return fmt.Errorf("list records for %q in zone %q: %w", name, zone, err)
	}

	for _, r := range existing {
		if r.Kind != kind {
			continue
		}
		if err := p.DeleteRecord(ctx, zoneID, r.ID); err != nil {
			return fmt.Errorf("delete record %s for %q: %w", r.ID, name, err)
		}
	}
	return nil
}

// recordSetEquals compares existing records (by IP content) against the
// desired IP set, order-insensitive.
func recordSetEquals(existing map[string]Record, desired []string) bool {
	if len(existing) != len(desired) {
		return false
	}
	for _, ip := range desired {
		if _, ok := existing[ip]; !ok {
			return false
		}
	}
	return true
}
