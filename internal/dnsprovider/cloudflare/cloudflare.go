// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package cloudflare is the concrete DNS Provider binding (§6.2, §4.8):
// Cloudflare, via github.com/cloudflare/cloudflare-go/v6, is the DNS
// provider the original implementation (original_source/src/cf_dns.rs)
// targeted.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	cfapi "github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/dns"
	cferrors "github.com/cloudflare/cloudflare-go/v6/shared"
	"github.com/cloudflare/cloudflare-go/v6/zones"
	"github.com/jellydator/ttlcache/v3"
	miekgdns "github.com/miekg/dns"

	"github.com/containeredge/ddns-controller/internal/dnsprovider"
	"github.com/containeredge/ddns-controller/internal/metrics"
)

// zoneCacheTTL bounds how long a zone-name → zone-id lookup is trusted
// before ResolveZone re-lists zones. This is a pure call-volume
// optimisation (SPEC_FULL.md §4.8/§10): a stale entry just causes one extra
// zone list on the next miss, it never produces a wrong answer.
const zoneCacheTTL = 10 * time.Minute

// Provider implements dnsprovider.Provider against the Cloudflare API.
type Provider struct {
	client    *cfapi.Client
	zoneCache *ttlcache.Cache[string, string]
}

var _ dnsprovider.Provider = (*Provider)(nil)

// NewFromEnv builds a Provider from CF_DNS_EMAIL/CF_DNS_KEY/CF_DNS_TOKEN,
// preferring the (email, key) pair over the token when both are present,
// per §6.2/§6.3. Absence of both is a fatal initialisation error.
func NewFromEnv() (*Provider, error) {
	email := os.Getenv("CF_DNS_EMAIL")
	key := os.Getenv("CF_DNS_KEY")
	token := os.Getenv("CF_DNS_TOKEN")

	var opts []cfapi.Option
	switch {
	case email != "" && key != "":
		opts = append(opts, cfapi.WithAPIEmail(email), cfapi.WithAPIKey(key))
	case token != "":
		opts = append(opts, cfapi.WithAPIToken(token))
	default:
		return nil, fmt.Errorf("cloudflare: neither CF_DNS_EMAIL/CF_DNS_KEY nor CF_DNS_TOKEN is set")
	}

	return New(cfapi.NewClient(opts...)), nil
}

// New wraps an already-configured Cloudflare client.
func New(client *cfapi.Client) *Provider {
	cache := ttlcache.New[string, string](ttlcache.WithTTL[string, string](zoneCacheTTL))
	go cache.Start()
	return &Provider{client: client, zoneCache: cache}
}

// ResolveZone implements dnsprovider.Provider.
func (p *Provider) ResolveZone(ctx context.Context, zoneName string) (zoneID string, err error) {
	defer func() { recordProviderRequest("resolve_zone", err) }()

	if _, ok := miekgdns.IsDomainName(zoneName); !ok {
		return "", fmt.Errorf("%w: %q is not a valid zone name", dnsprovider.ErrZoneNotFound, zoneName)
	}

	if item := p.zoneCache.Get(zoneName); item != nil {
		return item.Value(), nil
	}

	page, err := p.client.Zones.List(ctx, zones.ZoneListParams{Name: cfapi.F(zoneName)})
	if err != nil {
		return "", fmt.Errorf("list zones named %q: %w", zoneName, err)
	}
	if len(page.Result) == 0 {
		return "", dnsprovider.ErrZoneNotFound
	}

	zoneID = page.Result[0].ID
	p.zoneCache.Set(zoneName, zoneID, ttlcache.DefaultTTL)
	return zoneID, nil
}

// ListRecords implements dnsprovider.Provider.
func (p *Provider) ListRecords(ctx context.Context, zoneID, name string) (_ []dnsprovider.Record, err error) {
	defer func() { recordProviderRequest("list_records", err) }()

	fqdn := miekgdns.Fqdn(name)

	page, err := p.client.DNS.Records.List(ctx, dns.RecordListParams{
		ZoneID: cfapi.F(zoneID),
		Name: cfapi.F(dns.RecordListParamsName{
			Exact: cfapi.F(fqdn),
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("list records for %q in zone %s: %w", name, zoneID, err)
	}

	out := make([]dnsprovider.Record, 0, len(page.Result))
	for _, r := range page.Result {
		kind := dnsprovider.RecordKind(r.Type)
		if kind != dnsprovider.A && kind != dnsprovider.AAAA {
			continue
		}
		out = append(out, dnsprovider.Record{
			ID:      r.ID,
			Kind:    kind,
			Name:    r.Name,
			Content: r.Content,
		})
	}
	return out, nil
}

// CreateRecord implements dnsprovider.Provider.
func (p *Provider) CreateRecord(ctx context.Context, zoneID, name string, kind dnsprovider.RecordKind, content string, ttl time.Duration) (err error) {
	defer func() { recordProviderRequest("create_record", err) }()

	fqdn := miekgdns.Fqdn(name)
	ttlSeconds := dns.TTL(ttl.Seconds())

	var body dns.RecordNewParamsBodyUnion
	switch kind {
	case dnsprovider.A:
		body = dns.ARecordParam{
			Type:    cfapi.F(dns.ARecordTypeA),
			Name:    cfapi.F(fqdn),
			Content: cfapi.F(content),
			TTL:     cfapi.F(ttlSeconds),
		}
	case dnsprovider.AAAA:
		body = dns.AAAARecordParam{
			Type:    cfapi.F(dns.AAAARecordTypeAAAA),
			Name:    cfapi.F(fqdn),
			Content: cfapi.F(content),
			TTL:     cfapi.F(ttlSeconds),
		}
	default:
		return fmt.Errorf("cloudflare provider does not support record kind %q", kind)
	}

	_, err = p.client.DNS.Records.New(ctx, dns.RecordNewParams{
		ZoneID: cfapi.F(zoneID),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("create %s record %q=%q: %w", kind, name, content, err)
	}
	return nil
}

// DeleteRecord implements dnsprovider.Provider. A 404 is success.
func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) (err error) {
	defer func() { recordProviderRequest("delete_record", err) }()

	_, err = p.client.DNS.Records.Delete(ctx, recordID, dns.RecordDeleteParams{ZoneID: cfapi.F(zoneID)})
	if err != nil {
		if IsNotFound(err) {
			err = nil
			return nil
		}
		return fmt.Errorf("delete record %s: %w", recordID, err)
	}
	return nil
}

// IsNotFound reports whether err is a Cloudflare 404 response.
func IsNotFound(err error) bool {
	var apiErr *cferrors.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// recordProviderRequest increments ProviderRequestsTotal for one call to
// the Cloudflare API, by operation and outcome.
func recordProviderRequest(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(operation, result).Inc()
}
