// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package cloudflare_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	cfapi "github.com/cloudflare/cloudflare-go/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/containeredge/ddns-controller/internal/dnsprovider"
	"github.com/containeredge/ddns-controller/internal/dnsprovider/cloudflare"
)

// envelope mirrors Cloudflare's stable v4 REST API response shape, which
// every generation of the official Go SDK (including v6) wraps.
func envelope(result any) []byte {
	body, _ := json.Marshal(map[string]any{
		"success":  true,
		"errors":   []any{},
		"messages": []any{},
		"result":   result,
	})
	return body
}

var _ = Describe("Provider", func() {
	var (
		server   *httptest.Server
		listHits int32
		provider *cloudflare.Provider
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	newProviderAgainst := func(handler http.HandlerFunc) *cloudflare.Provider {
		server = httptest.NewServer(handler)
		client := cfapi.NewClient(
			cfapi.WithAPIToken("test-token"),
			cfapi.WithBaseURL(server.URL),
		)
		return cloudflare.New(client)
	}

	Describe("#ResolveZone", func() {
		It("rejects a malformed zone name without making a request", func() {
			provider = newProviderAgainst(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&listHits, 1)
				w.Write(envelope([]any{}))
			})

			_, err := provider.ResolveZone(newCtx(), "not a domain!!")
			Expect(err).To(HaveOccurred())
			Expect(atomic.LoadInt32(&listHits)).To(Equal(int32(0)))
		})

		It("returns ErrZoneNotFound when no zone matches", func() {
			provider = newProviderAgainst(func(w http.ResponseWriter, _ *http.Request) {
				w.Write(envelope([]any{}))
			})

			_, err := provider.ResolveZone(newCtx(), "example.com")
			Expect(err).To(MatchError(dnsprovider.ErrZoneNotFound))
		})

		It("caches a resolved zone id across calls", func() {
			provider = newProviderAgainst(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&listHits, 1)
				w.Write(envelope([]map[string]any{{"id": "zone-123", "name": "example.com"}}))
			})

			id1, err := provider.ResolveZone(newCtx(), "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(id1).To(Equal("zone-123"))

			id2, err := provider.ResolveZone(newCtx(), "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal("zone-123"))

			Expect(atomic.LoadInt32(&listHits)).To(Equal(int32(1)))
		})
	})

	Describe("#DeleteRecord", func() {
		It("treats a 404 response as success", func() {
			provider = newProviderAgainst(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write(envelope(nil))
			})

			err := provider.DeleteRecord(newCtx(), "zone-123", "record-456")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("#ListRecords", func() {
		It("filters out record kinds the controller does not own", func() {
			provider = newProviderAgainst(func(w http.ResponseWriter, _ *http.Request) {
				w.Write(envelope([]map[string]any{
					{"id": "r1", "type": "A", "name": "web.example.com.", "content": "1.2.3.4"},
					{"id": "r2", "type": "TXT", "name": "web.example.com.", "content": "irrelevant"},
				}))
			})

			records, err := provider.ListRecords(newCtx(), "zone-123", "web.example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Kind).To(Equal(dnsprovider.A))
		})
	})
})
