// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cloudflare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := gateway.New(srv.URL,
		gateway.WithName("cloudflare"),
		gateway.WithAPIPrefix(APIPrefix),
		gateway.WithToken("cf-token"),
	)
	require.NoError(t, err)
	return New(gw, cfg)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFQDN(t *testing.T) {
	t.Parallel()

	c := New(nil, Config{BaseDomain: ".example.test."})
	assert.Equal(t, "example.test", c.BaseDomain())
	assert.Equal(t, "app.example.test", c.FQDN("app"))
	assert.Equal(t, "app.example.test", c.FQDN("app.example.test"))
	assert.Equal(t, "example.test", c.FQDN("example.test"))
	assert.Equal(t, "a.b.example.test", c.FQDN(" a.b. "))
}

func TestCreateDNSRecord(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := newTestClient(t, Config{ZoneID: "zone-1", BaseDomain: "example.test", DefaultTarget: "origin.example.test"},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/client/v4/zones/zone-1/dns_records", r.URL.Path)
			assert.Equal(t, "Bearer cf-token", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
			writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "result": map[string]any{"id": "rec-1"}})
		})

	result, env := c.CreateDNSRecord(context.Background(), DNSRecord{Subdomain: "app", Proxied: true})
	require.True(t, env.OK)
	assert.True(t, result.Success)
	assert.Equal(t, "rec-1", result.RecordID)
	assert.Equal(t, "app.example.test", result.FullDomain)
	assert.Equal(t, map[string]any{
		"type":    "CNAME",
		"name":    "app.example.test",
		"content": "origin.example.test",
		"ttl":     float64(1),
		"proxied": true,
	}, got)
}

func TestCreateDNSRecord_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no target", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		c := newTestClient(t, Config{ZoneID: "z", BaseDomain: "example.test"}, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		})
		_, env := c.CreateDNSRecord(context.Background(), DNSRecord{Subdomain: "app"})
		assert.False(t, env.OK)
		assert.Equal(t, cerrors.ErrInvalidRequest, env.Error.Kind)
		assert.Zero(t, calls.Load())
	})

	t.Run("upstream rejects", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, Config{ZoneID: "z", BaseDomain: "example.test"}, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusBadRequest, map[string]any{
				"success": false,
				"errors":  []any{map[string]any{"code": 81057, "message": "Record already exists."}},
			})
		})
		result, env := c.CreateDNSRecord(context.Background(), DNSRecord{Subdomain: "app", Target: "t.example.test"})
		assert.False(t, env.OK)
		assert.Equal(t, http.StatusBadRequest, env.StatusCode)
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "Record already exists.")
	})

	t.Run("success false on 200", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, Config{ZoneID: "z", BaseDomain: "example.test"}, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"success": false,
				"errors":  []any{map[string]any{"message": "quota"}},
			})
		})
		_, env := c.CreateDNSRecord(context.Background(), DNSRecord{Subdomain: "app", Target: "t"})
		assert.False(t, env.OK)
		assert.Equal(t, "quota", env.Error.Message)
	})
}

func TestListDNSRecords(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, Config{ZoneID: "z", BaseDomain: "example.test"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app.example.test", r.URL.Query().Get("name"))
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "result": []any{}})
	})
	env := c.ListDNSRecords(context.Background(), "app")
	assert.True(t, env.OK)
}

type tunnelFake struct {
	t       *testing.T
	mu      sync.Mutex
	config  map[string]any
	puts    atomic.Int32
	account atomic.Int32
}

func (f *tunnelFake) current() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

func (f *tunnelFake) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/client/v4/accounts":
		f.account.Add(1)
		writeJSON(f.t, w, http.StatusOK, map[string]any{"success": true, "result": []any{map[string]any{"id": "acct-1"}}})
	case r.URL.Path == "/client/v4/accounts/acct-1/cfd_tunnel/tun-1/configurations" && r.Method == http.MethodGet:
		writeJSON(f.t, w, http.StatusOK, map[string]any{"success": true, "result": map[string]any{"config": f.config}})
	case r.URL.Path == "/client/v4/accounts/acct-1/cfd_tunnel/tun-1/configurations" && r.Method == http.MethodPut:
		f.puts.Add(1)
		var body struct {
			Config map[string]any `json:"config"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.config = body.Config
		writeJSON(f.t, w, http.StatusOK, map[string]any{"success": true, "result": map[string]any{}})
	default:
		http.NotFound(w, r)
	}
}

func hostnames(config map[string]any) []string {
	var out []string
	for _, item := range config["ingress"].([]any) {
		m := item.(map[string]any)
		h, _ := m["hostname"].(string)
		out = append(out, h+"|"+m["service"].(string))
	}
	return out
}

//nolint:paralleltest // subtests share the fake tunnel state
func TestAddTunnelRoute(t *testing.T) {
	fake := &tunnelFake{t: t, config: map[string]any{
		"ingress": []any{
			map[string]any{"hostname": "cloud.example.test", "service": "http://localhost:8000"},
			map[string]any{"service": "http_status:404"},
		},
		"warp-routing": map[string]any{"enabled": false},
	}}
	c := newTestClient(t, Config{TunnelID: "tun-1", BaseDomain: "example.test"}, fake.handler)

	t.Run("inserted before catch-all", func(t *testing.T) {
		result, env := c.AddTunnelRoute(context.Background(), "supabase", "http://localhost:3000")
		require.True(t, env.OK, "%+v", env.Error)
		assert.True(t, result.Success)
		assert.False(t, result.Existed)
		assert.Equal(t, []string{
			"cloud.example.test|http://localhost:8000",
			"supabase.example.test|http://localhost:3000",
			"|http_status:404",
		}, hostnames(fake.current()))
		assert.Equal(t, map[string]any{"enabled": false}, fake.current()["warp-routing"])
	})

	t.Run("idempotent", func(t *testing.T) {
		result, env := c.AddTunnelRoute(context.Background(), "supabase", "http://localhost:3000")
		require.True(t, env.OK)
		assert.True(t, result.Existed)
		assert.Equal(t, int32(1), fake.puts.Load())
	})

	assert.Equal(t, int32(1), fake.account.Load(), "account id is resolved once")
}

func TestAddTunnelRoute_EmptyConfig(t *testing.T) {
	t.Parallel()

	fake := &tunnelFake{t: t, config: map[string]any{}}
	c := newTestClient(t, Config{AccountID: "acct-1", TunnelID: "tun-1", BaseDomain: "example.test"}, fake.handler)

	_, env := c.AddTunnelRoute(context.Background(), "new", "http://localhost:8080")
	require.True(t, env.OK)
	assert.Equal(t, []string{"new.example.test|http://localhost:8080", "|http_status:404"}, hostnames(fake.current()))
	assert.Zero(t, fake.account.Load())
}

func TestAddTunnelRoute_NotConfigured(t *testing.T) {
	t.Parallel()

	c := New(nil, Config{BaseDomain: "example.test"})
	assert.False(t, c.TunnelConfigured())
	_, env := c.AddTunnelRoute(context.Background(), "x", "http://localhost")
	assert.False(t, env.OK)
	assert.Equal(t, cerrors.ErrConfiguration, env.Error.Kind)
}

func TestIngressSnippet(t *testing.T) {
	t.Parallel()

	out, err := IngressSnippet("app.example.test", "http://localhost:8000")
	require.NoError(t, err)

	var doc struct {
		Ingress []IngressRule `yaml:"ingress"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []IngressRule{
		{Hostname: "app.example.test", Service: "http://localhost:8000"},
		{Service: CatchAllService},
	}, doc.Ingress)
}
