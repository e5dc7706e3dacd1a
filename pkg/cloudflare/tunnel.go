// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// CatchAllService terminates the ingress list of a tunnel.
const CatchAllService = "http_status:404"

// IngressRule is one entry of a tunnel ingress list.
type IngressRule struct {
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Service  string `json:"service" yaml:"service"`
}

// TunnelRouteResult is the outcome of AddTunnelRoute.
type TunnelRouteResult struct {
	Success  bool   `json:"success"`
	Hostname string `json:"hostname"`
	Service  string `json:"service"`
	Existed  bool   `json:"already_exists"`
	Message  string `json:"message"`
}

func (c *Client) tunnelConfigPath(accountID string) string {
	return "/accounts/" + url.PathEscape(accountID) + "/cfd_tunnel/" + url.PathEscape(c.cfg.TunnelID) + "/configurations"
}

// AddTunnelRoute adds a public hostname route to the tunnel. The route is
// inserted ahead of the catch-all rule, and a hostname that is already routed
// is left untouched.
func (c *Client) AddTunnelRoute(ctx context.Context, subdomain, service string) (TunnelRouteResult, gateway.Envelope) {
	hostname := c.FQDN(subdomain)
	result := TunnelRouteResult{Hostname: hostname, Service: service}

	if c.cfg.TunnelID == "" {
		return result, gateway.Failure(0, cerrors.ErrConfiguration, "CLOUDFLARE_TUNNEL_ID is not configured")
	}
	if strings.TrimSpace(subdomain) == "" || strings.TrimSpace(service) == "" {
		return result, gateway.Failure(0, cerrors.ErrInvalidRequest, "subdomain and service are required")
	}

	accountID, err := c.ResolveAccountID(ctx)
	if err != nil {
		return result, gateway.Failure(0, cerrors.KindOf(err), err.Error())
	}
	path := c.tunnelConfigPath(accountID)

	current, failed := apiFailure(c.doer.Do(ctx, gateway.Get(path)))
	if failed {
		return result, current
	}

	config := map[string]any{}
	if raw := current.Get("result.config"); raw.IsObject() {
		if err := json.Unmarshal([]byte(raw.Raw), &config); err != nil {
			return result, gateway.Failure(current.StatusCode, cerrors.ErrInvalidResponseBody, err.Error())
		}
	}

	ingress, _ := config["ingress"].([]any)
	updated, existed := insertRoute(ingress, IngressRule{Hostname: hostname, Service: service})
	if existed {
		result.Success = true
		result.Existed = true
		result.Message = fmt.Sprintf("route for %s already exists", hostname)
		return result, current
	}
	config["ingress"] = updated

	env, failed := apiFailure(c.doer.Do(ctx, gateway.Put(path, map[string]any{"config": config})))
	if failed {
		result.Message = env.Error.Message
		return result, env
	}
	result.Success = true
	result.Message = fmt.Sprintf("route %s -> %s added", hostname, service)
	return result, env
}

// insertRoute places rule before the first entry without a hostname. An
// ingress list without a catch-all gets one appended.
func insertRoute(ingress []any, rule IngressRule) ([]any, bool) {
	entry := map[string]any{"hostname": rule.Hostname, "service": rule.Service}

	catchAll := -1
	for i, item := range ingress {
		m, _ := item.(map[string]any)
		host, _ := m["hostname"].(string)
		if host == rule.Hostname {
			return ingress, true
		}
		if host == "" && catchAll < 0 {
			catchAll = i
		}
	}

	if catchAll < 0 {
		out := make([]any, 0, len(ingress)+2)
		out = append(out, ingress...)
		return append(out, entry, map[string]any{"service": CatchAllService}), false
	}

	out := make([]any, 0, len(ingress)+1)
	out = append(out, ingress[:catchAll]...)
	out = append(out, entry)
	return append(out, ingress[catchAll:]...), false
}

// IngressSnippet renders a cloudflared ingress block for a single route.
func IngressSnippet(hostname, service string) (string, error) {
	doc := struct {
		Ingress []IngressRule `yaml:"ingress"`
	}{
		Ingress: []IngressRule{
			{Hostname: hostname, Service: service},
			{Service: CatchAllService},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render ingress snippet: %w", err)
	}
	return string(out), nil
}
