// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetServerInfo reports the server configuration and enabled capabilities
func (h *Handler) GetServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tools := h.Tools()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Tool.Name)
	}

	return structuredResult(map[string]any{
		"name":             h.info.Name,
		"version":          h.info.Version,
		"transport":        h.info.Transport,
		"coolify_base_url": h.info.CoolifyBaseURL,
		"auth_enabled":     h.info.AuthEnabled,
		"capabilities": map[string]any{
			"cloudflare_dns":     h.CloudflareEnabled(),
			"cloudflare_tunnel":  h.TunnelEnabled(),
			"create_application": false,
		},
		"tool_count": len(names),
		"tools":      names,
	}), nil
}

// ConfigureServiceSubdomain explains how to route a subdomain to a service
func (h *Handler) ConfigureServiceSubdomain(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ServiceName string `json:"service_name"`
		Subdomain   string `json:"subdomain"`
		BaseDomain  string `json:"base_domain"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.ServiceName == "" {
		return missingArgument("service_name"), nil
	}
	if args.Subdomain == "" {
		return missingArgument("subdomain"), nil
	}

	base := strings.Trim(args.BaseDomain, ".")
	if base == "" && h.cloudflare != nil {
		base = h.cloudflare.BaseDomain()
	}
	if base == "" {
		return missingArgument("base_domain"), nil
	}
	fqdn := args.Subdomain + "." + base

	steps := []string{
		fmt.Sprintf("Create a CNAME record for %s pointing at your tunnel or origin", fqdn),
		fmt.Sprintf("Add a tunnel public hostname %s routed to the %s service", fqdn, args.ServiceName),
		fmt.Sprintf("Set the %s domain to https://%s in Coolify", args.ServiceName, fqdn),
		"Replace localhost URLs in the environment with the public domain and redeploy",
	}
	if h.CloudflareEnabled() {
		steps = append(steps, "create_dns_record, add_tunnel_route and automate_service_deployment can do this for you")
	}

	return structuredResult(map[string]any{
		"service":     args.ServiceName,
		"subdomain":   args.Subdomain,
		"full_domain": fqdn,
		"url":         "https://" + fqdn,
		"steps":       steps,
	}), nil
}
