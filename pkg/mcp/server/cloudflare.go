// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/renoblabs/coolify-mcp/pkg/cloudflare"
	"github.com/renoblabs/coolify-mcp/pkg/coolify"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// CreateDNSRecord creates a DNS record under the base domain
func (h *Handler) CreateDNSRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Subdomain  string `json:"subdomain"`
		Target     string `json:"target"`
		RecordType string `json:"record_type"`
		Proxied    *bool  `json:"proxied"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.Subdomain == "" {
		return missingArgument("subdomain"), nil
	}
	proxied := true
	if args.Proxied != nil {
		proxied = *args.Proxied
	}

	result, env := h.cloudflare.CreateDNSRecord(ctx, cloudflare.DNSRecord{
		Subdomain: args.Subdomain,
		Target:    args.Target,
		Type:      args.RecordType,
		Proxied:   proxied,
	})
	if !env.OK {
		body := failureBody(env)
		body["success"] = false
		body["full_domain"] = result.FullDomain
		return structuredResult(body), nil
	}
	return structuredResult(result), nil
}

// ListDNSRecords lists records in the zone
func (h *Handler) ListDNSRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	env := h.cloudflare.ListDNSRecords(ctx, name)
	if !env.OK {
		return failureResult(env), nil
	}
	records := env.Get("result").Value()
	if records == nil {
		records = []any{}
	}
	return structuredResult(map[string]any{
		"records": records,
		"count":   len(env.Get("result").Array()),
	}), nil
}

// AddTunnelRoute adds a public hostname to the tunnel ingress
func (h *Handler) AddTunnelRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Subdomain string `json:"subdomain"`
		Service   string `json:"service"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.Subdomain == "" {
		return missingArgument("subdomain"), nil
	}
	if args.Service == "" {
		return missingArgument("service"), nil
	}

	result, env := h.cloudflare.AddTunnelRoute(ctx, args.Subdomain, args.Service)
	if !env.OK {
		body := failureBody(env)
		body["success"] = false
		body["hostname"] = result.Hostname
		return structuredResult(body), nil
	}
	return structuredResult(result), nil
}

// AutomateServiceDeployment creates DNS, fixes loopback URLs and deploys
func (h *Handler) AutomateServiceDeployment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ServiceName string `json:"service_name"`
		Subdomain   string `json:"subdomain"`
		AppUUID     string `json:"app_uuid"`
		Port        int    `json:"port"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	for _, required := range [][2]string{
		{"service_name", args.ServiceName},
		{"subdomain", args.Subdomain},
		{"app_uuid", args.AppUUID},
	} {
		if required[1] == "" {
			return missingArgument(required[0]), nil
		}
	}
	if args.Port <= 0 {
		args.Port = 8000
	}

	fqdn := h.cloudflare.FQDN(args.Subdomain)
	steps := []string{}
	errs := []string{}

	// DNS record
	dns, env := h.cloudflare.CreateDNSRecord(ctx, cloudflare.DNSRecord{Subdomain: args.Subdomain, Proxied: true})
	if env.OK {
		steps = append(steps, "Created DNS record: "+dns.FullDomain)
	} else {
		errs = append(errs, "DNS creation failed: "+env.Error.Message)
	}

	// Tunnel route
	local := fmt.Sprintf("http://localhost:%d", args.Port)
	if h.cloudflare.TunnelConfigured() {
		route, env := h.cloudflare.AddTunnelRoute(ctx, args.Subdomain, local)
		switch {
		case !env.OK:
			errs = append(errs, "Tunnel route failed: "+env.Error.Message)
		case route.Existed:
			steps = append(steps, "Tunnel route already present: "+route.Hostname)
		default:
			steps = append(steps, "Added tunnel route: "+route.Hostname+" -> "+local)
		}
	}

	// Environment
	var updated map[string]string
	current := h.coolify.GetEnvironment(ctx, args.AppUUID)
	if !current.OK {
		errs = append(errs, "Environment read failed: "+current.Error.Message)
	} else {
		vars := coolify.ParseEnvironment(current)
		updated = coolify.RewriteLocalhost(vars, args.Port, fqdn)
		if len(updated) > 0 {
			res := h.coolify.ApplyEnvironment(ctx, args.AppUUID, vars, updated)
			if res.Envelope.OK {
				steps = append(steps, fmt.Sprintf("Updated %d environment variables", len(updated)))
			} else {
				errs = append(errs, "Environment update failed: "+res.Envelope.Error.Message)
			}
		}
	}

	// Deployment
	deploy := h.coolify.DeployApplication(ctx, args.AppUUID, false)
	if deploy.OK {
		steps = append(steps, "Triggered application deployment")
	} else {
		errs = append(errs, "Deployment failed: "+deploy.Error.Message)
	}

	snippet, err := cloudflare.IngressSnippet(fqdn, local)
	if err != nil {
		logger.Warnf("Failed to render ingress snippet: %v", err)
	}

	success := len(errs) == 0
	outcome := "Fully automated"
	if !success {
		outcome = "Manual intervention needed"
	}
	summary := strings.Join([]string{
		fmt.Sprintf("%s deployment summary", args.ServiceName),
		"Domain: https://" + fqdn,
		"Coolify app: " + args.AppUUID,
		fmt.Sprintf("Port: %d", args.Port),
		fmt.Sprintf("%d steps completed, %d errors", len(steps), len(errs)),
		outcome,
	}, "\n")

	out := map[string]any{
		"service":        args.ServiceName,
		"subdomain":      args.Subdomain,
		"full_domain":    fqdn,
		"steps":          steps,
		"errors":         errs,
		"success":        success,
		"summary":        summary,
		"ingress_config": snippet,
	}
	if len(updated) > 0 {
		out["updated_vars"] = updated
	}
	return structuredResult(out), nil
}
