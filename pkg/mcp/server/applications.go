// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/renoblabs/coolify-mcp/pkg/coolify"
)

type appArgs struct {
	AppUUID string `json:"app_uuid"`
}

func bindApp(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	args := appArgs{}
	if err := request.BindArguments(&args); err != nil {
		return "", argumentError(err)
	}
	uuid := strings.TrimSpace(args.AppUUID)
	if uuid == "" {
		return "", missingArgument("app_uuid")
	}
	return uuid, nil
}

// ListApplications lists every application as {"applications": [...], "count": N}
func (h *Handler) ListApplications(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(h.coolify.ListApplications(ctx), "applications"), nil
}

// GetApplicationDetails returns one application
func (h *Handler) GetApplicationDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	return envelopeResult(h.coolify.GetApplication(ctx, uuid), ""), nil
}

// FindApplication resolves an application by name or uuid
func (h *Handler) FindApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier, err := request.RequireString("identifier")
	if err != nil {
		return argumentError(err), nil
	}

	app, err := h.coolify.FindApplication(ctx, identifier)
	if err != nil {
		return errorResult(err), nil
	}
	return structuredResult(map[string]any{
		"ok":          true,
		"application": app,
	}), nil
}

// DeployApplication triggers a deployment
func (h *Handler) DeployApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		AppUUID      string `json:"app_uuid"`
		ForceRebuild bool   `json:"force_rebuild"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.AppUUID == "" {
		return missingArgument("app_uuid"), nil
	}
	return envelopeResult(h.coolify.DeployApplication(ctx, args.AppUUID, args.ForceRebuild), ""), nil
}

// StartApplication starts an application
func (h *Handler) StartApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	return envelopeResult(h.coolify.StartApplication(ctx, uuid), ""), nil
}

// RestartApplication restarts an application
func (h *Handler) RestartApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	return envelopeResult(h.coolify.RestartApplication(ctx, uuid), ""), nil
}

// StopApplication stops an application
func (h *Handler) StopApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	return envelopeResult(h.coolify.StopApplication(ctx, uuid), ""), nil
}

// GetApplicationLogs returns recent log lines
func (h *Handler) GetApplicationLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	lines := request.GetInt("lines", coolify.DefaultLogLines)
	return envelopeResult(h.coolify.GetApplicationLogs(ctx, uuid, lines), ""), nil
}

// GetApplicationEnvironment returns the environment variables of an application
func (h *Handler) GetApplicationEnvironment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	return envelopeResult(h.coolify.GetEnvironment(ctx, uuid), "environment"), nil
}

// UpdateApplicationEnvironment merges variables into the current environment
func (h *Handler) UpdateApplicationEnvironment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		AppUUID string         `json:"app_uuid"`
		EnvVars map[string]any `json:"env_vars"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.AppUUID == "" {
		return missingArgument("app_uuid"), nil
	}
	if len(args.EnvVars) == 0 {
		return missingArgument("env_vars"), nil
	}

	result := h.coolify.UpdateEnvironment(ctx, args.AppUUID, stringifyValues(args.EnvVars))
	if !result.Envelope.OK {
		return failureResult(result.Envelope), nil
	}
	return structuredResult(map[string]any{
		"ok":           true,
		"updated_keys": result.Updated,
		"total":        len(result.Merged),
		"response":     result.Envelope.Payload,
	}), nil
}

// ConfigureApplicationDomain sets the public domain of an application and
// optionally restarts it
func (h *Handler) ConfigureApplicationDomain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		AppUUID      string `json:"app_uuid"`
		Domain       string `json:"domain"`
		PortsExposes string `json:"ports_exposes"`
		Restart      bool   `json:"restart"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.AppUUID == "" {
		return missingArgument("app_uuid"), nil
	}
	if args.Domain == "" {
		return missingArgument("domain"), nil
	}

	fqdn := args.Domain
	if !strings.Contains(fqdn, "://") {
		fqdn = "https://" + fqdn
	}
	fields := map[string]any{"fqdn": fqdn}
	if args.PortsExposes != "" {
		fields["ports_exposes"] = args.PortsExposes
	}

	update := h.coolify.UpdateApplication(ctx, args.AppUUID, fields)
	if !update.OK {
		return failureResult(update), nil
	}

	out := map[string]any{
		"ok":      true,
		"fqdn":    fqdn,
		"updated": update.Payload,
	}
	if args.Restart {
		restart := h.coolify.RestartApplication(ctx, args.AppUUID)
		if !restart.OK {
			out["restart_error"] = failureBody(restart)
		} else {
			out["restart"] = restart.Payload
		}
	}
	return structuredResult(out), nil
}

// WaitForDeployment polls an application until it is running
func (h *Handler) WaitForDeployment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}
	timeout := time.Duration(request.GetInt("timeout_seconds", int(coolify.DefaultWaitTimeout/time.Second))) * time.Second

	result, err := h.coolify.WaitForRunning(ctx, uuid, coolify.WaitOptions{Timeout: timeout})
	if err != nil {
		if !result.Envelope.OK && result.Envelope.Error != nil {
			body := failureBody(result.Envelope)
			body["attempts"] = result.Attempts
			return structuredResult(body), nil
		}
		return structuredResult(map[string]any{
			"ok":              false,
			"error":           fmt.Sprintf("application did not reach running state: %v", err),
			"error_kind":      "timeout",
			"status":          result.Status,
			"attempts":        result.Attempts,
			"elapsed_seconds": result.Elapsed.Seconds(),
		}), nil
	}
	return structuredResult(map[string]any{
		"ok":              true,
		"status":          result.Status,
		"attempts":        result.Attempts,
		"elapsed_seconds": result.Elapsed.Seconds(),
	}), nil
}

// DiagnoseTunnelIssues looks for configuration that breaks tunnelled applications
func (h *Handler) DiagnoseTunnelIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, bad := bindApp(request)
	if bad != nil {
		return bad, nil
	}

	d := h.coolify.DiagnoseTunnel(ctx, uuid)
	if !d.Application.OK {
		return failureResult(d.Application), nil
	}
	return structuredResult(map[string]any{
		"app_uuid":        uuid,
		"status":          d.Status,
		"issues":          emptyIfNil(d.Issues),
		"recommendations": emptyIfNil(d.Recommendations),
		"has_issues":      d.HasIssues(),
	}), nil
}

func stringifyValues(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
