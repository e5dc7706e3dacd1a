// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/renoblabs/coolify-mcp/pkg/coolify"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// ListServers lists every server as {"servers": [...], "count": N}
func (h *Handler) ListServers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(h.coolify.ListServers(ctx), "servers"), nil
}

// GetServerDetails returns one server
func (h *Handler) GetServerDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := request.RequireString("server_uuid")
	if err != nil {
		return argumentError(err), nil
	}
	return envelopeResult(h.coolify.GetServer(ctx, uuid), ""), nil
}

// GetServerResources returns a server summary together with its resources
func (h *Handler) GetServerResources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := request.RequireString("server_uuid")
	if err != nil {
		return argumentError(err), nil
	}

	var server, resources gateway.Envelope
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server = h.coolify.GetServer(gctx, uuid)
		return nil
	})
	g.Go(func() error {
		resources = h.coolify.GetServerResources(gctx, uuid)
		return nil
	})
	_ = g.Wait()

	if !server.OK {
		return failureResult(server), nil
	}
	if !resources.OK {
		return failureResult(resources), nil
	}

	info := coolify.ServerFromEnvelope(server)
	status := coolify.Object(server).Get("status").String()
	if status == "" {
		status = "unreachable"
		if info.Reachable {
			status = "reachable"
		}
	}
	return structuredResult(map[string]any{
		"server_uuid": uuid,
		"server_name": info.Name,
		"status":      status,
		"available":   info.Reachable,
		"resources":   gateway.Normalize(resources.Payload, "resources"),
	}), nil
}

// DeployToServer moves an application to a server and deploys it
func (h *Handler) DeployToServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		AppUUID          string `json:"app_uuid"`
		ServerNameOrUUID string `json:"server_name_or_uuid"`
		ForceRebuild     bool   `json:"force_rebuild"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.AppUUID == "" {
		return missingArgument("app_uuid"), nil
	}
	if args.ServerNameOrUUID == "" {
		return missingArgument("server_name_or_uuid"), nil
	}

	placement, env := h.coolify.DeployToServer(ctx, args.AppUUID, args.ServerNameOrUUID, args.ForceRebuild)
	return placementResult(args.AppUUID, placement, env, nil), nil
}

// SmartDeploy chooses a server for the workload and deploys there
func (h *Handler) SmartDeploy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ServiceName        string `json:"service_name"`
		AppUUID            string `json:"app_uuid"`
		RequiresGPU        bool   `json:"requires_gpu"`
		RequiresHighMemory bool   `json:"requires_high_memory"`
		PreferredServer    string `json:"preferred_server"`
		ForceRebuild       bool   `json:"force_rebuild"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return argumentError(err), nil
	}
	if args.AppUUID == "" {
		return missingArgument("app_uuid"), nil
	}

	req := coolify.PlacementRequirements{
		RequiresGPU:        args.RequiresGPU,
		RequiresHighMemory: args.RequiresHighMemory,
	}
	placement, env := h.coolify.SmartDeploy(ctx, args.AppUUID, req, args.PreferredServer, args.ForceRebuild)

	reason := map[string]any{
		"requires_gpu":         args.RequiresGPU,
		"requires_high_memory": args.RequiresHighMemory,
		"selected_server":      placement.Server.Name,
		"server_capabilities":  capabilities(placement.Server),
	}
	if args.PreferredServer != "" {
		reason["preferred_server"] = args.PreferredServer
	}
	if args.ServiceName != "" {
		reason["service_name"] = args.ServiceName
	}
	return placementResult(args.AppUUID, placement, env, reason), nil
}

func placementResult(appUUID string, p coolify.Placement, env gateway.Envelope, reason map[string]any) *mcp.CallToolResult {
	if !env.OK {
		body := failureBody(env)
		body["success"] = false
		if len(p.Available) > 0 {
			body["available_servers"] = p.Available
		}
		if reason != nil {
			body["selection_reason"] = reason
		}
		return structuredResult(body)
	}

	out := map[string]any{
		"success":     true,
		"server_name": p.Server.Name,
		"server_uuid": p.Server.UUID,
		"app_uuid":    appUUID,
		"deployment":  env.Payload,
		"message":     fmt.Sprintf("Deploying %s to %s", appUUID, p.Server.Name),
	}
	if reason != nil {
		out["selection_reason"] = reason
	}
	return structuredResult(out)
}

func capabilities(s coolify.Server) []string {
	name := strings.ToLower(s.Name)
	var out []string
	for _, kw := range coolify.GPUKeywords {
		if strings.Contains(name, kw) {
			out = append(out, "gpu")
			break
		}
	}
	for _, kw := range coolify.HighMemoryKeywords {
		if strings.Contains(name, kw) {
			out = append(out, "high_memory")
			break
		}
	}
	if out == nil {
		out = []string{"general"}
	}
	return out
}

// ListProjects lists every project as {"projects": [...], "count": N}
func (h *Handler) ListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(h.coolify.ListProjects(ctx), "projects"), nil
}

// GetProject returns one project
func (h *Handler) GetProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := request.RequireString("project_uuid")
	if err != nil {
		return argumentError(err), nil
	}
	return envelopeResult(h.coolify.GetProject(ctx, uuid), ""), nil
}

// ListTeams lists every team as {"teams": [...], "count": N}
func (h *Handler) ListTeams(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(h.coolify.ListTeams(ctx), "teams"), nil
}

// ListTeamProjects lists the projects of a team
func (h *Handler) ListTeamProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID := request.GetString("team_id", "")
	if teamID == "" {
		// Numeric team ids arrive as JSON numbers.
		if id := request.GetInt("team_id", -1); id >= 0 {
			teamID = fmt.Sprint(id)
		}
	}
	if teamID == "" {
		return missingArgument("team_id"), nil
	}
	return envelopeResult(h.coolify.ListTeamProjects(ctx, teamID), "projects"), nil
}
