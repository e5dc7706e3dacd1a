// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/renoblabs/coolify-mcp/pkg/logger"
	"github.com/renoblabs/coolify-mcp/pkg/metrics"
)

func appUUIDParam() mcp.ToolOption {
	return mcp.WithString("app_uuid", mcp.Required(), mcp.Description("UUID of the Coolify application"))
}

// Tools returns every tool the handler serves. Cloudflare tools are only
// included when a Cloudflare client is configured.
func (h *Handler) Tools() []server.ServerTool {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("get_server_info",
				mcp.WithDescription("Report server version, configuration and enabled capabilities")),
			Handler: h.GetServerInfo,
		},
		{
			Tool: mcp.NewTool("list_applications",
				mcp.WithDescription("List all Coolify applications")),
			Handler: h.ListApplications,
		},
		{
			Tool: mcp.NewTool("get_application_details",
				mcp.WithDescription("Get details of a Coolify application"),
				appUUIDParam()),
			Handler: h.GetApplicationDetails,
		},
		{
			Tool: mcp.NewTool("find_application",
				mcp.WithDescription("Find an application by exact name, uuid or partial name"),
				mcp.WithString("identifier", mcp.Required(), mcp.Description("Application name or uuid"))),
			Handler: h.FindApplication,
		},
		{
			Tool: mcp.NewTool("deploy_application",
				mcp.WithDescription("Trigger a deployment of a Coolify application"),
				appUUIDParam(),
				mcp.WithBoolean("force_rebuild", mcp.DefaultBool(false), mcp.Description("Rebuild without cache"))),
			Handler: h.DeployApplication,
		},
		{
			Tool: mcp.NewTool("start_application",
				mcp.WithDescription("Start a stopped Coolify application"),
				appUUIDParam()),
			Handler: h.StartApplication,
		},
		{
			Tool: mcp.NewTool("restart_application",
				mcp.WithDescription("Restart a Coolify application"),
				appUUIDParam()),
			Handler: h.RestartApplication,
		},
		{
			Tool: mcp.NewTool("stop_application",
				mcp.WithDescription("Stop a running Coolify application"),
				appUUIDParam()),
			Handler: h.StopApplication,
		},
		{
			Tool: mcp.NewTool("get_application_logs",
				mcp.WithDescription("Get recent logs of a Coolify application"),
				appUUIDParam(),
				mcp.WithNumber("lines", mcp.DefaultNumber(100), mcp.Description("Number of log lines"))),
			Handler: h.GetApplicationLogs,
		},
		{
			Tool: mcp.NewTool("get_application_environment",
				mcp.WithDescription("Get the environment variables of a Coolify application"),
				appUUIDParam()),
			Handler: h.GetApplicationEnvironment,
		},
		{
			Tool: mcp.NewTool("update_application_environment",
				mcp.WithDescription("Merge environment variables into a Coolify application; given keys win"),
				appUUIDParam(),
				mcp.WithObject("env_vars", mcp.Required(), mcp.Description("Variables to set, as a flat key/value object"))),
			Handler: h.UpdateApplicationEnvironment,
		},
		{
			Tool: mcp.NewTool("configure_application_domain",
				mcp.WithDescription("Set the public domain of a Coolify application"),
				appUUIDParam(),
				mcp.WithString("domain", mcp.Required(), mcp.Description("Domain or URL, https is assumed")),
				mcp.WithString("ports_exposes", mcp.Description("Container ports to expose, e.g. 3000")),
				mcp.WithBoolean("restart", mcp.DefaultBool(false), mcp.Description("Restart after updating"))),
			Handler: h.ConfigureApplicationDomain,
		},
		{
			Tool: mcp.NewTool("wait_for_deployment",
				mcp.WithDescription("Poll an application until it is running"),
				appUUIDParam(),
				mcp.WithNumber("timeout_seconds", mcp.DefaultNumber(300), mcp.Description("Maximum time to wait"))),
			Handler: h.WaitForDeployment,
		},
		{
			Tool: mcp.NewTool("list_servers",
				mcp.WithDescription("List all Coolify servers")),
			Handler: h.ListServers,
		},
		{
			Tool: mcp.NewTool("get_server_details",
				mcp.WithDescription("Get details of a Coolify server"),
				mcp.WithString("server_uuid", mcp.Required(), mcp.Description("UUID of the server"))),
			Handler: h.GetServerDetails,
		},
		{
			Tool: mcp.NewTool("get_server_resources",
				mcp.WithDescription("Get a server summary and the resources deployed on it"),
				mcp.WithString("server_uuid", mcp.Required(), mcp.Description("UUID of the server"))),
			Handler: h.GetServerResources,
		},
		{
			Tool: mcp.NewTool("deploy_to_server",
				mcp.WithDescription("Move an application to a server and deploy it"),
				appUUIDParam(),
				mcp.WithString("server_name_or_uuid", mcp.Required(), mcp.Description("Target server name or uuid")),
				mcp.WithBoolean("force_rebuild", mcp.DefaultBool(false), mcp.Description("Rebuild without cache"))),
			Handler: h.DeployToServer,
		},
		{
			Tool: mcp.NewTool("smart_deploy",
				mcp.WithDescription("Pick a reachable server for the workload and deploy there"),
				mcp.WithString("service_name", mcp.Description("Service name, for reporting")),
				appUUIDParam(),
				mcp.WithBoolean("requires_gpu", mcp.DefaultBool(false), mcp.Description("Workload needs a GPU")),
				mcp.WithBoolean("requires_high_memory", mcp.DefaultBool(false), mcp.Description("Workload needs lots of memory")),
				mcp.WithString("preferred_server", mcp.Description("Use this server instead of selecting one")),
				mcp.WithBoolean("force_rebuild", mcp.DefaultBool(false), mcp.Description("Rebuild without cache"))),
			Handler: h.SmartDeploy,
		},
		{
			Tool: mcp.NewTool("list_projects",
				mcp.WithDescription("List all Coolify projects")),
			Handler: h.ListProjects,
		},
		{
			Tool: mcp.NewTool("get_project",
				mcp.WithDescription("Get details of a Coolify project"),
				mcp.WithString("project_uuid", mcp.Required(), mcp.Description("UUID of the project"))),
			Handler: h.GetProject,
		},
		{
			Tool: mcp.NewTool("list_teams",
				mcp.WithDescription("List Coolify teams")),
			Handler: h.ListTeams,
		},
		{
			Tool: mcp.NewTool("list_team_projects",
				mcp.WithDescription("List the projects of a Coolify team"),
				mcp.WithString("team_id", mcp.Required(), mcp.Description("Team id"))),
			Handler: h.ListTeamProjects,
		},
		{
			Tool: mcp.NewTool("diagnose_tunnel_issues",
				mcp.WithDescription("Look for localhost references and a stopped status that break tunnelled apps"),
				appUUIDParam()),
			Handler: h.DiagnoseTunnelIssues,
		},
		{
			Tool: mcp.NewTool("configure_service_subdomain",
				mcp.WithDescription("Explain how to expose a service on a subdomain"),
				mcp.WithString("service_name", mcp.Required(), mcp.Description("Service name")),
				mcp.WithString("subdomain", mcp.Required(), mcp.Description("Subdomain to use")),
				mcp.WithString("base_domain", mcp.Description("Base domain, defaults to BASE_DOMAIN"))),
			Handler: h.ConfigureServiceSubdomain,
		},
	}

	if h.CloudflareEnabled() {
		tools = append(tools,
			server.ServerTool{
				Tool: mcp.NewTool("create_dns_record",
					mcp.WithDescription("Create a DNS record under the base domain"),
					mcp.WithString("subdomain", mcp.Required(), mcp.Description("Subdomain to create")),
					mcp.WithString("target", mcp.Description("Record content, defaults to DNS_DEFAULT_TARGET")),
					mcp.WithString("record_type", mcp.DefaultString("CNAME"), mcp.Enum("CNAME", "A", "AAAA", "TXT"),
						mcp.Description("Record type")),
					mcp.WithBoolean("proxied", mcp.DefaultBool(true), mcp.Description("Proxy through Cloudflare"))),
				Handler: h.CreateDNSRecord,
			},
			server.ServerTool{
				Tool: mcp.NewTool("list_dns_records",
					mcp.WithDescription("List DNS records in the zone"),
					mcp.WithString("name", mcp.Description("Only records with this name"))),
				Handler: h.ListDNSRecords,
			},
			server.ServerTool{
				Tool: mcp.NewTool("automate_service_deployment",
					mcp.WithDescription("Create DNS, route the tunnel, fix localhost URLs and deploy"),
					mcp.WithString("service_name", mcp.Required(), mcp.Description("Service name")),
					mcp.WithString("subdomain", mcp.Required(), mcp.Description("Subdomain to use")),
					appUUIDParam(),
					mcp.WithNumber("port", mcp.DefaultNumber(8000), mcp.Description("Local port of the service"))),
				Handler: h.AutomateServiceDeployment,
			},
		)
	}
	if h.TunnelEnabled() {
		tools = append(tools, server.ServerTool{
			Tool: mcp.NewTool("add_tunnel_route",
				mcp.WithDescription("Add a public hostname route to the Cloudflare tunnel"),
				mcp.WithString("subdomain", mcp.Required(), mcp.Description("Subdomain to route")),
				mcp.WithString("service", mcp.Required(), mcp.Description("Origin service, e.g. http://localhost:8000"))),
			Handler: h.AddTunnelRoute,
		})
	}

	for i := range tools {
		tools[i].Handler = h.instrument(tools[i].Tool.Name, tools[i].Handler)
	}
	return tools
}

// instrument records duration and outcome of every tool call.
func (h *Handler) instrument(name string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := next(ctx, request)

		outcome := metrics.OutcomeSuccess
		if err != nil || isFailure(result) {
			outcome = metrics.OutcomeError
		}
		h.metrics.ObserveTool(name, outcome, time.Since(start))
		logger.Debugw("tool call", "tool", name, "outcome", outcome, "duration", time.Since(start))
		return result, err
	}
}
