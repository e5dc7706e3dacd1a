// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"net/url"

	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// ListProjects fetches every project.
func (c *Client) ListProjects(ctx context.Context) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get("/projects"))
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, uuid string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get("/projects/"+url.PathEscape(uuid)))
}

// ListTeams fetches every team visible to the token.
func (c *Client) ListTeams(ctx context.Context) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get("/teams"))
}

// ListTeamProjects fetches the projects of a team.
func (c *Client) ListTeamProjects(ctx context.Context, teamID string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get("/teams/"+url.PathEscape(teamID)+"/projects"))
}
