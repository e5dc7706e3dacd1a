// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// Placement describes where an application was (or would have been) deployed.
type Placement struct {
	Server    Server
	Available []string
}

// DeployToServer moves an application to the named server and deploys it.
//
// The server is resolved by uuid or name from GET /servers and must be
// reachable. The returned envelope is the deployment result, or the first
// failure encountered.
func (c *Client) DeployToServer(ctx context.Context, appUUID, serverRef string, forceRebuild bool) (Placement, gateway.Envelope) {
	serversEnv := c.ListServers(ctx)
	if !serversEnv.OK {
		return Placement{}, serversEnv
	}
	servers := Servers(serversEnv)
	placement := Placement{Available: Labels(servers)}

	server, err := FindServer(servers, serverRef)
	if err != nil {
		return placement, gateway.Failure(0, cerrors.ErrNotFound, err.Error())
	}
	placement.Server = server
	return placement, c.deployOn(ctx, appUUID, server, forceRebuild)
}

// SmartDeploy picks a server for the requirements and deploys the
// application there. A preferred server bypasses selection.
func (c *Client) SmartDeploy(
	ctx context.Context, appUUID string, req PlacementRequirements, preferred string, forceRebuild bool,
) (Placement, gateway.Envelope) {
	if preferred != "" {
		return c.DeployToServer(ctx, appUUID, preferred, forceRebuild)
	}

	serversEnv := c.ListServers(ctx)
	if !serversEnv.OK {
		return Placement{}, serversEnv
	}
	servers := Servers(serversEnv)
	placement := Placement{Available: Labels(servers)}

	server, err := SelectServer(servers, req)
	if err != nil {
		return placement, gateway.Failure(0, cerrors.ErrNotFound, err.Error())
	}
	logger.Infof("Selected server %s for application %s", server.Label(), appUUID)
	placement.Server = server
	return placement, c.deployOn(ctx, appUUID, server, forceRebuild)
}

func (c *Client) deployOn(ctx context.Context, appUUID string, server Server, forceRebuild bool) gateway.Envelope {
	if !server.Reachable {
		return gateway.Failure(0, cerrors.ErrInvalidRequest,
			fmt.Sprintf("server %s is not reachable", server.Label()))
	}

	update := c.UpdateApplication(ctx, appUUID, map[string]any{"destination_uuid": server.UUID})
	if !update.OK {
		return update
	}
	return c.DeployApplication(ctx, appUUID, forceRebuild)
}
