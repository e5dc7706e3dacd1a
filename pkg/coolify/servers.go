// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// Server is the subset of a server record used for placement decisions.
type Server struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	IP        string `json:"ip,omitempty"`
	Reachable bool   `json:"reachable"`
}

// Label renders the server as "name (uuid)".
func (s Server) Label() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.UUID)
}

func serverFrom(r gjson.Result) Server {
	return Server{
		UUID:      r.Get("uuid").String(),
		Name:      r.Get("name").String(),
		IP:        r.Get("ip").String(),
		Reachable: r.Get("status").String() == "reachable" || r.Get("settings.is_reachable").Bool(),
	}
}

func serverPath(uuid string, parts ...string) string {
	p := "/servers/" + url.PathEscape(uuid)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// ListServers fetches every server.
func (c *Client) ListServers(ctx context.Context) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get("/servers"))
}

// GetServer fetches one server.
func (c *Client) GetServer(ctx context.Context, uuid string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get(serverPath(uuid)))
}

// GetServerResources fetches the resources deployed on a server.
func (c *Client) GetServerResources(ctx context.Context, uuid string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get(serverPath(uuid, "resources")))
}

// Servers decodes a server list payload.
func Servers(env gateway.Envelope) []Server {
	items := Items(env)
	out := make([]Server, 0, len(items))
	for _, item := range items {
		out = append(out, serverFrom(item))
	}
	return out
}

// ServerFromEnvelope decodes a single server payload.
func ServerFromEnvelope(env gateway.Envelope) Server {
	return serverFrom(Object(env))
}

// FindServer matches a server by uuid or name. Name matching ignores case.
func FindServer(servers []Server, nameOrUUID string) (Server, error) {
	for _, s := range servers {
		if s.UUID == nameOrUUID {
			return s, nil
		}
	}
	for _, s := range servers {
		if strings.EqualFold(s.Name, nameOrUUID) {
			return s, nil
		}
	}
	return Server{}, cerrors.NewNotFoundError(fmt.Sprintf("server %q not found", nameOrUUID), nil)
}

// Labels renders every server as "name (uuid)".
func Labels(servers []Server) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.Label())
	}
	return out
}

// Keywords used to pick a server for a workload.
var (
	GPUKeywords        = []string{"gpu", "main", "workstation", "desktop"}
	HighMemoryKeywords = []string{"main", "powerful", "workstation"}
)

// PlacementRequirements describes what a workload needs from a server.
type PlacementRequirements struct {
	RequiresGPU        bool
	RequiresHighMemory bool
}

// SelectServer picks a reachable server for the requirements. GPU workloads
// prefer servers whose name matches GPUKeywords, high-memory workloads prefer
// HighMemoryKeywords, and anything else takes the first reachable server.
func SelectServer(servers []Server, req PlacementRequirements) (Server, error) {
	reachable := make([]Server, 0, len(servers))
	for _, s := range servers {
		if s.Reachable {
			reachable = append(reachable, s)
		}
	}
	if len(reachable) == 0 {
		return Server{}, cerrors.NewNotFoundError("no reachable servers available", nil)
	}

	if req.RequiresGPU {
		if s, ok := matchKeyword(reachable, GPUKeywords); ok {
			return s, nil
		}
	}
	if req.RequiresHighMemory {
		if s, ok := matchKeyword(reachable, HighMemoryKeywords); ok {
			return s, nil
		}
	}
	return reachable[0], nil
}

func matchKeyword(servers []Server, keywords []string) (Server, bool) {
	for _, s := range servers {
		name := strings.ToLower(s.Name)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return s, true
			}
		}
	}
	return Server{}, false
}
