// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// DefaultLogLines is the number of log lines fetched when none are requested.
const DefaultLogLines = 100

// Application is the subset of an application record used for lookups.
type Application struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	FQDN   string `json:"fqdn,omitempty"`
}

func applicationFrom(r gjson.Result) Application {
	return Application{
		UUID:   r.Get("uuid").String(),
		Name:   r.Get("name").String(),
		Status: r.Get("status").String(),
		FQDN:   r.Get("fqdn").String(),
	}
}

// Applications decodes a list envelope into applications.
func Applications(env gateway.Envelope) []Application {
	items := Items(env)
	out := make([]Application, 0, len(items))
	for _, r := range items {
		out = append(out, applicationFrom(r))
	}
	return out
}

func applicationPath(uuid string, parts ...string) string {
	p := "/applications/" + url.PathEscape(uuid)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// ListApplications fetches every application and refreshes the lookup cache.
func (c *Client) ListApplications(ctx context.Context) gateway.Envelope {
	env := c.doer.Do(ctx, gateway.Get("/applications"))
	if env.OK {
		c.storeApplications(ctx, listJSON(env))
	}
	return env
}

// GetApplication fetches one application.
func (c *Client) GetApplication(ctx context.Context, uuid string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get(applicationPath(uuid)))
}

// FindApplication resolves an application by exact name, then exact uuid,
// then case-insensitive name substring. The application list is served from
// the cache when it is fresh.
func (c *Client) FindApplication(ctx context.Context, identifier string) (Application, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Application{}, cerrors.NewInvalidRequestError("application identifier is required", nil)
	}

	raw, ok := c.cachedApplications(ctx)
	if !ok {
		env := c.ListApplications(ctx)
		if !env.OK {
			return Application{}, env.Err()
		}
		raw = listJSON(env)
	} else {
		logger.Debugf("Resolving application %q from cache", identifier)
	}

	apps := gjson.ParseBytes(raw).Array()
	for _, a := range apps {
		if a.Get("name").String() == identifier {
			return applicationFrom(a), nil
		}
	}
	for _, a := range apps {
		if a.Get("uuid").String() == identifier {
			return applicationFrom(a), nil
		}
	}
	needle := strings.ToLower(identifier)
	for _, a := range apps {
		if strings.Contains(strings.ToLower(a.Get("name").String()), needle) {
			return applicationFrom(a), nil
		}
	}

	return Application{}, cerrors.NewNotFoundError(fmt.Sprintf("application %q not found", identifier), nil)
}

// DeployApplication triggers a deployment.
func (c *Client) DeployApplication(ctx context.Context, uuid string, forceRebuild bool) gateway.Envelope {
	return c.write(ctx, gateway.Post(applicationPath(uuid, "deploy"), map[string]any{
		"force_rebuild": forceRebuild,
	}))
}

// StartApplication starts a stopped application.
func (c *Client) StartApplication(ctx context.Context, uuid string) gateway.Envelope {
	return c.write(ctx, gateway.Post(applicationPath(uuid, "start"), nil))
}

// StopApplication stops a running application.
func (c *Client) StopApplication(ctx context.Context, uuid string) gateway.Envelope {
	return c.write(ctx, gateway.Post(applicationPath(uuid, "stop"), nil))
}

// RestartApplication restarts an application.
func (c *Client) RestartApplication(ctx context.Context, uuid string) gateway.Envelope {
	return c.write(ctx, gateway.Post(applicationPath(uuid, "restart"), nil))
}

// GetApplicationLogs fetches the most recent log lines. Non-positive values
// use DefaultLogLines.
func (c *Client) GetApplicationLogs(ctx context.Context, uuid string, lines int) gateway.Envelope {
	if lines <= 0 {
		lines = DefaultLogLines
	}
	return c.doer.Do(ctx, gateway.Get(applicationPath(uuid, "logs")).WithQuery("lines", strconv.Itoa(lines)))
}

// UpdateApplication patches application settings such as fqdn or destination_uuid.
func (c *Client) UpdateApplication(ctx context.Context, uuid string, fields map[string]any) gateway.Envelope {
	if len(fields) == 0 {
		return gateway.Failure(0, cerrors.ErrInvalidRequest, "no application fields to update")
	}
	return c.write(ctx, gateway.Patch(applicationPath(uuid), fields))
}

// CreateApplication is not available through the public Coolify API.
// Applications have to be created in the Coolify UI.
func (*Client) CreateApplication(_ context.Context, _ map[string]any) gateway.Envelope {
	return gateway.Failure(
		http.StatusNotImplemented,
		cerrors.ErrUnsupportedOperation,
		"creating applications is not supported by the Coolify API; create it in the Coolify UI",
	)
}

// ApplicationStatus returns the status field of an application payload.
func ApplicationStatus(env gateway.Envelope) string {
	if s := env.Get("status"); s.Exists() {
		return s.String()
	}
	return env.Get("data.status").String()
}
