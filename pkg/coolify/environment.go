// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package coolify

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"dario.cat/mergo"
	"github.com/tidwall/gjson"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// EnvironmentUpdate reports the outcome of a merged environment update.
type EnvironmentUpdate struct {
	Envelope gateway.Envelope
	Merged   map[string]string
	Updated  []string
}

// GetEnvironment fetches the environment variables of an application.
func (c *Client) GetEnvironment(ctx context.Context, uuid string) gateway.Envelope {
	return c.doer.Do(ctx, gateway.Get(applicationPath(uuid, "environment")))
}

// UpdateEnvironment merges updates over the current environment and writes
// the result back as {"environment": merged}. Keys present in updates win,
// including keys whose new value is empty.
// When the current environment cannot be read the update is not sent.
func (c *Client) UpdateEnvironment(ctx context.Context, uuid string, updates map[string]string) EnvironmentUpdate {
	if len(updates) == 0 {
		return EnvironmentUpdate{Envelope: gateway.Failure(0, cerrors.ErrInvalidRequest, "no environment variables to update")}
	}

	current := c.GetEnvironment(ctx, uuid)
	if !current.OK {
		return EnvironmentUpdate{Envelope: current}
	}
	return c.ApplyEnvironment(ctx, uuid, ParseEnvironment(current), updates)
}

// ApplyEnvironment merges updates over an environment the caller has already
// read and writes the result without fetching it again.
func (c *Client) ApplyEnvironment(
	ctx context.Context, uuid string, current, updates map[string]string,
) EnvironmentUpdate {
	if len(updates) == 0 {
		return EnvironmentUpdate{Envelope: gateway.Failure(0, cerrors.ErrInvalidRequest, "no environment variables to update")}
	}

	merged, err := MergeEnvironment(current, updates)
	if err != nil {
		return EnvironmentUpdate{Envelope: gateway.Failure(0, cerrors.ErrInvalidRequest, err.Error())}
	}

	keys := slices.Sorted(maps.Keys(updates))

	env := c.write(ctx, gateway.Put(applicationPath(uuid, "environment"), map[string]any{
		"environment": merged,
	}))
	return EnvironmentUpdate{Envelope: env, Merged: merged, Updated: keys}
}

// MergeEnvironment returns current overlaid with updates. Neither input is modified.
func MergeEnvironment(current, updates map[string]string) (map[string]string, error) {
	merged := maps.Clone(current)
	if merged == nil {
		merged = map[string]string{}
	}
	if err := mergo.Merge(&merged, updates, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge environment: %w", err)
	}
	return merged, nil
}

// ParseEnvironment extracts key/value pairs from an environment payload.
// Accepted shapes are {"environment": {...}}, {"data": {...}}, a flat object,
// and a list of {"key": ..., "value": ...} records, optionally under "data".
func ParseEnvironment(env gateway.Envelope) map[string]string {
	out := map[string]string{}
	if !env.OK {
		return out
	}

	root := gjson.ParseBytes(env.Raw())
	for _, path := range []string{"environment", "data"} {
		if v := root.Get(path); v.IsObject() || v.IsArray() {
			root = v
			break
		}
	}

	if root.IsArray() {
		for _, item := range root.Array() {
			key := item.Get("key").String()
			if key == "" {
				continue
			}
			out[key] = item.Get("value").String()
		}
		return out
	}

	root.ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out
}
