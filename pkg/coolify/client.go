// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package coolify wraps the Coolify deployment API (/api/v1) on top of the gateway.
//
// Every operation returns the gateway envelope unchanged so that upstream
// failures reach the tool layer as data. The application list used for name
// lookups is cached for a bounded TTL and every write through this client
// invalidates it.
package coolify

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/renoblabs/coolify-mcp/pkg/cache"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
)

// APIPrefix is the fixed path prefix of the Coolify API.
const APIPrefix = "/api/v1"

// applicationsCacheKey holds the raw JSON list of applications.
const applicationsCacheKey = "coolify:applications"

// Client performs Coolify operations through a gateway.Doer.
type Client struct {
	doer     gateway.Doer
	cache    cache.Cache
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables the application lookup cache.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// New creates a Client.
func New(doer gateway.Doer, opts ...Option) *Client {
	c := &Client{doer: doer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do exposes the underlying gateway for callers that need a raw request.
func (c *Client) Do(ctx context.Context, req gateway.Request) gateway.Envelope {
	return c.doer.Do(ctx, req)
}

// write performs a state-changing request and invalidates the application cache.
func (c *Client) write(ctx context.Context, req gateway.Request) gateway.Envelope {
	env := c.doer.Do(ctx, req)
	c.invalidate(ctx)
	return env
}

func (c *Client) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, applicationsCacheKey); err != nil {
		logger.Warnf("Failed to invalidate application cache: %v", err)
	}
}

func (c *Client) storeApplications(ctx context.Context, raw []byte) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, applicationsCacheKey, raw, c.cacheTTL); err != nil {
		logger.Warnf("Failed to cache application list: %v", err)
	}
}

func (c *Client) cachedApplications(ctx context.Context) ([]byte, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	raw, ok, err := c.cache.Get(ctx, applicationsCacheKey)
	if err != nil {
		logger.Warnf("Failed to read application cache: %v", err)
		return nil, false
	}
	return raw, ok
}

// Items returns the elements of a list payload. Coolify returns bare arrays
// from most list endpoints and {"data": [...]} from some versions.
func Items(env gateway.Envelope) []gjson.Result {
	return gjson.ParseBytes(listJSON(env)).Array()
}

// Object returns the object payload, unwrapping {"data": {...}} when present.
func Object(env gateway.Envelope) gjson.Result {
	if data := env.Get("data"); data.IsObject() {
		return data
	}
	return gjson.ParseBytes(env.Raw())
}

func listJSON(env gateway.Envelope) []byte {
	if !env.OK {
		return []byte("[]")
	}
	if env.IsList() {
		return env.Raw()
	}
	if data := env.Get("data"); data.IsArray() {
		return []byte(data.Raw)
	}
	return []byte("[]")
}
