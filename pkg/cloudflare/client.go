// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cloudflare manages DNS records and tunnel ingress routes through the
// Cloudflare v4 API.
package cloudflare

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// APIPrefix is the fixed path prefix of the Cloudflare API.
const APIPrefix = "/client/v4"

// Record defaults.
const (
	DefaultRecordType = "CNAME"
	automaticTTL      = 1
)

// Config holds the zone, account and tunnel the client operates on.
type Config struct {
	ZoneID        string
	AccountID     string
	TunnelID      string
	BaseDomain    string
	DefaultTarget string
}

// Client performs Cloudflare operations through a gateway.Doer.
type Client struct {
	doer gateway.Doer
	cfg  Config

	accountMu sync.Mutex
	accountID string
}

// New creates a Client.
func New(doer gateway.Doer, cfg Config) *Client {
	cfg.BaseDomain = strings.Trim(strings.TrimSpace(cfg.BaseDomain), ".")
	return &Client{doer: doer, cfg: cfg, accountID: cfg.AccountID}
}

// BaseDomain returns the configured base domain.
func (c *Client) BaseDomain() string {
	return c.cfg.BaseDomain
}

// TunnelConfigured reports whether tunnel operations are available.
func (c *Client) TunnelConfigured() bool {
	return c.cfg.TunnelID != ""
}

// FQDN qualifies a subdomain with the base domain. Names already under the
// base domain are returned unchanged.
func (c *Client) FQDN(subdomain string) string {
	sub := strings.Trim(strings.TrimSpace(subdomain), ".")
	if c.cfg.BaseDomain == "" || sub == c.cfg.BaseDomain || strings.HasSuffix(sub, "."+c.cfg.BaseDomain) {
		return sub
	}
	return sub + "." + c.cfg.BaseDomain
}

// apiFailure converts a 2xx response carrying "success": false into a failure.
func apiFailure(env gateway.Envelope) (gateway.Envelope, bool) {
	if !env.OK {
		return env, true
	}
	if s := env.Get("success"); s.Exists() && !s.Bool() {
		return gateway.Failure(env.StatusCode, cerrors.ErrUpstreamHTTP, errorMessages(env)), true
	}
	return env, false
}

func errorMessages(env gateway.Envelope) string {
	var msgs []string
	env.Get("errors").ForEach(func(_, e gjson.Result) bool {
		if m := e.Get("message").String(); m != "" {
			msgs = append(msgs, m)
		}
		return true
	})
	if len(msgs) == 0 {
		return "cloudflare request was not successful"
	}
	return strings.Join(msgs, "; ")
}

// ResolveAccountID returns the configured account, or the first account
// visible to the token. The lookup result is remembered.
func (c *Client) ResolveAccountID(ctx context.Context) (string, error) {
	c.accountMu.Lock()
	defer c.accountMu.Unlock()

	if c.accountID != "" {
		return c.accountID, nil
	}

	env, failed := apiFailure(c.doer.Do(ctx, gateway.Get("/accounts")))
	if failed {
		return "", fmt.Errorf("failed to list accounts: %w", env.Err())
	}
	id := env.Get("result.0.id").String()
	if id == "" {
		return "", cerrors.NewConfigurationError("no Cloudflare account is visible to the API token", nil)
	}
	c.accountID = id
	return id, nil
}

func (c *Client) zonePath(parts ...string) string {
	return "/zones/" + url.PathEscape(c.cfg.ZoneID) + "/" + strings.Join(parts, "/")
}
