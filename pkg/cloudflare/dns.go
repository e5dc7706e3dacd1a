// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cloudflare

import (
	"context"
	"fmt"
	"strings"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// DNSRecord describes a record to create under the base domain.
type DNSRecord struct {
	Subdomain string
	Target    string
	Type      string
	Proxied   bool
}

// DNSRecordResult is the outcome of CreateDNSRecord.
type DNSRecordResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RecordID   string `json:"record_id,omitempty"`
	FullDomain string `json:"full_domain"`
	Target     string `json:"target,omitempty"`
	Type       string `json:"type,omitempty"`
}

// CreateDNSRecord creates a record for subdomain.<base domain>. The target
// falls back to the configured default target.
func (c *Client) CreateDNSRecord(ctx context.Context, rec DNSRecord) (DNSRecordResult, gateway.Envelope) {
	fqdn := c.FQDN(rec.Subdomain)
	result := DNSRecordResult{FullDomain: fqdn}

	if strings.TrimSpace(rec.Subdomain) == "" {
		return result, gateway.Failure(0, cerrors.ErrInvalidRequest, "subdomain is required")
	}
	target := rec.Target
	if target == "" {
		target = c.cfg.DefaultTarget
	}
	if target == "" {
		return result, gateway.Failure(0, cerrors.ErrInvalidRequest,
			"target is required when DNS_DEFAULT_TARGET is not configured")
	}
	recordType := strings.ToUpper(rec.Type)
	if recordType == "" {
		recordType = DefaultRecordType
	}
	result.Target = target
	result.Type = recordType

	env, failed := apiFailure(c.doer.Do(ctx, gateway.Post(c.zonePath("dns_records"), map[string]any{
		"type":    recordType,
		"name":    fqdn,
		"content": target,
		"ttl":     automaticTTL,
		"proxied": rec.Proxied,
	})))
	if failed {
		result.Message = env.Error.Message
		return result, env
	}

	result.Success = true
	result.RecordID = env.Get("result.id").String()
	result.Message = fmt.Sprintf("DNS record %s -> %s created", fqdn, target)
	return result, env
}

// ListDNSRecords lists records in the zone, optionally filtered by name.
func (c *Client) ListDNSRecords(ctx context.Context, name string) gateway.Envelope {
	req := gateway.Get(c.zonePath("dns_records"))
	if name != "" {
		req = req.WithQuery("name", c.FQDN(name))
	}
	env, _ := apiFailure(c.doer.Do(ctx, req))
	return env
}
