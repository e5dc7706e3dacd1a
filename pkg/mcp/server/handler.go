// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package server provides the MCP (Model Context Protocol) tool server that
// exposes Coolify and Cloudflare operations.
package server

import (
	"github.com/renoblabs/coolify-mcp/pkg/cloudflare"
	"github.com/renoblabs/coolify-mcp/pkg/coolify"
	"github.com/renoblabs/coolify-mcp/pkg/metrics"
)

// Handler handles MCP tool requests
type Handler struct {
	coolify    *coolify.Client
	cloudflare *cloudflare.Client
	metrics    *metrics.Recorder
	info       Info
}

// Info describes the running server for get_server_info.
type Info struct {
	Name           string
	Version        string
	Transport      string
	CoolifyBaseURL string
	AuthEnabled    bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithCloudflare enables the DNS and tunnel tools.
func WithCloudflare(c *cloudflare.Client) HandlerOption {
	return func(h *Handler) {
		h.cloudflare = c
	}
}

// WithMetrics records tool call metrics.
func WithMetrics(r *metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		h.metrics = r
	}
}

// WithInfo sets the values reported by get_server_info.
func WithInfo(info Info) HandlerOption {
	return func(h *Handler) {
		h.info = info
	}
}

// NewHandler creates a new Handler
func NewHandler(c *coolify.Client, opts ...HandlerOption) *Handler {
	h := &Handler{coolify: c}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CloudflareEnabled reports whether the DNS tools are registered.
func (h *Handler) CloudflareEnabled() bool {
	return h.cloudflare != nil
}

// TunnelEnabled reports whether the tunnel route tool is registered.
func (h *Handler) TunnelEnabled() bool {
	return h.cloudflare != nil && h.cloudflare.TunnelConfigured()
}
