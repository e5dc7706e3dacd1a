// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/gateway"
)

// envelopeResult converts an upstream envelope into a tool result. Bare list
// payloads are wrapped under listKey; failures become a normal result with
// ok=false.
func envelopeResult(env gateway.Envelope, listKey string) *mcp.CallToolResult {
	if !env.OK {
		return failureResult(env)
	}
	payload := env.Payload
	if listKey != "" {
		payload = gateway.Normalize(payload, listKey)
	}
	return mcp.NewToolResultStructuredOnly(payload)
}

// failureResult renders {"ok": false, "status_code": N, "error": msg, "error_kind": kind}.
func failureResult(env gateway.Envelope) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(failureBody(env))
}

func failureBody(env gateway.Envelope) map[string]any {
	body := map[string]any{
		"ok":         false,
		"error":      env.Error.Message,
		"error_kind": env.Error.Kind,
	}
	if env.StatusCode != 0 {
		body["status_code"] = env.StatusCode
	}
	return body
}

// errorResult renders a domain error the same way as an upstream failure.
func errorResult(err error) *mcp.CallToolResult {
	kind := cerrors.KindOf(err)
	return failureResult(gateway.Failure(0, kind, err.Error()))
}

func structuredResult(v any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(v)
}

func argumentError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err))
}

func missingArgument(name string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
}

// isFailure reports whether a result should be counted as an error.
func isFailure(result *mcp.CallToolResult) bool {
	if result == nil || result.IsError {
		return true
	}
	m, ok := result.StructuredContent.(map[string]any)
	if !ok {
		return false
	}
	if v, ok := m["ok"].(bool); ok && !v {
		return true
	}
	if v, ok := m["success"].(bool); ok && !v {
		return true
	}
	return false
}
