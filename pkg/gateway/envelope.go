// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
)

// Request describes one upstream call. It is a value type: the Gateway never
// modifies it and callers build a fresh one per call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Get returns a GET request for path.
func Get(path string) Request {
	return Request{Method: http.MethodGet, Path: path}
}

// Post returns a POST request for path with an optional JSON body.
func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

// Put returns a PUT request for path with a JSON body.
func Put(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, Body: body}
}

// Patch returns a PATCH request for path with a JSON body.
func Patch(path string, body any) Request {
	return Request{Method: http.MethodPatch, Path: path, Body: body}
}

// WithQuery returns a copy of r with the query parameter set.
func (r Request) WithQuery(key, value string) Request {
	q := url.Values{}
	for k, v := range r.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	r.Query = q
	return r
}

// ErrorDetail describes a failed call.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Envelope is the uniform result of an upstream call. It is either OK with a
// Payload or not OK with an Error, never both and never neither. Build it with
// Success or Failure.
type Envelope struct {
	OK         bool         `json:"ok"`
	StatusCode int          `json:"status_code,omitempty"`
	Payload    any          `json:"payload,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`

	raw []byte
}

// Success builds a successful envelope. A nil payload becomes an empty object.
func Success(status int, payload any, raw []byte) Envelope {
	if payload == nil {
		payload = map[string]any{}
		raw = []byte("{}")
	}
	return Envelope{OK: true, StatusCode: status, Payload: payload, raw: raw}
}

// Failure builds a failed envelope. An empty message falls back to the kind.
func Failure(status int, kind, message string) Envelope {
	if kind == "" {
		kind = cerrors.ErrUpstreamHTTP
	}
	if strings.TrimSpace(message) == "" {
		message = kind
	}
	return Envelope{
		OK:         false,
		StatusCode: status,
		Error:      &ErrorDetail{Kind: kind, Message: message},
	}
}

// Err returns the failure as a *errors.Error, or nil for a successful envelope.
func (e Envelope) Err() error {
	if e.OK {
		return nil
	}
	return cerrors.NewError(e.Error.Kind, e.Error.Message, nil)
}

// Get reads a field of the raw payload using gjson path syntax.
func (e Envelope) Get(path string) gjson.Result {
	if !e.OK {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.raw, path)
}

// Raw returns the raw JSON payload of a successful envelope.
func (e Envelope) Raw() []byte {
	return e.raw
}

// IsList reports whether the payload is a bare JSON array.
func (e Envelope) IsList() bool {
	_, ok := e.Payload.([]any)
	return ok
}

// Normalize wraps a bare list payload as {key: items, "count": len(items)}.
// Object payloads are returned unchanged. The key is chosen per call site.
func Normalize(payload any, key string) any {
	items, ok := payload.([]any)
	if !ok {
		return payload
	}
	return map[string]any{
		key:     items,
		"count": len(items),
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
