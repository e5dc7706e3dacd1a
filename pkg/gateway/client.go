// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway performs authenticated calls to an upstream REST API and
// reports every outcome as an Envelope.
package gateway

//go:generate mockgen -destination=mocks/mock_doer.go -package=mocks -source=client.go Doer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	cerrors "github.com/renoblabs/coolify-mcp/pkg/errors"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
	"github.com/renoblabs/coolify-mcp/pkg/metrics"
	"github.com/renoblabs/coolify-mcp/pkg/telemetry"
)

const (
	// DefaultTimeout bounds every upstream call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes bounds how much of a response body is read.
	DefaultMaxBodyBytes int64 = 10 << 20

	// ErrorBodyLimit is the number of characters of an error body kept in the envelope.
	ErrorBodyLimit = 500

	// RequestIDHeader carries the per-call correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Doer performs one upstream call.
type Doer interface {
	Do(ctx context.Context, req Request) Envelope
}

// Client is a Doer bound to one upstream base URL and API prefix.
type Client struct {
	name       string
	baseURL    string
	prefix     string
	token      string
	timeout    time.Duration
	maxBody    int64
	transport  http.RoundTripper
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Recorder
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithName sets the upstream name used in logs, metrics and spans.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithAPIPrefix sets the fixed path prefix placed between the base URL and each request path.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = "/" + strings.Trim(prefix, "/") }
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithTransport sets the base RoundTripper. Tests use it to inject fakes.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithRateLimit limits outgoing calls to rps per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records every call on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithTracerProvider creates a span for every call.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(telemetry.TracerName)
		}
	}
}

// New creates a Client for baseURL. The base URL must be absolute http(s).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, cerrors.NewConfigurationError(fmt.Sprintf("invalid base URL %q", baseURL), err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, cerrors.NewConfigurationError(fmt.Sprintf("base URL %q must be an absolute http(s) URL", baseURL), nil)
	}

	c := &Client{
		name:      "upstream",
		baseURL:   strings.TrimRight(u.String(), "/"),
		timeout:   DefaultTimeout,
		maxBody:   DefaultMaxBodyBytes,
		transport: http.DefaultTransport,
		tracer:    tracenoop.NewTracerProvider().Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	var rt http.RoundTripper = c.transport
	if c.token != "" {
		rt = &authenticatedTransport{transport: rt, token: c.token}
	}
	c.httpClient = &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
	}

	return c, nil
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the base URL without the API prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req and returns its envelope. It never panics and never returns
// a transport error to the caller other than as a failed envelope.
func (c *Client) Do(ctx context.Context, req Request) Envelope {
	start := time.Now()
	method := strings.ToUpper(req.Method)

	ctx, span := c.tracer.Start(ctx, c.name+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", c.prefix+req.Path),
		),
	)
	defer span.End()

	env := c.do(ctx, method, req)

	kind := metrics.OutcomeSuccess
	if !env.OK {
		kind = env.Error.Kind
		span.SetStatus(codes.Error, env.Error.Message)
	}
	if env.StatusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", env.StatusCode))
	}
	c.metrics.ObserveUpstream(c.name, method, kind, time.Since(start))

	return env
}

func (c *Client) do(ctx context.Context, method string, req Request) Envelope {
	if !validMethod(method) {
		return Failure(0, cerrors.ErrInvalidRequest, fmt.Sprintf("unsupported method %q", req.Method))
	}
	if strings.TrimSpace(req.Path) == "" {
		return Failure(0, cerrors.ErrInvalidRequest, "request path is empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Failure(0, cerrors.ErrTransport, err.Error())
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Failure(0, cerrors.ErrInvalidRequest, fmt.Sprintf("failed to encode request body: %v", err))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req), body)
	if err != nil {
		return Failure(0, cerrors.ErrInvalidRequest, err.Error())
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	logger.Debugw("upstream request", "upstream", c.name, "method", method, "path", req.Path, "request_id", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Failure(0, cerrors.ErrTransport, transportMessage(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return Failure(resp.StatusCode, cerrors.ErrTransport, fmt.Sprintf("failed to read response body: %v", err))
	}

	logger.Debugw("upstream response", "upstream", c.name, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode >= http.StatusBadRequest {
		return errorEnvelope(resp.StatusCode, data)
	}

	if int64(len(data)) > c.maxBody {
		return Failure(resp.StatusCode, cerrors.ErrInvalidResponseBody,
			fmt.Sprintf("response body exceeds %d bytes", c.maxBody))
	}

	return decodeEnvelope(resp.StatusCode, data)
}

func (c *Client) url(req Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + c.prefix + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Decode builds the envelope for an HTTP status and response body.
func Decode(status int, data []byte) Envelope {
	if status >= http.StatusBadRequest {
		return errorEnvelope(status, data)
	}
	return decodeEnvelope(status, data)
}

func errorEnvelope(status int, data []byte) Envelope {
	if status == http.StatusNotFound {
		return Failure(status, cerrors.ErrNotFound, "Not found")
	}
	msg := strings.TrimSpace(truncate(string(data), ErrorBodyLimit))
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return Failure(status, cerrors.ErrUpstreamHTTP, msg)
}

func decodeEnvelope(status int, data []byte) Envelope {
	if len(bytes.TrimSpace(data)) == 0 {
		return Success(status, nil, nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return Failure(status, cerrors.ErrInvalidResponseBody, fmt.Sprintf("invalid JSON response: %v", err))
	}
	if dec.More() {
		return Failure(status, cerrors.ErrInvalidResponseBody, "invalid JSON response: trailing data")
	}
	if payload == nil {
		// a literal null is treated like an empty body
		return Success(status, nil, nil)
	}
	return Success(status, payload, data)
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		if urlErr.Timeout() {
			return fmt.Sprintf("request timed out: %v", urlErr.Err)
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// authenticatedTransport adds Bearer token authentication to HTTP requests
type authenticatedTransport struct {
	transport http.RoundTripper
	token     string
}

// RoundTrip adds the Authorization header and forwards the request
func (t *authenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	newReq := req.Clone(req.Context())
	newReq.Header.Set("Authorization", "Bearer "+t.token)

	return t.transport.RoundTrip(newReq)
}
