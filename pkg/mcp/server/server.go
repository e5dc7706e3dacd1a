// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stacklok/toolhive-core/httperr"

	apierrors "github.com/renoblabs/coolify-mcp/pkg/api/errors"
	"github.com/renoblabs/coolify-mcp/pkg/auth"
	"github.com/renoblabs/coolify-mcp/pkg/logger"
	"github.com/renoblabs/coolify-mcp/pkg/metrics"
)

const (
	// DefaultName is the MCP server name announced to clients.
	DefaultName = "coolify-mcp"

	// MCPEndpointPath is the streamable HTTP endpoint.
	MCPEndpointPath = "/mcp"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	maxToolBodyBytes         = 1 << 20
)

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the configuration for the MCP server
type Config struct {
	Name      string
	Version   string
	Transport string
	Host      string
	Port      int
	// AuthToken protects every HTTP route except the health endpoints.
	// Empty disables authentication.
	AuthToken string
}

// Server serves the tools over stdio or HTTP
type Server struct {
	config    Config
	mcpServer *server.MCPServer
	handler   *Handler
	tools     map[string]server.ServerTool
	metrics   *metrics.Recorder

	stdin  io.Reader
	stdout io.Writer

	httpServer *http.Server
	listener   net.Listener
	listenerMu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsEndpoint serves the recorder's collectors at /metrics.
func WithMetricsEndpoint(r *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithStdio overrides the streams used by the stdio transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.stdin = in
		s.stdout = out
	}
}

// New creates the MCP server and registers the handler's tools
func New(config Config, handler *Handler, opts ...Option) *Server {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Transport == "" {
		config.Transport = TransportHTTP
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	tools := handler.Tools()
	mcpServer.AddTools(tools...)

	byName := make(map[string]server.ServerTool, len(tools))
	for _, t := range tools {
		byName[t.Tool.Name] = t
	}

	s := &Server{
		config:    config,
		mcpServer: mcpServer,
		handler:   handler,
		tools:     byName,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the configured transport until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	if s.config.Transport == TransportStdio {
		logger.Infof("Serving %d tools over stdio", len(s.tools))
		stdio := server.NewStdioServer(s.mcpServer)
		if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	httpServer := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	// Port 0 binds a random available port.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listenerMu.Lock()
	s.httpServer = httpServer
	s.listener = listener
	s.listenerMu.Unlock()

	actual := listener.Addr().String()
	logger.Infof("Starting MCP server at http://%s%s", actual, MCPEndpointPath)
	if s.config.AuthToken == "" {
		logger.Warn("Bearer authentication is disabled; every route is open")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down server")
		return s.Stop(context.Background())
	case err := <-errCh:
		logger.Errorf("HTTP server error: %v", err)
		if stopErr := s.Stop(context.Background()); stopErr != nil {
			return fmt.Errorf("server error: %w; stop error: %v", err, stopErr)
		}
		return err
	}
}

// Stop gracefully stops the HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	s.listenerMu.Lock()
	httpServer := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.listenerMu.Unlock()

	if httpServer == nil {
		return nil
	}
	logger.Info("Stopping MCP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Address returns the listener address, or "" when not serving HTTP.
func (s *Server) Address() string {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Router builds the HTTP routes. Everything except the health endpoints sits
// behind the bearer token middleware.
func (s *Server) Router() http.Handler {
	streamable := server.NewStreamableHTTPServer(s.mcpServer, server.WithEndpointPath(MCPEndpointPath))
	sse := server.NewSSEServer(s.mcpServer)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		auth.BearerTokenMiddleware(s.config.AuthToken, auth.HealthPaths...),
	)

	r.Get("/health", s.handleHealth)
	r.Get("/ping", s.handleHealth)
	r.Get("/readyz", s.handleReadiness)

	r.Handle(MCPEndpointPath, streamable)
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())

	r.Get("/tools", apierrors.ErrorHandler(s.listTools))
	r.Post("/tools/{name}", apierrors.ErrorHandler(s.callTool))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = apierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	_ = apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"tools":  len(s.tools),
	})
}

type toolDescription struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	InputSchema mcp.ToolInputSchema `json:"inputSchema"`
}

func (s *Server) listTools(w http.ResponseWriter, _ *http.Request) error {
	out := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, toolDescription{
			Name:        t.Tool.Name,
			Description: t.Tool.Description,
			InputSchema: t.Tool.InputSchema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return apierrors.WriteJSON(w, http.StatusOK, map[string]any{"tools": out, "count": len(out)})
}

// callTool invokes a tool with the JSON object body as its arguments.
func (s *Server) callTool(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	tool, ok := s.tools[name]
	if !ok {
		return httperr.WithCode(fmt.Errorf("unknown tool %q", name), http.StatusNotFound)
	}

	args := map[string]any{}
	r.Body = http.MaxBytesReader(w, r.Body, maxToolBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		return httperr.WithCode(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := tool.Handler(r.Context(), request)
	if err != nil {
		return fmt.Errorf("tool %s failed: %w", name, err)
	}
	if result.IsError {
		return httperr.WithCode(errors.New(resultText(result)), http.StatusBadRequest)
	}
	if result.StructuredContent != nil {
		return apierrors.WriteJSON(w, http.StatusOK, result.StructuredContent)
	}
	return apierrors.WriteJSON(w, http.StatusOK, map[string]any{"text": resultText(result)})
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return "tool call failed"
}
